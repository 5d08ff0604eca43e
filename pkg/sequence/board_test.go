package sequence

import (
	"testing"
)

func TestLayoutsAreWellFormed(t *testing.T) {
	corners := map[Coord]bool{
		{0, 0}: true, {0, BoardSize - 1}: true,
		{BoardSize - 1, 0}: true, {BoardSize - 1, BoardSize - 1}: true,
	}

	for _, bt := range []BoardType{BoardClassic, BoardAlternative, BoardAdvanced} {
		board, err := NewBoard(bt)
		if err != nil {
			t.Fatalf("NewBoard(%s): %v", bt, err)
		}

		counts := make(map[Card]int)
		for r := 0; r < BoardSize; r++ {
			for c := 0; c < BoardSize; c++ {
				cell := board.At(r, c)
				if cell.Row != r || cell.Col != c {
					t.Fatalf("%s (%d,%d): wrong coordinates on cell", bt, r, c)
				}
				if corners[Coord{r, c}] {
					if !cell.Corner || cell.Card != nil {
						t.Errorf("%s (%d,%d): expected a free corner", bt, r, c)
					}
					continue
				}
				if cell.Corner || cell.Card == nil {
					t.Fatalf("%s (%d,%d): expected a card cell", bt, r, c)
				}
				if cell.Card.IsJack() {
					t.Errorf("%s (%d,%d): jacks never appear on the board", bt, r, c)
				}
				counts[*cell.Card]++
			}
		}

		if len(counts) != 48 {
			t.Errorf("%s: expected 48 distinct cards, got %d", bt, len(counts))
		}
		for card, n := range counts {
			if n != 2 {
				t.Errorf("%s: card %s appears %d times, want 2", bt, card, n)
			}
		}
	}
}

func TestParseBoardType(t *testing.T) {
	for _, s := range []string{"classic", "alternative", "advanced"} {
		if _, err := ParseBoardType(s); err != nil {
			t.Errorf("ParseBoardType(%q): %v", s, err)
		}
	}
	if _, err := ParseBoardType("hexagonal"); err == nil {
		t.Error("ParseBoardType should reject unknown layouts")
	}
}

func TestBoardAtBounds(t *testing.T) {
	board, err := NewBoard(BoardClassic)
	if err != nil {
		t.Fatal(err)
	}
	for _, co := range []Coord{{-1, 0}, {0, -1}, {10, 0}, {0, 10}} {
		if board.At(co.Row, co.Col) != nil {
			t.Errorf("At(%d,%d) should be nil", co.Row, co.Col)
		}
	}
}
