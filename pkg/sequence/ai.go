package sequence

import (
	"math/rand"
	"sort"
)

// Difficulty selects one of the AI policies. The server always plays
// medium; easy and hard are kept for room configs that may surface a
// selector later.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Move is a selected play: the hand index of the card and the target cell.
type Move struct {
	CardIndex int
	Row       int
	Col       int
}

// window is a 5-cell span with no blocking opponent chip: every cell is
// empty, a corner, or the scanned color. own counts the color's chips.
type window struct {
	cells []Coord
	own   int
}

// potentialWindows enumerates every open 5-cell window for a color in the
// four directions, sorted by descending own-chip count.
func potentialWindows(b *Board, color TeamColor) []window {
	var out []window
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			for _, d := range directions {
				endR, endC := r+4*d[0], c+4*d[1]
				if !InBounds(endR, endC) {
					continue
				}
				w := window{}
				open := true
				for i := 0; i < 5; i++ {
					rr, cc := r+i*d[0], c+i*d[1]
					cell := b.At(rr, cc)
					switch {
					case cell.Corner:
					case cell.Chip == nil:
					case cell.Chip.Color == color:
						w.own++
					default:
						open = false
					}
					if !open {
						break
					}
					w.cells = append(w.cells, Coord{Row: rr, Col: cc})
				}
				if open {
					out = append(out, w)
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].own > out[j].own })
	return out
}

// playableIndexFor finds a hand card that can place a chip on the cell:
// an exact rank-and-suit match is preferred, any two-eyed Jack works.
func playableIndexFor(hand []Card, cell *Cell) (int, bool) {
	if cell == nil || cell.Corner || cell.Chip != nil || cell.Card == nil {
		return 0, false
	}
	for i, c := range hand {
		if !c.IsJack() && c == *cell.Card {
			return i, true
		}
	}
	for i, c := range hand {
		if c.IsTwoEyedJack() {
			return i, true
		}
	}
	return 0, false
}

// exactIndexFor is playableIndexFor restricted to non-Jack matches, used
// when the policy wants to keep its Jacks.
func exactIndexFor(hand []Card, cell *Cell) (int, bool) {
	if cell == nil || cell.Corner || cell.Chip != nil || cell.Card == nil {
		return 0, false
	}
	for i, c := range hand {
		if !c.IsJack() && c == *cell.Card {
			return i, true
		}
	}
	return 0, false
}

// extendWindow looks for an empty cell inside the window that some hand
// card can fill.
func extendWindow(hand []Card, b *Board, w window) (Move, bool) {
	for _, co := range w.cells {
		cell := b.At(co.Row, co.Col)
		if idx, ok := playableIndexFor(hand, cell); ok {
			return Move{CardIndex: idx, Row: co.Row, Col: co.Col}, true
		}
	}
	return Move{}, false
}

// extendLine tries the cell just before the start or just after the end of
// a maximal run.
func extendLine(hand []Card, b *Board, l line) (Move, bool) {
	first := l.cells[0]
	last := l.cells[len(l.cells)-1]
	for _, co := range []Coord{
		{Row: first.Row - l.dRow, Col: first.Col - l.dCol},
		{Row: last.Row + l.dRow, Col: last.Col + l.dCol},
	} {
		if idx, ok := playableIndexFor(hand, b.At(co.Row, co.Col)); ok {
			return Move{CardIndex: idx, Row: co.Row, Col: co.Col}, true
		}
	}
	return Move{}, false
}

// oneEyedJackIndex returns the hand index of a one-eyed Jack.
func oneEyedJackIndex(hand []Card) (int, bool) {
	for i, c := range hand {
		if c.IsOneEyedJack() {
			return i, true
		}
	}
	return 0, false
}

// removableChips lists opponent chips that a one-eyed Jack may take.
func removableChips(b *Board, oppColor TeamColor) []Coord {
	var out []Coord
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			cell := b.At(r, c)
			if cell.Chip != nil && cell.Chip.Color == oppColor && !cell.Chip.PartOfSequence {
				out = append(out, Coord{Row: r, Col: c})
			}
		}
	}
	return out
}

// legalMoves enumerates every legal play for the hand: exact placements,
// two-eyed Jack wilds, and one-eyed Jack removals.
func legalMoves(hand []Card, b *Board, oppColor TeamColor) []Move {
	var out []Move
	for i, card := range hand {
		switch {
		case card.IsOneEyedJack():
			for _, co := range removableChips(b, oppColor) {
				out = append(out, Move{CardIndex: i, Row: co.Row, Col: co.Col})
			}
		case card.IsTwoEyedJack():
			for r := 0; r < BoardSize; r++ {
				for c := 0; c < BoardSize; c++ {
					cell := b.At(r, c)
					if !cell.Corner && cell.Chip == nil {
						out = append(out, Move{CardIndex: i, Row: r, Col: c})
					}
				}
			}
		default:
			for r := 0; r < BoardSize; r++ {
				for c := 0; c < BoardSize; c++ {
					cell := b.At(r, c)
					if !cell.Corner && cell.Chip == nil && cell.Card != nil && *cell.Card == card {
						out = append(out, Move{CardIndex: i, Row: r, Col: c})
					}
				}
			}
		}
	}
	return out
}

// SelectMove picks a legal move for the AI, or reports false when no legal
// play exists (which, with a double deck and Jacks always playable, should
// never happen in a well-formed game).
func SelectMove(d Difficulty, hand []Card, b *Board, aiColor, oppColor TeamColor, turnNumber int, rng *rand.Rand) (Move, bool) {
	switch d {
	case Easy:
		return selectEasy(hand, b, aiColor, oppColor, turnNumber, rng)
	case Hard:
		return selectHard(hand, b, aiColor, oppColor, rng)
	default:
		return selectMedium(hand, b, aiColor, oppColor, rng)
	}
}

func randomLegal(hand []Card, b *Board, oppColor TeamColor, rng *rand.Rand) (Move, bool) {
	moves := legalMoves(hand, b, oppColor)
	if len(moves) == 0 {
		return Move{}, false
	}
	return moves[rng.Intn(len(moves))], true
}

// selectEasy: spend a one-eyed Jack as soon as anything is removable (no
// strategic filter, matching the original), extend a line on even turns,
// otherwise play at random.
func selectEasy(hand []Card, b *Board, aiColor, oppColor TeamColor, turnNumber int, rng *rand.Rand) (Move, bool) {
	if idx, ok := oneEyedJackIndex(hand); ok {
		if targets := removableChips(b, oppColor); len(targets) > 0 {
			co := targets[rng.Intn(len(targets))]
			return Move{CardIndex: idx, Row: co.Row, Col: co.Col}, true
		}
	}

	if turnNumber%2 == 0 {
		for _, w := range potentialWindows(b, aiColor) {
			if w.own == 0 {
				continue
			}
			if mv, ok := extendWindow(hand, b, w); ok {
				return mv, true
			}
		}
	}

	return randomLegal(hand, b, oppColor, rng)
}

func selectMedium(hand []Card, b *Board, aiColor, oppColor TeamColor, rng *rand.Rand) (Move, bool) {
	// grow an established line toward ten
	for _, l := range maximalLines(b, aiColor) {
		if n := len(l.cells); n >= 5 && n <= 9 {
			if mv, ok := extendLine(hand, b, l); ok {
				return mv, true
			}
		}
	}

	windows := potentialWindows(b, aiColor)
	for _, w := range windows {
		if w.own >= 3 {
			if mv, ok := extendWindow(hand, b, w); ok {
				return mv, true
			}
		}
	}
	for _, w := range windows {
		if w.own >= 1 {
			if mv, ok := extendWindow(hand, b, w); ok {
				return mv, true
			}
		}
	}

	return randomLegal(hand, b, oppColor, rng)
}

func selectHard(hand []Card, b *Board, aiColor, oppColor TeamColor, rng *rand.Rand) (Move, bool) {
	// 1: push an existing sequence line to ten for the double count
	for _, l := range maximalLines(b, aiColor) {
		if n := len(l.cells); n >= 5 && n <= 9 {
			if mv, ok := extendLine(hand, b, l); ok {
				return mv, true
			}
		}
	}

	windows := potentialWindows(b, aiColor)

	// 2: complete a four-chip window to a sequence
	for _, w := range windows {
		if w.own == 4 {
			if mv, ok := extendWindow(hand, b, w); ok {
				return mv, true
			}
		}
	}

	oppWindows := potentialWindows(b, oppColor)

	// 3: a one-eyed Jack breaks a four-chip opponent threat
	if idx, ok := oneEyedJackIndex(hand); ok {
		for _, w := range oppWindows {
			if w.own < 4 {
				continue
			}
			for _, co := range w.cells {
				cell := b.At(co.Row, co.Col)
				if cell.Chip != nil && cell.Chip.Color == oppColor && !cell.Chip.PartOfSequence {
					return Move{CardIndex: idx, Row: co.Row, Col: co.Col}, true
				}
			}
		}
	}

	// 4: block a growing opponent window with an ordinary card
	for _, w := range oppWindows {
		if w.own < 3 {
			continue
		}
		for _, co := range w.cells {
			cell := b.At(co.Row, co.Col)
			if idx, ok := exactIndexFor(hand, cell); ok {
				return Move{CardIndex: idx, Row: co.Row, Col: co.Col}, true
			}
		}
	}

	// 5: any extension of any own window
	for _, w := range windows {
		if w.own >= 1 {
			if mv, ok := extendWindow(hand, b, w); ok {
				return mv, true
			}
		}
	}

	return randomLegal(hand, b, oppColor, rng)
}
