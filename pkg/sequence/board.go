package sequence

import (
	"fmt"
)

// BoardSize is the board edge length. All layouts are 10x10.
const BoardSize = 10

// BoardType selects one of the static board layouts.
type BoardType string

const (
	BoardClassic     BoardType = "classic"
	BoardAlternative BoardType = "alternative"
	BoardAdvanced    BoardType = "advanced"
)

// ParseBoardType validates a client-supplied board type string.
func ParseBoardType(s string) (BoardType, error) {
	switch bt := BoardType(s); bt {
	case BoardClassic, BoardAlternative, BoardAdvanced:
		return bt, nil
	}
	return "", fmt.Errorf("unknown board type %q", s)
}

// TeamColor is the color displayed for a team's chips. The server assigns
// green to team 1 and blue to team 2; red exists for a client-only local
// mode and is never assigned here.
type TeamColor string

const (
	TeamGreen TeamColor = "green"
	TeamBlue  TeamColor = "blue"
	TeamRed   TeamColor = "red"
)

// Chip is a placed team marker on a cell.
type Chip struct {
	Color          TeamColor `json:"color"`
	PartOfSequence bool      `json:"partOfSequence"`
}

// Cell is one board space. Corner cells carry no card and never hold a
// chip, but count as every team's color for sequence detection.
type Cell struct {
	Card   *Card `json:"card"`
	Corner bool  `json:"corner"`
	Chip   *Chip `json:"chip"`
	Row    int   `json:"row"`
	Col    int   `json:"col"`
}

// Board is the 10x10 playing surface.
type Board [BoardSize][BoardSize]Cell

// The three static layouts. "--" marks the four free corners. Every
// non-Jack card appears exactly twice per layout; Jacks never appear.
var layouts = map[BoardType][BoardSize][BoardSize]string{
	BoardClassic: {
		{"--", "2S", "3S", "4S", "5S", "6S", "7S", "8S", "9S", "--"},
		{"6C", "5C", "4C", "3C", "2C", "AH", "KH", "QH", "TH", "TS"},
		{"7C", "AS", "2D", "3D", "4D", "5D", "6D", "7D", "9H", "QS"},
		{"8C", "KS", "6C", "5C", "4C", "3C", "2C", "8D", "8H", "KS"},
		{"9C", "QS", "7C", "6H", "5H", "4H", "AH", "9D", "7H", "AS"},
		{"TC", "TS", "8C", "7H", "2H", "3H", "KH", "TD", "6H", "2D"},
		{"QC", "9S", "9C", "8H", "9H", "TH", "QH", "QD", "5H", "3D"},
		{"KC", "8S", "TC", "QC", "KC", "AC", "AD", "KD", "4H", "4D"},
		{"AC", "7S", "6S", "5S", "4S", "3S", "2S", "2H", "3H", "5D"},
		{"--", "AD", "KD", "QD", "TD", "9D", "8D", "7D", "6D", "--"},
	},
	BoardAlternative: {
		{"--", "AS", "2S", "3S", "4S", "5S", "6S", "7S", "8S", "--"},
		{"9S", "TS", "QS", "KS", "AH", "2H", "3H", "4H", "5H", "6H"},
		{"7H", "8H", "9H", "TH", "QH", "KH", "AD", "2D", "3D", "4D"},
		{"5D", "6D", "7D", "8D", "9D", "TD", "QD", "KD", "AC", "2C"},
		{"3C", "4C", "5C", "6C", "7C", "8C", "9C", "TC", "QC", "KC"},
		{"KC", "QC", "TC", "9C", "8C", "7C", "6C", "5C", "4C", "3C"},
		{"2C", "AC", "KD", "QD", "TD", "9D", "8D", "7D", "6D", "5D"},
		{"4D", "3D", "2D", "AD", "KH", "QH", "TH", "9H", "8H", "7H"},
		{"6H", "5H", "4H", "3H", "2H", "AH", "KS", "QS", "TS", "9S"},
		{"--", "8S", "7S", "6S", "5S", "4S", "3S", "2S", "AS", "--"},
	},
	BoardAdvanced: {
		{"--", "AS", "AH", "AD", "AC", "2S", "2H", "2D", "2C", "--"},
		{"8C", "9S", "9H", "9D", "9C", "TS", "TH", "TD", "TC", "3S"},
		{"8D", "3C", "4S", "4H", "4D", "4C", "5S", "5H", "QS", "3H"},
		{"8H", "3D", "8C", "9S", "9H", "9D", "9C", "5D", "QH", "3D"},
		{"8S", "3H", "8D", "QC", "KS", "KH", "TS", "5C", "QD", "3C"},
		{"7C", "3S", "8H", "QD", "KC", "KD", "TH", "6S", "QC", "4S"},
		{"7D", "2C", "8S", "QH", "QS", "TC", "TD", "6H", "KS", "4H"},
		{"7H", "2D", "7C", "7D", "7H", "7S", "6C", "6D", "KH", "4D"},
		{"7S", "2H", "2S", "AC", "AD", "AH", "AS", "KC", "KD", "4C"},
		{"--", "6C", "6D", "6H", "6S", "5C", "5D", "5H", "5S", "--"},
	},
}

// Layout returns the raw card-code grid for a board type.
func Layout(bt BoardType) ([BoardSize][BoardSize]string, error) {
	grid, ok := layouts[bt]
	if !ok {
		return grid, fmt.Errorf("unknown board type %q", bt)
	}
	return grid, nil
}

// NewBoard materializes an empty board for the given layout.
func NewBoard(bt BoardType) (*Board, error) {
	grid, err := Layout(bt)
	if err != nil {
		return nil, err
	}

	b := &Board{}
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			cell := Cell{Row: r, Col: c}
			if grid[r][c] == "--" {
				cell.Corner = true
			} else {
				card, err := ParseCard(grid[r][c])
				if err != nil {
					return nil, fmt.Errorf("layout %s at (%d,%d): %w", bt, r, c, err)
				}
				cell.Card = &card
			}
			b[r][c] = cell
		}
	}
	return b, nil
}

// InBounds reports whether (row, col) lies on the board.
func InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// At returns the cell at (row, col), or nil when out of bounds.
func (b *Board) At(row, col int) *Cell {
	if !InBounds(row, col) {
		return nil
	}
	return &b[row][col]
}
