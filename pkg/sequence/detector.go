package sequence

// Coord is a board coordinate inside a sequence record.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Sequence is a recorded 5-in-a-row (or half of a 10-in-a-row) for a team.
type Sequence struct {
	TeamColor TeamColor `json:"teamColor"`
	Cells     []Coord   `json:"cells"`
}

// The four scan directions: horizontal, vertical, both diagonals.
var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// belongs reports whether a cell counts toward color's lines. Corners are
// wild for every team.
func belongs(cell *Cell, color TeamColor) bool {
	if cell == nil {
		return false
	}
	if cell.Corner {
		return true
	}
	return cell.Chip != nil && cell.Chip.Color == color
}

// line is a maximal contiguous run of color-or-corner cells, keyed by its
// start coordinate and direction.
type line struct {
	cells []Coord
	dRow  int
	dCol  int
}

// sequencesIn converts a run length into a sequence count: 5..9 cells is
// one sequence, 10 cells is two.
func (l line) sequencesIn() int {
	switch n := len(l.cells); {
	case n >= BoardSize:
		return 2
	case n >= 5:
		return 1
	}
	return 0
}

// maximalLines enumerates every maximal run of length >= 5 for a team,
// deduplicated by (startRow, startCol, dRow, dCol).
func maximalLines(b *Board, color TeamColor) []line {
	var lines []line
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if !belongs(b.At(r, c), color) {
				continue
			}
			for _, d := range directions {
				// only start counting at the earliest cell of the run
				if belongs(b.At(r-d[0], c-d[1]), color) {
					continue
				}
				run := line{dRow: d[0], dCol: d[1]}
				for rr, cc := r, c; belongs(b.At(rr, cc), color); rr, cc = rr+d[0], cc+d[1] {
					run.cells = append(run.cells, Coord{Row: rr, Col: cc})
				}
				if len(run.cells) >= 5 {
					lines = append(lines, run)
				}
			}
		}
	}
	return lines
}

// CountSequences counts every sequence the board currently holds for a
// team, whether or not it has been recorded yet.
func CountSequences(b *Board, color TeamColor) int {
	total := 0
	for _, l := range maximalLines(b, color) {
		total += l.sequencesIn()
	}
	return total
}

// hasFreshChip reports whether a run holds at least one chip that is not
// yet locked into a sequence. Corners never count as fresh.
func hasFreshChip(b *Board, l line) bool {
	for _, co := range l.cells {
		cell := b.At(co.Row, co.Col)
		if cell.Chip != nil && !cell.Chip.PartOfSequence {
			return true
		}
	}
	return false
}

// markLine locks every chip of a discovered run, then traces the full
// maximal line in each of the four directions through the run's first cell
// and locks those chips too. A 10-line thereby locks all ten chips.
func markLine(b *Board, l line, color TeamColor) {
	for _, co := range l.cells {
		if cell := b.At(co.Row, co.Col); cell.Chip != nil {
			cell.Chip.PartOfSequence = true
		}
	}

	first := l.cells[0]
	for _, d := range directions {
		// rewind to the earliest cell of this direction's run
		r, c := first.Row, first.Col
		for belongs(b.At(r-d[0], c-d[1]), color) {
			r, c = r-d[0], c-d[1]
		}
		run := line{dRow: d[0], dCol: d[1]}
		for rr, cc := r, c; belongs(b.At(rr, cc), color); rr, cc = rr+d[0], cc+d[1] {
			run.cells = append(run.cells, Coord{Row: rr, Col: cc})
		}
		if len(run.cells) < 5 {
			continue
		}
		for _, co := range run.cells {
			if cell := b.At(co.Row, co.Col); cell.Chip != nil {
				cell.Chip.PartOfSequence = true
			}
		}
	}
}

// DetectNew compares the board's total sequence count for a team against
// the count already recorded, emits one Sequence record per increment and
// marks the discovered cells. Running it twice without an intervening
// board change discovers nothing.
func DetectNew(b *Board, color TeamColor, recorded []Sequence) []Sequence {
	already := 0
	for _, s := range recorded {
		if s.TeamColor == color {
			already++
		}
	}

	delta := CountSequences(b, color) - already
	if delta <= 0 {
		return nil
	}

	// Freshness must be judged against the board as it stood before any
	// marking: one chip can complete two crossing lines that share a cell,
	// and marking the first line would lock the shared chip before the
	// second line's check runs. Collect every fresh line first.
	var fresh []line
	for _, l := range maximalLines(b, color) {
		if l.sequencesIn() > 0 && hasFreshChip(b, l) {
			fresh = append(fresh, l)
		}
	}

	var found []Sequence
	for _, l := range fresh {
		if delta <= 0 {
			break
		}
		emit := l.sequencesIn()
		if emit > delta {
			emit = delta
		}
		for i := 0; i < emit; i++ {
			cells := make([]Coord, len(l.cells))
			copy(cells, l.cells)
			found = append(found, Sequence{TeamColor: color, Cells: cells})
		}
		markLine(b, l, color)
		delta -= emit
	}
	return found
}
