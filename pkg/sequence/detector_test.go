package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeChips(t *testing.T, b *Board, color TeamColor, coords ...Coord) {
	t.Helper()
	for _, co := range coords {
		cell := b.At(co.Row, co.Col)
		require.NotNil(t, cell)
		require.False(t, cell.Corner, "cannot place a chip on a corner")
		cell.Chip = &Chip{Color: color}
	}
}

func TestDetectHorizontalFive(t *testing.T) {
	b, err := NewBoard(BoardClassic)
	require.NoError(t, err)

	placeChips(t, b, TeamGreen,
		Coord{2, 2}, Coord{2, 3}, Coord{2, 4}, Coord{2, 5}, Coord{2, 6})

	found := DetectNew(b, TeamGreen, nil)
	require.Len(t, found, 1)
	assert.Equal(t, TeamGreen, found[0].TeamColor)
	assert.Len(t, found[0].Cells, 5)

	for _, co := range found[0].Cells {
		assert.True(t, b.At(co.Row, co.Col).Chip.PartOfSequence, "chip at %v should be locked", co)
	}

	// idempotence: nothing new without a board change
	assert.Empty(t, DetectNew(b, TeamGreen, found))
	assert.Equal(t, 1, CountSequences(b, TeamGreen))
}

func TestDetectorIgnoresShortRuns(t *testing.T) {
	b, err := NewBoard(BoardClassic)
	require.NoError(t, err)

	placeChips(t, b, TeamBlue,
		Coord{4, 2}, Coord{4, 3}, Coord{4, 4}, Coord{4, 5})

	assert.Equal(t, 0, CountSequences(b, TeamBlue))
	assert.Empty(t, DetectNew(b, TeamBlue, nil))
}

func TestCornerCountsAsWild(t *testing.T) {
	b, err := NewBoard(BoardClassic)
	require.NoError(t, err)

	// four chips plus the (0,0) corner complete a line of five
	placeChips(t, b, TeamGreen,
		Coord{0, 1}, Coord{0, 2}, Coord{0, 3}, Coord{0, 4})

	require.Equal(t, 1, CountSequences(b, TeamGreen))
	found := DetectNew(b, TeamGreen, nil)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Cells, Coord{0, 0})

	// the corner stays chipless even after marking
	assert.Nil(t, b.At(0, 0).Chip)

	// the same corner is wild for the other team too
	placeChips(t, b, TeamBlue,
		Coord{1, 0}, Coord{2, 0}, Coord{3, 0}, Coord{4, 0})
	assert.Equal(t, 1, CountSequences(b, TeamBlue))
}

func TestTenInARowCountsTwice(t *testing.T) {
	b, err := NewBoard(BoardClassic)
	require.NoError(t, err)

	coords := make([]Coord, 0, BoardSize)
	for c := 0; c < BoardSize; c++ {
		coords = append(coords, Coord{5, c})
	}
	placeChips(t, b, TeamGreen, coords...)

	assert.Equal(t, 2, CountSequences(b, TeamGreen))

	found := DetectNew(b, TeamGreen, nil)
	require.Len(t, found, 2)

	// all ten chips locked
	for c := 0; c < BoardSize; c++ {
		assert.True(t, b.At(5, c).Chip.PartOfSequence)
	}

	// a later run never inflates the count past two
	assert.Equal(t, 2, CountSequences(b, TeamGreen))
	assert.Empty(t, DetectNew(b, TeamGreen, found))
}

func TestCrossingLinesRecordedTogether(t *testing.T) {
	b, err := NewBoard(BoardClassic)
	require.NoError(t, err)

	// the chip at (2,1) completes a horizontal and a vertical line at once
	placeChips(t, b, TeamGreen,
		Coord{2, 2}, Coord{2, 3}, Coord{2, 4}, Coord{2, 5},
		Coord{3, 1}, Coord{4, 1}, Coord{5, 1}, Coord{6, 1},
		Coord{2, 1})

	require.Equal(t, 2, CountSequences(b, TeamGreen))

	found := DetectNew(b, TeamGreen, nil)
	require.Len(t, found, 2, "both crossing lines are recorded on the same move")
	for _, s := range found {
		assert.Equal(t, TeamGreen, s.TeamColor)
		assert.Len(t, s.Cells, 5)
	}

	// all nine chips locked, nothing left to discover
	for _, co := range append(found[0].Cells, found[1].Cells...) {
		assert.True(t, b.At(co.Row, co.Col).Chip.PartOfSequence, "chip at %v should be locked", co)
	}
	assert.Empty(t, DetectNew(b, TeamGreen, found))
}

func TestDetectorBlockedByOpponent(t *testing.T) {
	b, err := NewBoard(BoardClassic)
	require.NoError(t, err)

	placeChips(t, b, TeamGreen,
		Coord{6, 1}, Coord{6, 2}, Coord{6, 3}, Coord{6, 4})
	placeChips(t, b, TeamBlue, Coord{6, 5})
	placeChips(t, b, TeamGreen, Coord{6, 6})

	assert.Equal(t, 0, CountSequences(b, TeamGreen))
}
