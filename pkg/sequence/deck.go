package sequence

import (
	"crypto/rand"
	"encoding/binary"
)

// DeckSize is the number of cards in the double deck.
const DeckSize = 104

// mulberry32 is a tiny deterministic PRNG. Clients reconstruct the deck
// from (seed, cursor) on reconnection, so the recipe must match the
// reference bit for bit: do not touch the constants or the operation order.
type mulberry32 struct {
	state uint32
}

func newMulberry32(seed uint32) *mulberry32 {
	return &mulberry32{state: seed}
}

// next yields a float64 in [0, 1).
func (m *mulberry32) next() float64 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Shuffle builds the 104-card double deck (two standard decks in Suits x
// Ranks order, concatenated) and Fisher-Yates shuffles it with a seeded
// mulberry32. The same seed always produces the same deck.
func Shuffle(seed uint32) []Card {
	deck := make([]Card, 0, DeckSize)
	for copies := 0; copies < 2; copies++ {
		for _, suit := range Suits {
			for _, rank := range Ranks {
				deck = append(deck, Card{Rank: rank, Suit: suit})
			}
		}
	}

	rng := newMulberry32(seed)
	for i := len(deck) - 1; i >= 1; i-- {
		j := int(rng.next() * float64(i+1))
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// HandSize returns the per-player hand size target: 7 for 2 players, 6
// otherwise.
func HandSize(playerCount int) int {
	if playerCount == 2 {
		return 7
	}
	return 6
}

// GenerateSeed returns a uniformly random 31-bit positive integer.
func GenerateSeed() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return binary.BigEndian.Uint32(buf[:]) & 0x7FFFFFFF
}
