package sequence

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit
type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

// Initial returns the single-letter suit code used on the wire ("S", "H", "D", "C").
func (s Suit) Initial() string {
	switch s {
	case Spades:
		return "S"
	case Hearts:
		return "H"
	case Diamonds:
		return "D"
	case Clubs:
		return "C"
	}
	return "?"
}

// Rank represents a card rank
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "T"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Suits and Ranks fix the canonical enumeration order; the deck builder and
// the wire codec both depend on it, so it must never be reordered.
var (
	Suits = []Suit{Spades, Hearts, Diamonds, Clubs}
	Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
)

// Card represents a playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// String encodes the card as "<Rank><SuitInitial>", e.g. "KH" or "TD".
func (c Card) String() string {
	return string(c.Rank) + c.Suit.Initial()
}

// ParseCard is the inverse of String. For any card c, ParseCard(c.String())
// returns c.
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card string %q", s)
	}

	var rank Rank
	switch r := Rank(s[0:1]); r {
	case Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King:
		rank = r
	default:
		return Card{}, fmt.Errorf("invalid rank in card string %q", s)
	}

	var suit Suit
	switch s[1:2] {
	case "S":
		suit = Spades
	case "H":
		suit = Hearts
	case "D":
		suit = Diamonds
	case "C":
		suit = Clubs
	default:
		return Card{}, fmt.Errorf("invalid suit in card string %q", s)
	}

	return Card{Rank: rank, Suit: suit}, nil
}

// IsOneEyedJack reports whether the card is a Jack of spades or hearts. Its
// play removes an opponent chip that is not yet part of a sequence.
func (c Card) IsOneEyedJack() bool {
	return c.Rank == Jack && (c.Suit == Spades || c.Suit == Hearts)
}

// IsTwoEyedJack reports whether the card is a Jack of diamonds or clubs. Its
// play places a chip on any empty non-corner cell.
func (c Card) IsTwoEyedJack() bool {
	return c.Rank == Jack && (c.Suit == Diamonds || c.Suit == Clubs)
}

// IsJack reports whether the card is any Jack. Jacks never appear on the
// board layout and can never be dead cards.
func (c Card) IsJack() bool {
	return c.Rank == Jack
}

// MarshalJSON implements json.Marshaler; cards travel as their string codes.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Card) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCard(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// FormatCards is a helper for displaying a hand in logs.
func FormatCards(cards []Card) string {
	if len(cards) == 0 {
		return "none"
	}
	out := ""
	for i, c := range cards {
		if i > 0 {
			out += " "
		}
		out += c.String()
	}
	return out
}
