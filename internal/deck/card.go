// Package deck provides playing card types, the canonical 52-card encoding
// used by the mental poker protocol, and a locally shuffled deck for tables
// running without multi-party shuffling.
package deck

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit.
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit.
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

func parseSuit(s string) (Suit, error) {
	switch s {
	case "♠", "s":
		return Spades, nil
	case "♥", "h":
		return Hearts, nil
	case "♦", "d":
		return Diamonds, nil
	case "♣", "c":
		return Clubs, nil
	}
	return 0, fmt.Errorf("unknown suit %q", s)
}

// Rank represents a card rank. Aces are high (14) except in the wheel
// straight, which the evaluator handles.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank.
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Nine:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "10"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

func parseRank(s string) (Rank, error) {
	switch s {
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	case "T", "10":
		return Ten, nil
	}
	if len(s) == 1 && s[0] >= '2' && s[0] <= '9' {
		return Rank(s[0] - '0'), nil
	}
	return 0, fmt.Errorf("unknown rank %q", s)
}

// Card represents a playing card.
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card.
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g. "A♠").
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Value returns the numeric rank value for comparisons. Aces are 14.
func (c Card) Value() int {
	return int(c.Rank)
}

// Index returns the canonical position of the card in [0, 52):
// suit*13 + (rank-2), suits ordered ♠ ♥ ♦ ♣. This encoding seeds the
// mental poker deck and must match what clients encrypt.
func (c Card) Index() int {
	return int(c.Suit)*13 + int(c.Rank-Two)
}

// FromIndex is the inverse of Index. It returns an error for values outside
// [0, 52).
func FromIndex(i int) (Card, error) {
	if i < 0 || i >= 52 {
		return Card{}, fmt.Errorf("card index %d out of range", i)
	}
	return Card{Suit: Suit(i / 13), Rank: Rank(i%13) + Two}, nil
}

// wireCard is the {suit, rank} record used on the wire.
type wireCard struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// MarshalJSON encodes the card as a {suit, rank} record.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCard{Suit: c.Suit.String(), Rank: c.Rank.String()})
}

// UnmarshalJSON decodes a {suit, rank} record.
func (c *Card) UnmarshalJSON(data []byte) error {
	var w wireCard
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	suit, err := parseSuit(w.Suit)
	if err != nil {
		return err
	}
	rank, err := parseRank(w.Rank)
	if err != nil {
		return err
	}
	c.Suit, c.Rank = suit, rank
	return nil
}
