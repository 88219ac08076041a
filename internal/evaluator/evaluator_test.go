package evaluator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onfelt/holdemd/internal/deck"
)

// parse builds cards from compact strings like "As Kh Td 5c".
func parse(t *testing.T, s string) []deck.Card {
	t.Helper()
	fields := strings.Fields(s)
	cards := make([]deck.Card, 0, len(fields))
	for _, f := range fields {
		var rank deck.Rank
		switch f[0] {
		case 'A':
			rank = deck.Ace
		case 'K':
			rank = deck.King
		case 'Q':
			rank = deck.Queen
		case 'J':
			rank = deck.Jack
		case 'T':
			rank = deck.Ten
		default:
			rank = deck.Rank(f[0] - '0')
		}
		var suit deck.Suit
		switch f[1] {
		case 's':
			suit = deck.Spades
		case 'h':
			suit = deck.Hearts
		case 'd':
			suit = deck.Diamonds
		case 'c':
			suit = deck.Clubs
		}
		cards = append(cards, deck.NewCard(suit, rank))
	}
	return cards
}

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cards    string
		category Category
		label    string
	}{
		{"royal flush", "As Ks Qs Js Ts", RoyalFlush, "Royal Flush"},
		{"straight flush", "9h 8h 7h 6h 5h", StraightFlush, "Straight Flush, Nine high"},
		{"steel wheel", "5d 4d 3d 2d Ad", StraightFlush, "Straight Flush, Five high"},
		{"four of a kind", "Qs Qh Qd Qc 2s", FourOfAKind, "Four of a Kind, Queens"},
		{"full house", "Ks Kh Kd 4s 4h", FullHouse, "Full House, Kings over Fours"},
		{"flush", "Ah Jh 9h 6h 3h", Flush, "Flush, Ace high"},
		{"straight", "Ts 9h 8d 7c 6s", Straight, "Straight, Ten high"},
		{"wheel", "5s 4h 3d 2c As", Straight, "Straight, Five high"},
		{"broadway", "As Kh Qd Jc Ts", Straight, "Straight, Ace high"},
		{"three of a kind", "7s 7h 7d Kc 2s", ThreeOfAKind, "Three of a Kind, Sevens"},
		{"two pair", "As Ah Ks Kh 3d", TwoPair, "Two Pair, Aces and Kings"},
		{"pair", "Qs Qh 9d 6c 3s", Pair, "Pair of Queens"},
		{"pair of sixes", "6s 6h 9d Kc 3s", Pair, "Pair of Sixes"},
		{"high card", "Ah Kd 9s 6c 3h", HighCard, "High Card, Ace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := Evaluate(parse(t, tt.cards))
			require.NoError(t, err)
			assert.Equal(t, tt.category, r.Category)
			assert.Equal(t, tt.label, r.Label)
		})
	}
}

func TestEvaluateTooFewCards(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(parse(t, "As Ks Qs Js"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestEvaluateSevenCards(t *testing.T) {
	t.Parallel()

	// Board pairs the hole cards into a full house hidden inside 7 cards.
	r, err := Evaluate(parse(t, "As Ah 2c Ad Kh Ks 7d"))
	require.NoError(t, err)
	assert.Equal(t, FullHouse, r.Category)
	assert.Equal(t, "Full House, Aces over Kings", r.Label)

	// Flush beats the straight also present in these 7 cards.
	r, err = Evaluate(parse(t, "9h 8h 7h 6s 5s 2h 3h"))
	require.NoError(t, err)
	assert.Equal(t, Flush, r.Category)
}

func TestCompareOrdering(t *testing.T) {
	t.Parallel()

	// Ascending strength; every later hand must beat every earlier one.
	hands := []string{
		"Ah Kd 9s 6c 3h", // high card
		"Qs Qh 9d 6c 3s", // pair
		"As Ah Ks Kh 3d", // two pair
		"7s 7h 7d Kc 2s", // trips
		"5s 4h 3d 2c As", // wheel
		"Ts 9h 8d 7c 6s", // ten-high straight
		"As Kh Qd Jc Ts", // broadway
		"Ah Jh 9h 6h 3h", // flush
		"Ks Kh Kd 4s 4h", // full house
		"Qs Qh Qd Qc 2s", // quads
		"5d 4d 3d 2d Ad", // steel wheel
		"9h 8h 7h 6h 5h", // straight flush
		"As Ks Qs Js Ts", // royal
	}

	rankings := make([]Ranking, len(hands))
	for i, h := range hands {
		r, err := Evaluate(parse(t, h))
		require.NoError(t, err)
		rankings[i] = r
	}

	for i := range rankings {
		for j := range rankings {
			got := Compare(rankings[i], rankings[j])
			switch {
			case i < j:
				assert.Equal(t, -1, got, "hand %d vs %d", i, j)
			case i > j:
				assert.Equal(t, 1, got, "hand %d vs %d", i, j)
			default:
				assert.Equal(t, 0, got, "hand %d vs itself", i)
			}
		}
	}
}

func TestCompareKickers(t *testing.T) {
	t.Parallel()

	aceKicker, err := Evaluate(parse(t, "Qs Qh Ad 6c 3s"))
	require.NoError(t, err)
	kingKicker, err := Evaluate(parse(t, "Qd Qc Kd 6h 3d"))
	require.NoError(t, err)

	assert.Equal(t, 1, Compare(aceKicker, kingKicker))
	assert.Equal(t, -1, Compare(kingKicker, aceKicker))
}

func TestCompareGenuineTie(t *testing.T) {
	t.Parallel()

	a, err := Evaluate(parse(t, "Qs Qh 9d 6c 3s"))
	require.NoError(t, err)
	b, err := Evaluate(parse(t, "Qd Qc 9h 6s 3d"))
	require.NoError(t, err)
	assert.Equal(t, 0, Compare(a, b))
}

func TestWheelLosesToSixHighStraight(t *testing.T) {
	t.Parallel()

	wheel, err := Evaluate(parse(t, "5s 4h 3d 2c As"))
	require.NoError(t, err)
	six, err := Evaluate(parse(t, "6s 5h 4d 3c 2s"))
	require.NoError(t, err)
	assert.Equal(t, -1, Compare(wheel, six))
}
