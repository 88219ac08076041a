// Package evaluator ranks Texas Hold'em hands. Given 5 to 7 cards it finds
// the best 5-card hand and returns a Ranking that is comparable under a total
// order via Compare.
package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/onfelt/holdemd/internal/deck"
)

// Category is one of the ten standard hand categories, ordered weakest to
// strongest so the numeric value participates directly in comparisons.
type Category int

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the display name for a category.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Ranking is the canonical evaluation of a 5-card hand. Primary holds the
// cards that make the category (pair cards, straight run, ...) in descending
// significance; Kickers hold the remaining tie-breakers.
type Ranking struct {
	Category Category
	Primary  []deck.Card
	Kickers  []deck.Card
	Label    string
}

// ErrInvalidInput is returned when fewer than 5 cards are supplied. That is a
// programmer error: the engine never evaluates before the flop is complete.
var ErrInvalidInput = errors.New("evaluator: need at least 5 cards")

// Evaluate returns the best 5-card ranking over the given 5-7 cards. From 7
// cards the result equals the maximum over all 21 5-card subsets.
func Evaluate(cards []deck.Card) (Ranking, error) {
	switch {
	case len(cards) < 5:
		return Ranking{}, fmt.Errorf("%w: got %d", ErrInvalidInput, len(cards))
	case len(cards) == 5:
		return evaluate5(cards), nil
	}

	var best Ranking
	first := true
	subset := make([]deck.Card, 5)
	forEachSubset5(cards, subset, func() {
		r := evaluate5(subset)
		if first || Compare(r, best) > 0 {
			best = r
			first = false
		}
	})
	return best, nil
}

// forEachSubset5 invokes fn for every 5-card subset of cards, reusing dst.
func forEachSubset5(cards, dst []deck.Card, fn func()) {
	n := len(cards)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == 5 {
			fn()
			return
		}
		for i := start; i <= n-(5-depth); i++ {
			dst[depth] = cards[i]
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}

// Compare returns -1, 0 or +1 ordering two rankings: category first, then the
// descending rank values of primary cards followed by kickers. The wheel
// straight sorts with its ace last, so its high card compares as 5.
func Compare(a, b Ranking) int {
	if a.Category != b.Category {
		if a.Category < b.Category {
			return -1
		}
		return 1
	}
	av := tiebreak(a)
	bv := tiebreak(b)
	for i := 0; i < len(av) && i < len(bv); i++ {
		if av[i] != bv[i] {
			if av[i] < bv[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func tiebreak(r Ranking) []int {
	vals := make([]int, 0, len(r.Primary)+len(r.Kickers))
	for _, c := range r.Primary {
		vals = append(vals, c.Value())
	}
	for _, c := range r.Kickers {
		vals = append(vals, c.Value())
	}
	return vals
}

func evaluate5(in []deck.Card) Ranking {
	cards := make([]deck.Card, 5)
	copy(cards, in)
	sort.Slice(cards, func(i, j int) bool { return cards[i].Value() > cards[j].Value() })

	flush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	straight, wheel := detectStraight(cards)
	if straight && wheel {
		// Reorder to 5-4-3-2-A so the high card compares as 5.
		cards = append(cards[1:5:5], cards[0])
	}

	switch {
	case flush && straight && !wheel && cards[0].Rank == deck.Ace:
		return Ranking{Category: RoyalFlush, Primary: cards, Label: "Royal Flush"}
	case flush && straight:
		return Ranking{
			Category: StraightFlush,
			Primary:  cards,
			Label:    fmt.Sprintf("Straight Flush, %s high", rankName(cards[0].Rank)),
		}
	case flush:
		return Ranking{
			Category: Flush,
			Primary:  cards,
			Label:    fmt.Sprintf("Flush, %s high", rankName(cards[0].Rank)),
		}
	case straight:
		return Ranking{
			Category: Straight,
			Primary:  cards,
			Label:    fmt.Sprintf("Straight, %s high", rankName(cards[0].Rank)),
		}
	}

	return evaluateGroups(cards)
}

// detectStraight expects cards sorted descending by value.
func detectStraight(cards []deck.Card) (straight, wheel bool) {
	for i := 1; i < 5; i++ {
		if cards[i-1].Value() == cards[i].Value() {
			return false, false // paired hands are never straights
		}
	}
	if cards[0].Value()-cards[4].Value() == 4 {
		return true, false
	}
	// Wheel: A-5-4-3-2 sorts as 14,5,4,3,2.
	if cards[0].Rank == deck.Ace && cards[1].Rank == deck.Five && cards[1].Value()-cards[4].Value() == 3 {
		return true, true
	}
	return false, false
}

// evaluateGroups handles the non-sequential categories by selecting groups in
// descending (count, rank value) order.
func evaluateGroups(cards []deck.Card) Ranking {
	type group struct {
		rank  deck.Rank
		cards []deck.Card
	}
	byRank := map[deck.Rank][]deck.Card{}
	for _, c := range cards {
		byRank[c.Rank] = append(byRank[c.Rank], c)
	}
	groups := make([]group, 0, len(byRank))
	for r, cs := range byRank {
		groups = append(groups, group{rank: r, cards: cs})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].cards) != len(groups[j].cards) {
			return len(groups[i].cards) > len(groups[j].cards)
		}
		return groups[i].rank > groups[j].rank
	})

	flatten := func(gs []group) []deck.Card {
		var out []deck.Card
		for _, g := range gs {
			out = append(out, g.cards...)
		}
		return out
	}

	switch {
	case len(groups[0].cards) == 4:
		return Ranking{
			Category: FourOfAKind,
			Primary:  groups[0].cards,
			Kickers:  flatten(groups[1:]),
			Label:    fmt.Sprintf("Four of a Kind, %s", rankPlural(groups[0].rank)),
		}
	case len(groups[0].cards) == 3 && len(groups[1].cards) == 2:
		return Ranking{
			Category: FullHouse,
			Primary:  flatten(groups[:2]),
			Label:    fmt.Sprintf("Full House, %s over %s", rankPlural(groups[0].rank), rankPlural(groups[1].rank)),
		}
	case len(groups[0].cards) == 3:
		return Ranking{
			Category: ThreeOfAKind,
			Primary:  groups[0].cards,
			Kickers:  flatten(groups[1:]),
			Label:    fmt.Sprintf("Three of a Kind, %s", rankPlural(groups[0].rank)),
		}
	case len(groups[0].cards) == 2 && len(groups[1].cards) == 2:
		return Ranking{
			Category: TwoPair,
			Primary:  flatten(groups[:2]),
			Kickers:  flatten(groups[2:]),
			Label:    fmt.Sprintf("Two Pair, %s and %s", rankPlural(groups[0].rank), rankPlural(groups[1].rank)),
		}
	case len(groups[0].cards) == 2:
		return Ranking{
			Category: Pair,
			Primary:  groups[0].cards,
			Kickers:  flatten(groups[1:]),
			Label:    fmt.Sprintf("Pair of %s", rankPlural(groups[0].rank)),
		}
	default:
		return Ranking{
			Category: HighCard,
			Primary:  cards[:1],
			Kickers:  cards[1:],
			Label:    fmt.Sprintf("High Card, %s", rankName(cards[0].Rank)),
		}
	}
}

func rankName(r deck.Rank) string {
	switch r {
	case deck.Ace:
		return "Ace"
	case deck.King:
		return "King"
	case deck.Queen:
		return "Queen"
	case deck.Jack:
		return "Jack"
	case deck.Ten:
		return "Ten"
	case deck.Nine:
		return "Nine"
	case deck.Eight:
		return "Eight"
	case deck.Seven:
		return "Seven"
	case deck.Six:
		return "Six"
	case deck.Five:
		return "Five"
	case deck.Four:
		return "Four"
	case deck.Three:
		return "Three"
	case deck.Two:
		return "Two"
	default:
		return "?"
	}
}

func rankPlural(r deck.Rank) string {
	if r == deck.Six {
		return "Sixes"
	}
	return rankName(r) + "s"
}
