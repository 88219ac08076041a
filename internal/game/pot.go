package game

import (
	"sort"

	"github.com/onfelt/holdemd/internal/chips"
)

// PotType distinguishes the main pot from side pots.
type PotType string

const (
	MainPot PotType = "main"
	SidePot PotType = "side"
)

// Pot is one layer of the pot decomposition: an amount and the set of seats
// eligible to win it. Eligible sets shrink strictly from one pot to the next.
type Pot struct {
	Amount   chips.Amount
	Eligible []int
	Type     PotType
}

// Contribution is one seat's input to pot construction.
type Contribution struct {
	Seat   int
	Amount chips.Amount
	Folded bool
}

// ReturnUncalled computes the uncalled portion of the highest contribution:
// if one non-folded seat put in more than everyone else matched, the excess
// goes back to that seat before pots are built. Returns the adjusted
// contributions, the refunded seat and the refund amount (seat -1 when none).
func ReturnUncalled(contribs []Contribution) ([]Contribution, int, chips.Amount) {
	top := chips.Amount(0)
	topSeat := -1
	for _, c := range contribs {
		if !c.Folded && c.Amount > top {
			top, topSeat = c.Amount, c.Seat
		}
	}
	// Folded seats still cap the refund: their dead chips were a partial call.
	second := chips.Amount(0)
	for _, c := range contribs {
		if c.Seat != topSeat && c.Amount > second {
			second = c.Amount
		}
	}
	if topSeat == -1 || top <= second {
		return contribs, -1, 0
	}

	refund := top - second
	out := make([]Contribution, len(contribs))
	copy(out, contribs)
	for i := range out {
		if out[i].Seat == topSeat {
			out[i].Amount -= refund
		}
	}
	return out, topSeat, refund
}

// BuildPots decomposes contributions into an ordered main pot and side pots.
// For each distinct contribution level c_k the pot amount is
// (c_k - c_{k-1}) x |{seats with contribution >= c_k}| and the eligible set is
// the non-folded seats at or above that level. Pots with an empty eligible
// set are folded into the previous pot. The amounts always sum to the total
// contributed.
func BuildPots(contribs []Contribution) []Pot {
	levelSet := map[chips.Amount]bool{}
	for _, c := range contribs {
		if c.Amount > 0 {
			levelSet[c.Amount] = true
		}
	}
	if len(levelSet) == 0 {
		return nil
	}
	levels := make([]chips.Amount, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []Pot
	prev := chips.Amount(0)
	for _, level := range levels {
		pot := Pot{Type: SidePot}
		for _, c := range contribs {
			if c.Amount >= level {
				pot.Amount += level - prev
			} else if c.Amount > prev {
				pot.Amount += c.Amount - prev
			}
			if !c.Folded && c.Amount >= level {
				pot.Eligible = append(pot.Eligible, c.Seat)
			}
		}
		sort.Ints(pot.Eligible)

		if len(pot.Eligible) == 0 && len(pots) > 0 {
			// Dead layer (everyone above folded): merge down.
			pots[len(pots)-1].Amount += pot.Amount
		} else if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		prev = level
	}

	// Adjacent pots with identical eligibility collapse into one.
	merged := pots[:0]
	for _, pot := range pots {
		if len(merged) > 0 && equalSeats(merged[len(merged)-1].Eligible, pot.Eligible) {
			merged[len(merged)-1].Amount += pot.Amount
			continue
		}
		merged = append(merged, pot)
	}
	if len(merged) > 0 {
		merged[0].Type = MainPot
	}
	return merged
}

func equalSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PotWinner records one seat's share of one pot.
type PotWinner struct {
	Seat   int
	Amount chips.Amount
}

// DistributePot splits a pot among the winning seats: floor division for
// everyone, with the remainder handed out chip by chip in ascending seat
// order starting from the seat left of the dealer.
func DistributePot(pot Pot, winners []int, dealerSeat, maxSeats int) []PotWinner {
	if len(winners) == 0 {
		return nil
	}
	ordered := append([]int(nil), winners...)
	sort.Slice(ordered, func(i, j int) bool {
		return seatDistance(dealerSeat, ordered[i], maxSeats) < seatDistance(dealerSeat, ordered[j], maxSeats)
	})

	share := pot.Amount / chips.Amount(len(winners))
	remainder := pot.Amount % chips.Amount(len(winners))

	out := make([]PotWinner, 0, len(ordered))
	for _, seat := range ordered {
		amount := share
		if remainder > 0 {
			amount++
			remainder--
		}
		out = append(out, PotWinner{Seat: seat, Amount: amount})
	}
	return out
}

// seatDistance is the clockwise distance from the seat left of the dealer.
func seatDistance(dealerSeat, seat, maxSeats int) int {
	return ((seat - dealerSeat - 1) + 2*maxSeats) % maxSeats
}
