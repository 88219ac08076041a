package game

import (
	"github.com/onfelt/holdemd/internal/chips"
)

// BettingRound holds the state of one street's betting. The current bet is
// always the highest round contribution among seats still in the hand; the
// reopen rule is tracked per seat: a raise must meet MinRaise to restore the
// right to raise for seats that already acted at the prior level.
type BettingRound struct {
	CurrentBet    chips.Amount
	MinRaise      chips.Amount
	LastAggressor int // seat index, -1 when nobody has been aggressive

	bigBlind chips.Amount
	acted    map[int]bool // seats that have voluntarily acted this round
	noRaise  map[int]bool // seats whose raising right is spent until a full raise
}

// NewBettingRound starts a fresh street. MinRaise is never below the big
// blind.
func NewBettingRound(bigBlind chips.Amount) *BettingRound {
	return &BettingRound{
		MinRaise:      bigBlind,
		LastAggressor: -1,
		bigBlind:      bigBlind,
		acted:         make(map[int]bool),
		noRaise:       make(map[int]bool),
	}
}

// MarkActed records a voluntary action by the seat. Blind posts do not count,
// which is what gives the big blind its preflop option.
func (br *BettingRound) MarkActed(seat int) {
	br.acted[seat] = true
	br.noRaise[seat] = true
}

// ApplyAggression moves the current bet to newTotal for the given seat. An
// increment meeting MinRaise reopens the action (and becomes the new
// MinRaise); a short all-in advances the bet for calling purposes only.
func (br *BettingRound) ApplyAggression(seat int, newTotal chips.Amount) {
	delta := newTotal - br.CurrentBet
	if delta <= 0 {
		return
	}
	if delta >= br.MinRaise {
		br.MinRaise = delta
		br.noRaise = make(map[int]bool)
	}
	br.CurrentBet = newTotal
	br.LastAggressor = seat
	br.noRaise[seat] = true
}

// MayRaise reports whether the seat still holds the right to raise.
func (br *BettingRound) MayRaise(seat int) bool {
	return !br.noRaise[seat]
}

// HasActed reports whether the seat has voluntarily acted this round.
func (br *BettingRound) HasActed(seat int) bool {
	return br.acted[seat]
}

// Complete reports whether the betting round is over: every seat that can
// still act has acted at least once and matched the current bet. Seats that
// are folded or all-in are excluded, which covers the short all-in case.
func (br *BettingRound) Complete(seats []*Seat) bool {
	for _, s := range seats {
		if s == nil || !s.CanAct() {
			continue
		}
		if !br.acted[s.Index] {
			return false
		}
		if s.RoundBet != br.CurrentBet {
			return false
		}
	}
	return true
}

// LegalActions computes the actions available to the seat under the current
// bet, its round contribution and its stack.
func (br *BettingRound) LegalActions(s *Seat) []LegalAction {
	if !s.CanAct() {
		return nil
	}

	actions := []LegalAction{{Action: Fold}}
	toCall := br.CurrentBet - s.RoundBet
	maxTotal := s.RoundBet + s.Stack

	if toCall == 0 {
		actions = append(actions, LegalAction{Action: Check})
		if br.CurrentBet == 0 && s.Stack > 0 {
			minBet := br.bigBlind
			if minBet > maxTotal {
				minBet = maxTotal // short-stacked open is an all-in bet
			}
			actions = append(actions, LegalAction{Action: Bet, Min: minBet, Max: maxTotal})
		} else if br.CurrentBet > 0 && s.Stack > 0 && br.MayRaise(s.Index) {
			// The big blind's option: matched but not yet acted.
			minRaise := br.CurrentBet + br.MinRaise
			if minRaise > maxTotal {
				minRaise = maxTotal
			}
			actions = append(actions, LegalAction{Action: Raise, Min: minRaise, Max: maxTotal})
		}
	} else {
		if toCall <= s.Stack {
			actions = append(actions, LegalAction{Action: Call, Min: toCall, Max: toCall})
		}
		if s.Stack > toCall && br.MayRaise(s.Index) {
			minRaise := br.CurrentBet + br.MinRaise
			if minRaise > maxTotal {
				minRaise = maxTotal // all-in below the minimum increment
			}
			actions = append(actions, LegalAction{Action: Raise, Min: minRaise, Max: maxTotal})
		}
	}

	// Shoving above the call amount is aggression and needs the raise
	// right; a short-stack shove at or below the call amount is always
	// available as a call for less.
	if s.Stack > 0 && (toCall >= s.Stack || br.MayRaise(s.Index)) {
		actions = append(actions, LegalAction{Action: AllIn, Min: maxTotal, Max: maxTotal})
	}
	return actions
}

// allowed reports whether the action (with total round bet amount for
// bet/raise) is legal right now for the seat.
func (br *BettingRound) allowed(s *Seat, action Action, amount chips.Amount) bool {
	for _, la := range br.LegalActions(s) {
		if la.Action != action {
			continue
		}
		switch action {
		case Bet, Raise:
			return amount >= la.Min && amount <= la.Max
		default:
			return true
		}
	}
	return false
}
