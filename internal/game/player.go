package game

import (
	"time"

	"github.com/onfelt/holdemd/internal/chips"
	"github.com/onfelt/holdemd/internal/deck"
)

// ActionRecord is one entry in the hand's action log.
type ActionRecord struct {
	Seat      int
	Action    Action
	Amount    chips.Amount
	Phase     Phase
	Timestamp time.Time
}

// Seat is a seated player. Seats are owned by the Engine and mutated only on
// the table's controller loop.
type Seat struct {
	ID     string // stable player id
	Wallet string // lowercase wallet address
	Name   string
	Index  int // seat index in [0, MaxSeats)

	Stack    chips.Amount // chips behind
	RoundBet chips.Amount // contribution to the current betting round
	HandBet  chips.Amount // cumulative contribution this hand

	Folded     bool
	AllIn      bool
	SittingOut bool
	Leaving    bool // marked on leave during an active hand; released at settlement

	Dealer     bool
	SmallBlind bool
	BigBlind   bool

	HoleCards     []deck.Card // plaintext cards in local-deal mode, or cards shown at showdown
	HolePositions []int       // deck positions of the hole cards (mental poker mode)

	LastAction     *ActionRecord
	DisconnectedAt *time.Time
}

// InHand reports whether the seat was dealt in and has not folded.
func (s *Seat) InHand() bool {
	return len(s.HoleCards) > 0 || len(s.HolePositions) > 0
}

// CanAct reports whether the seat can still take betting actions this hand.
func (s *Seat) CanAct() bool {
	return s.InHand() && !s.Folded && !s.AllIn
}

// EligibleToDeal reports whether the seat takes part in the next hand.
func (s *Seat) EligibleToDeal() bool {
	return !s.SittingOut && !s.Leaving && s.Stack > 0
}

// resetForHand clears all per-hand state.
func (s *Seat) resetForHand() {
	s.RoundBet = 0
	s.HandBet = 0
	s.Folded = false
	s.AllIn = false
	s.Dealer = false
	s.SmallBlind = false
	s.BigBlind = false
	s.HoleCards = nil
	s.HolePositions = nil
	s.LastAction = nil
}

// post moves up to amount from the stack into the current round bet,
// going all-in on a short stack.
func (s *Seat) post(amount chips.Amount) chips.Amount {
	if amount > s.Stack {
		amount = s.Stack
	}
	s.Stack -= amount
	s.RoundBet += amount
	s.HandBet += amount
	if s.Stack == 0 {
		s.AllIn = true
	}
	return amount
}
