package game

import (
	"github.com/onfelt/holdemd/internal/chips"
	"github.com/onfelt/holdemd/internal/deck"
)

// Event is a domain event produced by the Engine. The Room Controller
// translates events into outbound protocol messages; the engine itself never
// talks to a transport.
type Event interface{ event() }

// CardType distinguishes hole from community deal requests.
type CardType string

const (
	HoleCard      CardType = "hole"
	CommunityCard CardType = "community"
)

// HandStarted is emitted when blinds are posted and cards go out.
type HandStarted struct {
	HandNumber uint64
	Dealer     int
}

// BlindPosted is emitted for each blind, including short all-in posts.
type BlindPosted struct {
	Seat   int
	Action Action
	Amount chips.Amount
}

// HoleCardsDealt is emitted per seat. Cards is populated in local-deal mode;
// in mental poker mode only the deck positions are known to the server.
type HoleCardsDealt struct {
	Seat      int
	Cards     []deck.Card
	Positions []int
}

// CardRequested asks the mental poker coordinator to run the key-reveal for
// one deck position. Recipient is -1 for community cards.
type CardRequested struct {
	Position  int
	Type      CardType
	Recipient int
}

// PhaseChanged is emitted on every street advance. Community carries the
// plaintext board when the server knows it (local mode, or after showdown
// board confirmation in mental poker mode).
type PhaseChanged struct {
	Phase     Phase
	Community []deck.Card
	Positions []int
}

// TurnStarted is emitted when the turn cursor moves.
type TurnStarted struct {
	Seat  int
	Legal []LegalAction
}

// ActionApplied is emitted after every accepted action.
type ActionApplied struct {
	Record ActionRecord
	Pot    chips.Amount
}

// UncalledReturned is emitted when an unmatched bet goes back to the bettor.
type UncalledReturned struct {
	Seat   int
	Amount chips.Amount
}

// ShowdownRequired is emitted in mental poker mode when the river round
// completes: the listed seats must show their hole cards before winners can
// be determined.
type ShowdownRequired struct {
	Seats []int
}

// WinnerResult is one seat's winnings in a settled hand.
type WinnerResult struct {
	Seat    int
	Amount  chips.Amount
	Label   string // ranking label, empty when everyone else folded
	Cards   []deck.Card
	PotType PotType
}

// HandFinished is emitted at settlement.
type HandFinished struct {
	HandNumber uint64
	Winners    []WinnerResult
	Pots       []Pot
	Deltas     map[string]chips.Delta // wallet -> signed delta, sums to zero
}

// HandAborted is emitted when a hand cannot complete (protocol failure or a
// broken invariant). All hand contributions have been returned to stacks.
type HandAborted struct {
	HandNumber uint64
	Reason     string
}

// SeatRemoved is emitted when a seat leaves the table for good. Stack is the
// amount to release on the escrow.
type SeatRemoved struct {
	Seat   int
	Wallet string
	Stack  chips.Amount
}

func (HandStarted) event()      {}
func (BlindPosted) event()      {}
func (HoleCardsDealt) event()   {}
func (CardRequested) event()    {}
func (PhaseChanged) event()     {}
func (TurnStarted) event()      {}
func (ActionApplied) event()    {}
func (UncalledReturned) event() {}
func (ShowdownRequired) event() {}
func (HandFinished) event()     {}
func (HandAborted) event()      {}
func (SeatRemoved) event()      {}
