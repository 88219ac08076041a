package mental

import "github.com/onfelt/holdemd/internal/game"

// Event is a coordinator output. The Room Controller maps events onto
// mental-poker protocol messages and their fan-out.
type Event interface{ mpEvent() }

// PhaseChanged is broadcast on every coordinator phase transition.
// CurrentShuffler is -1 outside the shuffle phase.
type PhaseChanged struct {
	Phase           Phase
	CurrentShuffler int
}

// CommitmentReceived is broadcast per accepted commitment.
type CommitmentReceived struct {
	Seat  int
	Count int
	Total int
}

// ShuffleTurn hands the running deck to the next shuffler (per-recipient).
type ShuffleTurn struct {
	Seat int
	Deck []string
}

// ShuffleComplete is broadcast after the last contribution.
type ShuffleComplete struct {
	Deck []string
}

// KeyRequested asks one seat for its decryption key for one position
// (per-recipient). CardRecipient is -1 for community cards.
type KeyRequested struct {
	Seat          int
	Position      int
	Type          game.CardType
	CardRecipient int
}

// KeyRevealed is broadcast per accepted key. Needed lists the seats whose
// keys are still outstanding for the position.
type KeyRevealed struct {
	Seat     int
	Position int
	Complete bool
	Needed   []int
}

// CardRevealed is broadcast when a position's reveal set is satisfied. The
// accumulated reveals let the recipients decrypt client-side; the server
// never combines them.
type CardRevealed struct {
	Position  int
	Type      game.CardType
	Recipient int
	Reveals   []Reveal
}

// Aborted reports a step deadline failure with the seats that caused it.
type Aborted struct {
	Reason    string
	Offenders []int
}

func (PhaseChanged) mpEvent()       {}
func (CommitmentReceived) mpEvent() {}
func (ShuffleTurn) mpEvent()        {}
func (ShuffleComplete) mpEvent()    {}
func (KeyRequested) mpEvent()       {}
func (KeyRevealed) mpEvent()        {}
func (CardRevealed) mpEvent()       {}
func (Aborted) mpEvent()            {}
