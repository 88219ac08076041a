package game

// Phase is the per-table hand lifecycle state.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseStarting
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseFinished
)

func (p Phase) String() string {
	return [...]string{"waiting", "starting", "preflop", "flop", "turn", "river", "showdown", "finished"}[p]
}

// IsBettingRound reports whether the phase is a street with betting.
func (p Phase) IsBettingRound() bool {
	return p >= PhasePreflop && p <= PhaseRiver
}

// Action is a player action within a betting round. Blind posts appear in the
// action log but are never requested from a player.
type Action int

const (
	Fold Action = iota
	Check
	Call
	Bet
	Raise
	AllIn
	PostSmallBlind
	PostBigBlind
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "all-in", "post-small-blind", "post-big-blind"}[a]
}

// ParseAction converts a wire action string into an Action. Blind posts are
// not accepted from clients.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "fold":
		return Fold, true
	case "check":
		return Check, true
	case "call":
		return Call, true
	case "bet":
		return Bet, true
	case "raise":
		return Raise, true
	case "all-in", "allin":
		return AllIn, true
	}
	return 0, false
}

// LegalAction describes one action currently available to the seat on turn,
// with its permitted amount range (total round bet for bet/raise).
type LegalAction struct {
	Action Action
	Min    int64
	Max    int64
}
