package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onfelt/holdemd/internal/chips"
)

func dealtSeat(idx int, stack chips.Amount) *Seat {
	return &Seat{Index: idx, Stack: stack, HolePositions: []int{2 * idx, 2*idx + 1}}
}

func legalFor(actions []LegalAction, a Action) (LegalAction, bool) {
	for _, la := range actions {
		if la.Action == a {
			return la, true
		}
	}
	return LegalAction{}, false
}

// A full raise reopens the action for seats that already acted; an all-in
// below the minimum increment advances the bet without reopening.
func TestUnderRaiseAllInDoesNotReopen(t *testing.T) {
	t.Parallel()

	a := dealtSeat(0, 200)
	b := dealtSeat(1, 200)
	c := dealtSeat(2, 45)
	seats := []*Seat{a, b, c}

	br := NewBettingRound(2)

	// A bets 10.
	a.post(10)
	br.ApplyAggression(a.Index, a.RoundBet)
	br.MarkActed(a.Index)

	// B raises to 30, a full raise: min-raise becomes 20.
	b.post(30)
	br.ApplyAggression(b.Index, b.RoundBet)
	br.MarkActed(b.Index)
	assert.Equal(t, chips.Amount(30), br.CurrentBet)
	assert.Equal(t, chips.Amount(20), br.MinRaise)

	// C shoves 45: fifteen on top, under the min-raise.
	c.post(c.Stack)
	br.ApplyAggression(c.Index, c.RoundBet)
	br.MarkActed(c.Index)
	assert.Equal(t, chips.Amount(45), br.CurrentBet)
	assert.Equal(t, chips.Amount(20), br.MinRaise, "short all-in must not move the min-raise")
	assert.True(t, c.AllIn)

	// B's raise reopened A, so A may still raise; the minimum is 45+20.
	aActions := br.LegalActions(a)
	call, ok := legalFor(aActions, Call)
	require.True(t, ok)
	assert.Equal(t, int64(35), call.Min, "A has 10 in, 35 more to call 45")
	raise, ok := legalFor(aActions, Raise)
	require.True(t, ok)
	assert.Equal(t, int64(65), raise.Min)

	// A calls.
	a.post(35)
	br.MarkActed(a.Index)
	assert.False(t, br.Complete(seats), "B still owes 15")

	// C's increment did not reopen B: call or fold only, no shove.
	bActions := br.LegalActions(b)
	_, hasRaise := legalFor(bActions, Raise)
	_, hasAllIn := legalFor(bActions, AllIn)
	_, hasCall := legalFor(bActions, Call)
	_, hasFold := legalFor(bActions, Fold)
	assert.False(t, hasRaise)
	assert.False(t, hasAllIn)
	assert.True(t, hasCall)
	assert.True(t, hasFold)

	b.post(15)
	br.MarkActed(b.Index)
	assert.True(t, br.Complete(seats))
}

// The big blind has posted the current bet but not acted, so the round stays
// open for its check-or-raise option.
func TestBigBlindOption(t *testing.T) {
	t.Parallel()

	sb := dealtSeat(0, 100)
	bb := dealtSeat(1, 100)
	seats := []*Seat{sb, bb}

	br := NewBettingRound(2)
	sb.post(1)
	bb.post(2)
	br.CurrentBet = 2

	// SB completes to 2.
	sb.post(1)
	br.MarkActed(sb.Index)
	assert.False(t, br.Complete(seats), "blind posts do not count as acting")

	bbActions := br.LegalActions(bb)
	_, hasCheck := legalFor(bbActions, Check)
	raise, hasRaise := legalFor(bbActions, Raise)
	assert.True(t, hasCheck)
	require.True(t, hasRaise)
	assert.Equal(t, int64(4), raise.Min)

	br.MarkActed(bb.Index)
	assert.True(t, br.Complete(seats))
}

func TestCompleteIgnoresAllInAndFolded(t *testing.T) {
	t.Parallel()

	a := dealtSeat(0, 0)
	a.AllIn = true
	a.RoundBet = 40
	b := dealtSeat(1, 60)
	b.RoundBet = 100
	c := dealtSeat(2, 100)
	c.Folded = true

	br := NewBettingRound(2)
	br.CurrentBet = 100
	br.MarkActed(b.Index)

	assert.True(t, br.Complete([]*Seat{a, b, c, nil}),
		"all-in short of the bet and folded seats do not hold the round open")
}

func TestLegalActionsShortStackFacingBet(t *testing.T) {
	t.Parallel()

	s := dealtSeat(1, 30)
	br := NewBettingRound(2)
	br.CurrentBet = 50

	actions := br.LegalActions(s)
	_, hasCall := legalFor(actions, Call)
	allIn, hasAllIn := legalFor(actions, AllIn)
	assert.False(t, hasCall, "cannot call 50 with 30 behind")
	require.True(t, hasAllIn, "the short stack may always shove as a call for less")
	assert.Equal(t, int64(30), allIn.Min)
}
