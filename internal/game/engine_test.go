package game

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onfelt/holdemd/internal/chips"
	"github.com/onfelt/holdemd/internal/randutil"
)

func testLogger() *log.Logger { return log.New(io.Discard) }

func headsUpConfig() TableConfig {
	return TableConfig{
		ID:         "test-hu",
		Name:       "heads up",
		SmallBlind: 1,
		BigBlind:   2,
		MinBuyIn:   40,
		MaxBuyIn:   400,
		MaxSeats:   2,
		MinSeats:   2,
		TurnTime:   10 * time.Second,
		Mode:       DealLocal,
	}
}

func sixMaxConfig() TableConfig {
	cfg := headsUpConfig()
	cfg.ID = "test-6max"
	cfg.MaxSeats = 6
	return cfg
}

func seatPlayers(t *testing.T, e *Engine, stacks []chips.Amount) {
	t.Helper()
	for i, stack := range stacks {
		_, err := e.Sit(fmt.Sprintf("p%d", i), fmt.Sprintf("0xwallet%d", i), fmt.Sprintf("player-%d", i), i, stack)
		require.NoError(t, err)
	}
}

// beginWithButton deals a fresh hand with the button on the wanted seat. The
// first hand's button is drawn from the engine's RNG, so we walk seeds until
// the draw lands where the scenario needs it.
func beginWithButton(t *testing.T, cfg TableConfig, stacks []chips.Amount, button int) (*Engine, []Event) {
	t.Helper()
	for seed := int64(0); seed < 256; seed++ {
		e := NewEngine(cfg, testLogger(), randutil.New(seed))
		seatPlayers(t, e, stacks)
		require.NoError(t, e.Arm())
		events, err := e.Begin(time.Unix(1_700_000_000, 0))
		require.NoError(t, err)
		if e.Button() == button {
			return e, events
		}
	}
	t.Fatalf("no seed put the button on seat %d", button)
	return nil, nil
}

func findFinished(t *testing.T, events []Event) HandFinished {
	t.Helper()
	for _, ev := range events {
		if hf, ok := ev.(HandFinished); ok {
			return hf
		}
	}
	t.Fatal("no HandFinished event")
	return HandFinished{}
}

func mustApply(t *testing.T, e *Engine, seat int, action Action, amount chips.Amount) []Event {
	t.Helper()
	events, err := e.Apply(seat, action, amount, time.Unix(1_700_000_100, 0))
	require.NoError(t, err)
	return events
}

func assertZeroSum(t *testing.T, deltas map[string]chips.Delta) {
	t.Helper()
	var sum chips.Delta
	for _, d := range deltas {
		sum += d
	}
	assert.Zero(t, sum, "settlement deltas must sum to zero")
}

// Heads-up: the dealer posts the small blind, acts first preflop and last on
// every later street. A raise-call preflop and a bet-call on the flop with
// checked-down turn and river leaves a 32 chip pot moving 16 from the loser
// to the winner.
func TestHeadsUpHandFlow(t *testing.T) {
	t.Parallel()

	// Select a deal with an outright winner so the transfer is exactly 16.
	for seed := int64(0); seed < 256; seed++ {
		e := NewEngine(headsUpConfig(), testLogger(), randutil.New(seed))
		seatPlayers(t, e, []chips.Amount{200, 200})
		require.NoError(t, e.Arm())
		_, err := e.Begin(time.Unix(1_700_000_000, 0))
		require.NoError(t, err)
		if e.Button() != 0 {
			continue
		}

		dealer, other := 0, 1
		require.True(t, e.SeatAt(dealer).SmallBlind, "heads-up dealer posts the small blind")
		require.True(t, e.SeatAt(other).BigBlind)
		require.Equal(t, dealer, e.TurnSeat(), "heads-up dealer acts first preflop")

		mustApply(t, e, dealer, Raise, 6)
		mustApply(t, e, other, Call, 0)
		require.Equal(t, PhaseFlop, e.Phase())
		require.Equal(t, other, e.TurnSeat(), "non-dealer acts first post-flop")

		mustApply(t, e, other, Check, 0)
		mustApply(t, e, dealer, Bet, 10)
		mustApply(t, e, other, Call, 0)
		require.Equal(t, PhaseTurn, e.Phase())

		mustApply(t, e, other, Check, 0)
		mustApply(t, e, dealer, Check, 0)
		require.Equal(t, PhaseRiver, e.Phase())

		mustApply(t, e, other, Check, 0)
		events := mustApply(t, e, dealer, Check, 0)

		hf := findFinished(t, events)
		if len(hf.Winners) != 1 {
			continue // split pot: try another deal
		}

		var potTotal chips.Amount
		for _, p := range hf.Pots {
			potTotal += p.Amount
		}
		assert.Equal(t, chips.Amount(32), potTotal)

		winner := hf.Winners[0].Seat
		loser := 1 - winner
		assert.Equal(t, chips.Delta(16), hf.Deltas[e.SeatAt(winner).Wallet])
		assert.Equal(t, chips.Delta(-16), hf.Deltas[e.SeatAt(loser).Wallet])
		assertZeroSum(t, hf.Deltas)
		assert.NotEmpty(t, hf.Winners[0].Label, "a showdown win carries its ranking label")
		assert.Equal(t, PhaseFinished, e.Phase())
		return
	}
	t.Fatal("no seed produced a decisive heads-up hand with the button on seat 0")
}

// Three-way all-in with a 40 chip short stack: the main pot takes 40 from
// each seat, the side pot the remaining 60 from the two big stacks.
func TestShortStackSidePot(t *testing.T) {
	t.Parallel()

	e, _ := beginWithButton(t, sixMaxConfig(), []chips.Amount{100, 40, 100}, 0)

	require.True(t, e.SeatAt(1).SmallBlind)
	require.True(t, e.SeatAt(2).BigBlind)
	require.Equal(t, 0, e.TurnSeat(), "dealer is under the gun three-handed")

	mustApply(t, e, 0, AllIn, 0)
	mustApply(t, e, 1, AllIn, 0)
	events := mustApply(t, e, 2, Call, 0)

	// Everyone is all-in: the board runs out and the hand settles in one go.
	hf := findFinished(t, events)
	require.Len(t, hf.Pots, 2)
	assert.Equal(t, Pot{Amount: 120, Eligible: []int{0, 1, 2}, Type: MainPot}, hf.Pots[0])
	assert.Equal(t, Pot{Amount: 120, Eligible: []int{0, 2}, Type: SidePot}, hf.Pots[1])
	assertZeroSum(t, hf.Deltas)

	var stacks chips.Amount
	for i := 0; i < 3; i++ {
		s := e.SeatAt(i)
		require.GreaterOrEqual(t, s.Stack, chips.Amount(0))
		stacks += s.Stack
	}
	assert.Equal(t, chips.Amount(240), stacks, "chips are conserved")
}

// Timing out facing a bet folds the seat; timing out with nothing to call
// checks, and the next turn opens in the same event batch.
func TestTurnTimeoutAutoAction(t *testing.T) {
	t.Parallel()

	t.Run("auto-fold facing a bet", func(t *testing.T) {
		t.Parallel()
		e, _ := beginWithButton(t, headsUpConfig(), []chips.Amount{200, 200}, 0)
		require.Equal(t, 0, e.TurnSeat())

		events, err := e.AutoAct(0, time.Unix(1_700_000_200, 0))
		require.NoError(t, err)

		require.NotEmpty(t, events)
		applied, ok := events[0].(ActionApplied)
		require.True(t, ok)
		assert.Equal(t, Fold, applied.Record.Action)

		hf := findFinished(t, events)
		assert.Equal(t, chips.Delta(1), hf.Deltas["0xwallet1"], "big blind collects the folded small blind")
		assert.Equal(t, chips.Delta(-1), hf.Deltas["0xwallet0"])
		assertZeroSum(t, hf.Deltas)
	})

	t.Run("auto-check promotes the next seat atomically", func(t *testing.T) {
		t.Parallel()
		e, _ := beginWithButton(t, headsUpConfig(), []chips.Amount{200, 200}, 0)
		mustApply(t, e, 0, Call, 0)
		require.Equal(t, 1, e.TurnSeat(), "big blind has the option")

		events, err := e.AutoAct(1, time.Unix(1_700_000_200, 0))
		require.NoError(t, err)

		applied, ok := events[0].(ActionApplied)
		require.True(t, ok)
		assert.Equal(t, Check, applied.Record.Action)

		var phaseChanged, turnStarted bool
		for _, ev := range events {
			switch ev := ev.(type) {
			case PhaseChanged:
				phaseChanged = true
				assert.Equal(t, PhaseFlop, ev.Phase)
				assert.Len(t, ev.Community, 3)
			case TurnStarted:
				turnStarted = true
				assert.Equal(t, 1, ev.Seat, "non-dealer acts first on the flop")
			}
		}
		assert.True(t, phaseChanged, "the flop deals in the same batch as the auto-check")
		assert.True(t, turnStarted, "the next turn opens in the same batch as the auto-check")
	})
}

func TestApplyRejectsIllegalActions(t *testing.T) {
	t.Parallel()

	e, _ := beginWithButton(t, headsUpConfig(), []chips.Amount{200, 200}, 0)

	_, err := e.Apply(1, Call, 0, time.Unix(1_700_000_100, 0))
	assert.ErrorIs(t, err, ErrInvalidAction, "acting out of turn")

	_, err = e.Apply(0, Check, 0, time.Unix(1_700_000_100, 0))
	assert.ErrorIs(t, err, ErrInvalidAction, "cannot check facing the big blind")

	_, err = e.Apply(0, Raise, 3, time.Unix(1_700_000_100, 0))
	assert.ErrorIs(t, err, ErrInvalidAction, "raise below the minimum")

	// The rejected actions changed nothing.
	assert.Equal(t, 0, e.TurnSeat())
	assert.Equal(t, chips.Amount(3), e.PotTotal())
}

func TestSitValidation(t *testing.T) {
	t.Parallel()

	e := NewEngine(sixMaxConfig(), testLogger(), randutil.New(1))

	_, err := e.Sit("p0", "0xw0", "a", 0, 10)
	assert.ErrorIs(t, err, ErrBuyInRange)
	_, err = e.Sit("p0", "0xw0", "a", 0, 1000)
	assert.ErrorIs(t, err, ErrBuyInRange)

	_, err = e.Sit("p0", "0xw0", "a", 0, 100)
	require.NoError(t, err)
	_, err = e.Sit("p1", "0xw1", "b", 0, 100)
	assert.ErrorIs(t, err, ErrSeatTaken)
	_, err = e.Sit("p1", "0xw0", "b", 1, 100)
	assert.Error(t, err, "one seat per wallet")

	// Auto-assignment takes the first free seat.
	s, err := e.Sit("p1", "0xw1", "b", -1, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Index)
}

func TestLeaveDuringHandFoldsAndReleasesAtSettlement(t *testing.T) {
	t.Parallel()

	e, _ := beginWithButton(t, headsUpConfig(), []chips.Amount{200, 200}, 0)

	events, err := e.Leave(0, time.Unix(1_700_000_100, 0))
	require.NoError(t, err)

	hf := findFinished(t, events)
	assert.Equal(t, chips.Delta(-1), hf.Deltas["0xwallet0"], "the leaver forfeits the posted small blind")
	assertZeroSum(t, hf.Deltas)

	var removed *SeatRemoved
	for _, ev := range events {
		if sr, ok := ev.(SeatRemoved); ok {
			removed = &sr
		}
	}
	require.NotNil(t, removed, "the seat is released once the hand settles")
	assert.Equal(t, 0, removed.Seat)
	assert.Equal(t, chips.Amount(199), removed.Stack)
	assert.Nil(t, e.SeatAt(0))
}

func TestAbortRefundsContributions(t *testing.T) {
	t.Parallel()

	e, _ := beginWithButton(t, headsUpConfig(), []chips.Amount{200, 200}, 0)
	mustApply(t, e, 0, Raise, 6)

	events := e.Abort("coordinator deadline")
	require.NotEmpty(t, events)
	aborted, ok := events[0].(HandAborted)
	require.True(t, ok)
	assert.Equal(t, "coordinator deadline", aborted.Reason)

	assert.Equal(t, PhaseWaiting, e.Phase())
	assert.Equal(t, chips.Amount(200), e.SeatAt(0).Stack)
	assert.Equal(t, chips.Amount(200), e.SeatAt(1).Stack)
}

// The hand number is allocated at arming time, so an abort during the
// pre-deal phases (commitment/shuffle deadlines) reports the new hand, not
// the previous settled one, and the number is never reused.
func TestArmAllocatesHandNumber(t *testing.T) {
	t.Parallel()

	e := NewEngine(headsUpConfig(), testLogger(), randutil.New(1))
	seatPlayers(t, e, []chips.Amount{200, 200})

	require.NoError(t, e.Arm())
	assert.Equal(t, uint64(1), e.HandNumber())

	events := e.Abort("shuffle deadline exceeded")
	require.NotEmpty(t, events)
	aborted, ok := events[0].(HandAborted)
	require.True(t, ok)
	assert.Equal(t, uint64(1), aborted.HandNumber)

	require.NoError(t, e.Arm())
	events, err := e.Begin(time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	started, ok := events[0].(HandStarted)
	require.True(t, ok)
	assert.Equal(t, uint64(2), started.HandNumber, "the aborted number is burned")
}

func TestButtonRotatesBetweenHands(t *testing.T) {
	t.Parallel()

	e, _ := beginWithButton(t, headsUpConfig(), []chips.Amount{200, 200}, 0)

	// Fold out the first hand and deal the next.
	_, err := e.AutoAct(0, time.Unix(1_700_000_200, 0))
	require.NoError(t, err)
	require.NoError(t, e.FinishToWaiting())

	require.NoError(t, e.Arm())
	_, err = e.Begin(time.Unix(1_700_000_300, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, e.Button(), "the button moves clockwise")
}
