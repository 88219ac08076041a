package escrow

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onfelt/holdemd/internal/chips"
)

func newVault(t *testing.T) *MemVault {
	t.Helper()
	return NewMemVault(log.New(io.Discard))
}

func TestLockUnlockRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := newVault(t)
	v.Fund("0xa", 500)

	require.NoError(t, v.LockChips(ctx, "0xa", 200, "t1", "sit-1"))
	assert.Equal(t, chips.Amount(300), v.Balance("0xa"))

	locked, err := v.GetLockedBalance(ctx, "0xa")
	require.NoError(t, err)
	assert.Equal(t, chips.Amount(200), locked)

	// Same ref twice: applied once.
	require.NoError(t, v.LockChips(ctx, "0xa", 200, "t1", "sit-1"))
	assert.Equal(t, chips.Amount(300), v.Balance("0xa"))

	require.NoError(t, v.UnlockChips(ctx, "0xa", 200, "t1", "leave-1"))
	require.NoError(t, v.UnlockChips(ctx, "0xa", 200, "t1", "leave-1"))
	assert.Equal(t, chips.Amount(500), v.Balance("0xa"))
}

func TestLockRequiresFunds(t *testing.T) {
	t.Parallel()
	v := newVault(t)
	v.Fund("0xa", 50)
	err := v.LockChips(context.Background(), "0xa", 200, "t1", "sit-1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, chips.Amount(50), v.Balance("0xa"))
}

func TestUnlockWithoutLock(t *testing.T) {
	t.Parallel()
	v := newVault(t)
	err := v.UnlockChips(context.Background(), "0xa", 10, "t1", "leave-1")
	assert.ErrorIs(t, err, ErrNoSuchLock)
}

func TestSettleTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := newVault(t)
	v.Fund("0xa", 200)
	v.Fund("0xb", 200)
	require.NoError(t, v.LockChips(ctx, "0xa", 100, "t1", "sit-a"))
	require.NoError(t, v.LockChips(ctx, "0xb", 100, "t1", "sit-b"))

	deltas := []Delta{{Wallet: "0xa", Amount: 30}, {Wallet: "0xb", Amount: -30}}
	require.NoError(t, v.SettleTable(ctx, "t1", "hand-1", deltas))

	// Idempotent on the hand id: replays do not move chips again.
	require.NoError(t, v.SettleTable(ctx, "t1", "hand-1", deltas))

	require.NoError(t, v.UnlockChips(ctx, "0xa", 130, "t1", "leave-a"))
	require.NoError(t, v.UnlockChips(ctx, "0xb", 70, "t1", "leave-b"))
	assert.Equal(t, chips.Amount(230), v.Balance("0xa"))
	assert.Equal(t, chips.Amount(170), v.Balance("0xb"))
}

func TestSettleRejectsUnbalanced(t *testing.T) {
	t.Parallel()
	v := newVault(t)
	err := v.SettleTable(context.Background(), "t1", "hand-1", []Delta{{Wallet: "0xa", Amount: 5}})
	assert.ErrorIs(t, err, ErrUnbalancedSettle)
}

func TestSettleRejectsOverdraw(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := newVault(t)
	v.Fund("0xa", 100)
	v.Fund("0xb", 100)
	require.NoError(t, v.LockChips(ctx, "0xa", 50, "t1", "sit-a"))
	require.NoError(t, v.LockChips(ctx, "0xb", 50, "t1", "sit-b"))

	err := v.SettleTable(ctx, "t1", "hand-1", []Delta{
		{Wallet: "0xa", Amount: -80},
		{Wallet: "0xb", Amount: 80},
	})
	assert.ErrorIs(t, err, ErrNoSuchLock)

	// The failed batch left both locks untouched.
	locked, _ := v.GetLockedBalance(ctx, "0xa")
	assert.Equal(t, chips.Amount(50), locked)
}

func TestDispute(t *testing.T) {
	t.Parallel()
	v := newVault(t)
	require.NoError(t, v.Dispute(context.Background(), "0xc", "t1", "commitment mismatch"))
	require.Len(t, v.Disputes(), 1)
	assert.Contains(t, v.Disputes()[0], "0xc")
}
