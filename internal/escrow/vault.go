// Package escrow defines the chip custody contract between the game server
// and the external vault holding player funds. The server never moves chips
// directly: it locks a buy-in before seating, unlocks on leave, and settles
// each hand with a zero-sum batch of signed deltas.
package escrow

import (
	"context"
	"errors"

	"github.com/onfelt/holdemd/internal/chips"
)

var (
	ErrInsufficientFunds = errors.New("escrow: insufficient funds")
	ErrNoSuchLock        = errors.New("escrow: no such lock")
	ErrUnbalancedSettle  = errors.New("escrow: settlement deltas do not sum to zero")
)

// Delta is one wallet's signed chip movement in a settlement batch.
type Delta struct {
	Wallet string
	Amount chips.Delta
}

// Vault is the escrow collaborator. All methods are safe for concurrent use
// across tables and idempotent: Lock and Unlock dedupe on ref, Settle on
// handID. Calls may fail transiently; the caller must not mutate table state
// on failure.
type Vault interface {
	// LockChips reserves amount from the wallet's balance for play at the
	// table. ref identifies the lock for retries and the matching unlock.
	LockChips(ctx context.Context, wallet string, amount chips.Amount, tableID, ref string) error

	// UnlockChips releases a previous lock back to the wallet's balance.
	UnlockChips(ctx context.Context, wallet string, amount chips.Amount, tableID, ref string) error

	// SettleTable applies one hand's zero-sum deltas to the locked balances
	// at the table. Rejects batches whose deltas do not sum to zero.
	SettleTable(ctx context.Context, tableID, handID string, deltas []Delta) error

	// GetLockedBalance reads the wallet's total locked across all tables.
	GetLockedBalance(ctx context.Context, wallet string) (chips.Amount, error)

	// Dispute flags a wallet for off-band review, e.g. a mental poker
	// participant whose reveals failed commitment checks.
	Dispute(ctx context.Context, wallet, tableID, reason string) error
}
