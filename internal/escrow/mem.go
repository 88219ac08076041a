package escrow

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/onfelt/holdemd/internal/chips"
)

// MemVault is an in-process Vault for development servers and tests. It
// keeps per-wallet free balances and per-table locked balances under one
// mutex and honours the same idempotency contract as a real custody
// backend.
type MemVault struct {
	logger *log.Logger

	mu          sync.Mutex
	balances    map[string]chips.Amount            // wallet -> free balance
	locked      map[string]map[string]chips.Amount // tableID -> wallet -> locked
	seenRefs    map[string]bool                    // lock/unlock refs already applied
	settled     map[string]bool                    // handIDs already settled
	disputes    []string
	defaultFund chips.Amount // dev mode: credited to unseen wallets on first lock
	funded      map[string]bool
}

var _ Vault = (*MemVault)(nil)

// NewMemVault creates an empty vault. Fund wallets before locking.
func NewMemVault(logger *log.Logger) *MemVault {
	return &MemVault{
		logger:   logger.WithPrefix("escrow"),
		balances: make(map[string]chips.Amount),
		locked:   make(map[string]map[string]chips.Amount),
		seenRefs: make(map[string]bool),
		settled:  make(map[string]bool),
		funded:   make(map[string]bool),
	}
}

// SetDefaultFunding makes the vault credit every previously unseen wallet
// with the given balance on its first lock. Dev mode only.
func (v *MemVault) SetDefaultFunding(amount chips.Amount) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.defaultFund = amount
}

// Fund credits a wallet's free balance.
func (v *MemVault) Fund(wallet string, amount chips.Amount) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.funded[wallet] = true
	v.balances[wallet] += amount
}

// Balance reads a wallet's free balance.
func (v *MemVault) Balance(wallet string) chips.Amount {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[wallet]
}

func (v *MemVault) LockChips(_ context.Context, wallet string, amount chips.Amount, tableID, ref string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := "lock:" + ref
	if v.seenRefs[key] {
		return nil
	}
	if v.defaultFund > 0 && !v.funded[wallet] {
		v.funded[wallet] = true
		v.balances[wallet] += v.defaultFund
	}
	if v.balances[wallet] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, wallet, v.balances[wallet], amount)
	}
	v.balances[wallet] -= amount
	if v.locked[tableID] == nil {
		v.locked[tableID] = make(map[string]chips.Amount)
	}
	v.locked[tableID][wallet] += amount
	v.seenRefs[key] = true
	v.logger.Debug("locked", "wallet", wallet, "amount", amount, "table", tableID)
	return nil
}

func (v *MemVault) UnlockChips(_ context.Context, wallet string, amount chips.Amount, tableID, ref string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := "unlock:" + ref
	if v.seenRefs[key] {
		return nil
	}
	table := v.locked[tableID]
	if table == nil || table[wallet] < amount {
		return fmt.Errorf("%w: %s at %s", ErrNoSuchLock, wallet, tableID)
	}
	table[wallet] -= amount
	v.balances[wallet] += amount
	v.seenRefs[key] = true
	v.logger.Debug("unlocked", "wallet", wallet, "amount", amount, "table", tableID)
	return nil
}

func (v *MemVault) SettleTable(_ context.Context, tableID, handID string, deltas []Delta) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.settled[handID] {
		return nil
	}

	var sum chips.Delta
	for _, d := range deltas {
		sum += d.Amount
	}
	if sum != 0 {
		return fmt.Errorf("%w: sum is %d", ErrUnbalancedSettle, sum)
	}

	table := v.locked[tableID]
	for _, d := range deltas {
		if table == nil || table[d.Wallet]+d.Amount < 0 {
			return fmt.Errorf("%w: %s at %s cannot absorb %d", ErrNoSuchLock, d.Wallet, tableID, d.Amount)
		}
	}
	for _, d := range deltas {
		table[d.Wallet] += d.Amount
	}
	v.settled[handID] = true
	v.logger.Debug("settled", "table", tableID, "hand", handID, "wallets", len(deltas))
	return nil
}

func (v *MemVault) GetLockedBalance(_ context.Context, wallet string) (chips.Amount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var total chips.Amount
	for _, table := range v.locked {
		total += table[wallet]
	}
	return total, nil
}

func (v *MemVault) Dispute(_ context.Context, wallet, tableID, reason string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disputes = append(v.disputes, fmt.Sprintf("%s@%s: %s", wallet, tableID, reason))
	v.logger.Warn("dispute filed", "wallet", wallet, "table", tableID, "reason", reason)
	return nil
}

// Disputes returns the filed dispute records.
func (v *MemVault) Disputes() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.disputes...)
}
