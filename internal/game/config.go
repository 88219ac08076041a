package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/onfelt/holdemd/internal/chips"
)

// DealMode selects how a table's cards are dealt.
type DealMode int

const (
	// DealLocal shuffles server-side. Used for development and bot play.
	DealLocal DealMode = iota
	// DealMentalPoker runs the multi-party shuffle; the server never sees
	// plaintext cards until players show them.
	DealMentalPoker
)

func (m DealMode) String() string {
	if m == DealMentalPoker {
		return "mental-poker"
	}
	return "local"
}

// TableConfig is immutable for a table's lifetime.
type TableConfig struct {
	ID         string
	Name       string
	SmallBlind chips.Amount
	BigBlind   chips.Amount
	MinBuyIn   chips.Amount
	MaxBuyIn   chips.Amount
	MaxSeats   int
	MinSeats   int
	TurnTime   time.Duration
	Mode       DealMode
}

var errBadTableConfig = errors.New("invalid table config")

// Validate enforces the structural constraints on a table definition.
func (c TableConfig) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: missing id", errBadTableConfig)
	case c.SmallBlind <= 0:
		return fmt.Errorf("%w: small blind must be positive", errBadTableConfig)
	case c.BigBlind != 2*c.SmallBlind:
		return fmt.Errorf("%w: big blind must be exactly twice the small blind", errBadTableConfig)
	case c.MinBuyIn <= 0 || c.MaxBuyIn < c.MinBuyIn:
		return fmt.Errorf("%w: buy-in range [%d, %d]", errBadTableConfig, c.MinBuyIn, c.MaxBuyIn)
	case c.MaxSeats != 2 && c.MaxSeats != 6 && c.MaxSeats != 9:
		return fmt.Errorf("%w: max seats must be 2, 6 or 9", errBadTableConfig)
	case c.MinSeats < 2 || c.MinSeats > c.MaxSeats:
		return fmt.Errorf("%w: min seats %d out of range", errBadTableConfig, c.MinSeats)
	case c.TurnTime <= 0:
		return fmt.Errorf("%w: turn time must be positive", errBadTableConfig)
	}
	return nil
}
