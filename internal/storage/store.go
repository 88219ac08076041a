// Package storage persists hand history and session records. Writes are
// append-only and fire-and-forget from the game's perspective: a failed
// write is logged and skipped, never blocking play.
package storage

import (
	"context"
	"time"

	"github.com/onfelt/holdemd/internal/chips"
)

// HandRecord is one completed (or aborted) hand.
type HandRecord struct {
	HandID     string
	TableID    string
	HandNumber uint64
	Pot        chips.Amount
	Community  string // wire-encoded board, empty when never revealed
	Aborted    bool
	Reason     string // abort reason, empty otherwise
	EndedAt    time.Time
}

// ParticipantRecord is one seat's outcome in a hand.
type ParticipantRecord struct {
	HandID string
	Wallet string
	Seat   int
	Delta  chips.Delta
	Shown  string // wire-encoded hole cards if revealed
}

// TransactionRecord is one escrow movement observed by the server.
type TransactionRecord struct {
	Wallet  string
	TableID string
	Type    string // lock, unlock, settle
	Amount  chips.Delta
	Ref     string
	At      time.Time
}

// Store is the persistence collaborator.
type Store interface {
	RecordHand(ctx context.Context, rec HandRecord) error
	RecordHandParticipants(ctx context.Context, rows []ParticipantRecord) error
	RecordTransaction(ctx context.Context, rec TransactionRecord) error
	CreateSession(ctx context.Context, sessionID, wallet string, at time.Time) error
	EndSession(ctx context.Context, sessionID string, at time.Time) error
	Close() error
}

// NopStore discards everything. Used when the server runs without a
// database path configured.
type NopStore struct{}

var _ Store = NopStore{}

func (NopStore) RecordHand(context.Context, HandRecord) error                  { return nil }
func (NopStore) RecordHandParticipants(context.Context, []ParticipantRecord) error { return nil }
func (NopStore) RecordTransaction(context.Context, TransactionRecord) error    { return nil }
func (NopStore) CreateSession(context.Context, string, string, time.Time) error { return nil }
func (NopStore) EndSession(context.Context, string, time.Time) error           { return nil }
func (NopStore) Close() error                                                  { return nil }
