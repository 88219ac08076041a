package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the file-backed Store.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hands (
			hand_id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL,
			hand_number INTEGER NOT NULL,
			pot INTEGER NOT NULL,
			community TEXT,
			aborted INTEGER NOT NULL DEFAULT 0,
			reason TEXT,
			ended_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hand_participants (
			hand_id TEXT NOT NULL,
			wallet TEXT NOT NULL,
			seat INTEGER NOT NULL,
			delta INTEGER NOT NULL,
			shown TEXT,
			PRIMARY KEY (hand_id, wallet),
			FOREIGN KEY (hand_id) REFERENCES hands(hand_id)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			wallet TEXT NOT NULL,
			table_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount INTEGER NOT NULL,
			ref TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			wallet TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) RecordHand(ctx context.Context, rec HandRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO hands (hand_id, table_id, hand_number, pot, community, aborted, reason, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.HandID, rec.TableID, rec.HandNumber, rec.Pot, rec.Community, rec.Aborted, rec.Reason, rec.EndedAt)
	if err != nil {
		return fmt.Errorf("record hand %s: %w", rec.HandID, err)
	}
	return nil
}

func (s *SQLiteStore) RecordHandParticipants(ctx context.Context, rows []ParticipantRecord) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, row := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO hand_participants (hand_id, wallet, seat, delta, shown)
			VALUES (?, ?, ?, ?, ?)`,
			row.HandID, row.Wallet, row.Seat, row.Delta, row.Shown)
		if err != nil {
			return fmt.Errorf("record participant %s/%s: %w", row.HandID, row.Wallet, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecordTransaction(ctx context.Context, rec TransactionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (wallet, table_id, type, amount, ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Wallet, rec.TableID, rec.Type, rec.Amount, rec.Ref, rec.At)
	if err != nil {
		return fmt.Errorf("record transaction for %s: %w", rec.Wallet, err)
	}
	return nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sessionID, wallet string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sessions (session_id, wallet, started_at) VALUES (?, ?, ?)`,
		sessionID, wallet, at)
	if err != nil {
		return fmt.Errorf("create session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) EndSession(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = ? WHERE session_id = ? AND ended_at IS NULL`,
		at, sessionID)
	if err != nil {
		return fmt.Errorf("end session %s: %w", sessionID, err)
	}
	return nil
}

// HandCount reports how many hands are recorded for the table. Used by
// operator tooling and tests.
func (s *SQLiteStore) HandCount(ctx context.Context, tableID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hands WHERE table_id = ?`, tableID).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
