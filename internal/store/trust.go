package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/aegis/internal/trust"
)

// maxHistoryEntries caps how much trust history Load returns per record.
// The on-disk log is append-only and never truncated; only reads are
// bounded.
const maxHistoryEntries = 50

// Load returns the persisted trust record for an identity.
// Implements trust.Storage.
func (s *Store) Load(ctx context.Context, identity string) (*trust.Record, bool, error) {
	rec := trust.NewRecord(identity)

	var lastViolation sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT score, execution_count, last_violation
		FROM trust_records
		WHERE identity = ?
	`, identity).Scan(&rec.Score, &rec.ExecutionCount, &lastViolation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read trust record: %w", err)
	}

	if lastViolation.Valid {
		at, err := parseTime(lastViolation.String)
		if err != nil {
			return nil, false, fmt.Errorf("read trust record: %w", err)
		}
		rec.LastViolation = &at
	}

	history, err := s.readHistory(ctx, identity)
	if err != nil {
		return nil, false, err
	}
	rec.History = history

	return rec, true, nil
}

// readHistory returns the most recent history entries in chronological
// order, capped at maxHistoryEntries.
func (s *Store) readHistory(ctx context.Context, identity string) ([]trust.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, at, score
		FROM trust_events
		WHERE identity = ?
		ORDER BY id DESC
		LIMIT ?
	`, identity, maxHistoryEntries)
	if err != nil {
		return nil, fmt.Errorf("query trust events: %w", err)
	}
	defer rows.Close()

	var history []trust.Event
	for rows.Next() {
		var kind, at string
		var score float64
		if err := rows.Scan(&kind, &at, &score); err != nil {
			return nil, fmt.Errorf("scan trust event: %w", err)
		}
		ts, err := parseTime(at)
		if err != nil {
			return nil, fmt.Errorf("scan trust event: %w", err)
		}
		history = append(history, trust.Event{Kind: trust.EventKind(kind), At: ts, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trust events: %w", err)
	}

	// The query returns newest-first; flip to chronological.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	return history, nil
}

// Save upserts a trust record and appends one history event in a single
// transaction. Implements trust.Storage.
//
// The transaction is what makes the ledger's read-modify-write durable
// as a unit: either the new score and its history entry both land, or
// neither does.
func (s *Store) Save(ctx context.Context, rec *trust.Record, ev trust.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save trust record: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var lastViolation any
	if rec.LastViolation != nil {
		lastViolation = formatTime(*rec.LastViolation)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trust_records (identity, score, execution_count, last_violation)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			score = excluded.score,
			execution_count = excluded.execution_count,
			last_violation = excluded.last_violation
	`, rec.Identity, rec.Score, rec.ExecutionCount, lastViolation)
	if err != nil {
		return fmt.Errorf("save trust record: upsert: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trust_events (identity, kind, at, score)
		VALUES (?, ?, ?, ?)
	`, rec.Identity, string(ev.Kind), formatTime(ev.At), ev.Score)
	if err != nil {
		return fmt.Errorf("save trust record: append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save trust record: commit: %w", err)
	}

	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
