package store

import (
	"context"
	"fmt"

	"github.com/roach88/aegis/internal/trust"
)

// AppendRollback records one rollback in the audit log.
func (s *Store) AppendRollback(ctx context.Context, ev trust.RollbackEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rollback_events (identity, violation_kind, message, prior_score, at)
		VALUES (?, ?, ?, ?, ?)
	`, ev.Identity, ev.ViolationKind, ev.Message, ev.PriorScore, formatTime(ev.At))
	if err != nil {
		return fmt.Errorf("append rollback event: %w", err)
	}
	return nil
}

// ReadRollbacks returns the rollback audit log for an identity in
// chronological order. An empty identity returns the full log.
func (s *Store) ReadRollbacks(ctx context.Context, identity string) ([]trust.RollbackEvent, error) {
	query := `
		SELECT identity, violation_kind, message, prior_score, at
		FROM rollback_events
		ORDER BY id
	`
	args := []any{}
	if identity != "" {
		query = `
			SELECT identity, violation_kind, message, prior_score, at
			FROM rollback_events
			WHERE identity = ?
			ORDER BY id
		`
		args = append(args, identity)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rollback events: %w", err)
	}
	defer rows.Close()

	var events []trust.RollbackEvent
	for rows.Next() {
		var ev trust.RollbackEvent
		var at string
		if err := rows.Scan(&ev.Identity, &ev.ViolationKind, &ev.Message, &ev.PriorScore, &at); err != nil {
			return nil, fmt.Errorf("scan rollback event: %w", err)
		}
		ts, err := parseTime(at)
		if err != nil {
			return nil, fmt.Errorf("scan rollback event: %w", err)
		}
		ev.At = ts
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollback events: %w", err)
	}

	return events, nil
}

// ResetTrust deletes an identity's trust record and history. The
// rollback audit log is retained. Returns whether a record existed.
func (s *Store) ResetTrust(ctx context.Context, identity string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("reset trust: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM trust_records WHERE identity = ?`, identity)
	if err != nil {
		return false, fmt.Errorf("reset trust: delete record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM trust_events WHERE identity = ?`, identity); err != nil {
		return false, fmt.Errorf("reset trust: delete events: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reset trust: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("reset trust: commit: %w", err)
	}
	return n > 0, nil
}

// ListIdentities returns every identity with a trust record, ordered by
// descending score then identity.
func (s *Store) ListIdentities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity FROM trust_records ORDER BY score DESC, identity
	`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}
