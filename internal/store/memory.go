package store

import (
	"context"
	"sync"

	"github.com/roach88/aegis/internal/trust"
)

// Memory is an in-memory trust.Storage for tests. It mirrors the
// Store's semantics (copy-on-read, bounded history) without SQLite.
type Memory struct {
	mu        sync.Mutex
	records   map[string]*trust.Record
	rollbacks []trust.RollbackEvent

	// FailSaves makes every Save return this error, for exercising the
	// ledger's fail-open behavior.
	FailSaves error
	// FailLoads makes every Load return this error.
	FailLoads error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*trust.Record)}
}

// Load implements trust.Storage.
func (m *Memory) Load(_ context.Context, identity string) (*trust.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailLoads != nil {
		return nil, false, m.FailLoads
	}

	rec, ok := m.records[identity]
	if !ok {
		return nil, false, nil
	}
	return copyRecord(rec), true, nil
}

// Save implements trust.Storage.
func (m *Memory) Save(_ context.Context, rec *trust.Record, ev trust.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves != nil {
		return m.FailSaves
	}

	stored := copyRecord(rec)
	if prev, ok := m.records[rec.Identity]; ok {
		// The caller's record already carries the new event; reconstruct
		// the full history the way SQLite accumulates it, then cap reads.
		stored.History = append(append([]trust.Event(nil), prev.History...), ev)
	}
	if len(stored.History) > maxHistoryEntries {
		stored.History = stored.History[len(stored.History)-maxHistoryEntries:]
	}
	m.records[rec.Identity] = stored
	return nil
}

// AppendRollback records one rollback in the in-memory audit log.
func (m *Memory) AppendRollback(_ context.Context, ev trust.RollbackEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks = append(m.rollbacks, ev)
	return nil
}

// ReadRollbacks returns the audit log for an identity, or the full log
// when identity is empty.
func (m *Memory) ReadRollbacks(_ context.Context, identity string) ([]trust.RollbackEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []trust.RollbackEvent
	for _, ev := range m.rollbacks {
		if identity == "" || ev.Identity == identity {
			events = append(events, ev)
		}
	}
	return events, nil
}

// ResetTrust deletes an identity's record. Returns whether one existed.
func (m *Memory) ResetTrust(_ context.Context, identity string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.records[identity]
	delete(m.records, identity)
	return ok, nil
}

func copyRecord(rec *trust.Record) *trust.Record {
	out := *rec
	if rec.LastViolation != nil {
		lv := *rec.LastViolation
		out.LastViolation = &lv
	}
	out.History = append([]trust.Event(nil), rec.History...)
	return &out
}
