// Package testutil provides shared helpers for tests: parsing program
// fixtures and opening throwaway trust stores.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/aegis/internal/lang"
	"github.com/roach88/aegis/internal/store"
)

// MustParse parses program source, failing the test on any error.
func MustParse(t *testing.T, src string) *lang.Program {
	t.Helper()
	prog, err := lang.Parse(src)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return prog
}

// TempStore opens a SQLite trust store in a per-test temp directory and
// closes it when the test ends.
func TempStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "trust.db"))
	if err != nil {
		t.Fatalf("open temp store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close temp store: %v", err)
		}
	})
	return st
}
