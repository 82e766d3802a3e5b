package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestState creates a state with the given facts and no rule set.
func createTestState(t *testing.T, id string, facts ...string) State {
	t.Helper()
	st, err := NewState(id, facts, "")
	if err != nil {
		t.Fatalf("NewState(%q) failed: %v", id, err)
	}
	return st
}
