package database

import (
	"path/filepath"
	"testing"
	"time"
)

// openTestStore opens a fresh database in a per-test temp directory.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// setNow pins the store's clock for queries that depend on the wall clock.
func setNow(store *Store, at time.Time) {
	store.now = func() time.Time { return at }
}

// mustCreateProject creates a project or fails the test.
func mustCreateProject(t *testing.T, store *Store, name string) int64 {
	t.Helper()
	id, err := store.CreateProject(name, "/photos/"+name, "library")
	if err != nil {
		t.Fatalf("CreateProject(%s) failed: %v", name, err)
	}
	return id
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func i64Ptr(n int64) *int64     { return &n }
