// Tests for the SQLite backend lifecycle.
package sqlite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: tmpDir,
	}

	err := b.Attach(config)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	// Verify database file created
	dbPath := filepath.Join(tmpDir, DBFileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("%s not created", DBFileName)
	}

	// Verify double attach fails
	err = b.Attach(config)
	if err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}

	b.Detach()
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{DataDir: t.TempDir()})
	if err != types.ErrBackendEmpty {
		t.Errorf("expected ErrBackendEmpty, got %v", err)
	}
}

func TestBackend_Detach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: tmpDir,
	}

	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	err := b.Detach()
	if err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	// Verify idempotent
	err = b.Detach()
	if err != nil {
		t.Errorf("second Detach should not error, got %v", err)
	}

	// Verify operations fail after detach
	if _, err := b.Load(); err != types.ErrStoreDetached {
		t.Errorf("Load: expected ErrStoreDetached, got %v", err)
	}
	c := &types.Creation{ID: "x", HTML: "<p>x</p>", Timestamp: time.Now()}
	if err := b.Save(c); err != types.ErrStoreDetached {
		t.Errorf("Save: expected ErrStoreDetached, got %v", err)
	}
	if err := b.Delete("x"); err != types.ErrStoreDetached {
		t.Errorf("Delete: expected ErrStoreDetached, got %v", err)
	}
}

func TestBackend_ReattachKeepsData(t *testing.T) {
	tmpDir := t.TempDir()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: tmpDir,
	}

	b := NewBackend()
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	c := &types.Creation{
		ID:        "kept",
		Name:      "Kept",
		HTML:      "<p>kept</p>",
		Timestamp: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := b.Save(c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	b.Detach()

	b2 := NewBackend()
	if err := b2.Attach(config); err != nil {
		t.Fatalf("reattach failed: %v", err)
	}
	defer b2.Detach()

	got, err := b2.Get("kept")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.HTML != c.HTML || !got.Timestamp.Equal(c.Timestamp) {
		t.Errorf("got %+v, want %+v", got, c)
	}

	if _, err := b2.Get("missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBuiltInExamples(t *testing.T) {
	examples := BuiltInExamples()
	if len(examples) != 3 {
		t.Fatalf("expected 3 examples, got %d", len(examples))
	}

	wantIDs := []string{"example-vibecode-blog", "example-cassette", "example-chess"}
	for i, c := range examples {
		if c.ID != wantIDs[i] {
			t.Errorf("example %d: id %q, want %q", i, c.ID, wantIDs[i])
		}
		if err := c.Validate(); err != nil {
			t.Errorf("example %s invalid: %v", c.ID, err)
		}
		if c.Timestamp.IsZero() {
			t.Errorf("example %s has no timestamp", c.ID)
		}
	}

	// Copies are independent.
	examples[0].Name = "changed"
	if BuiltInExamples()[0].Name == "changed" {
		t.Error("BuiltInExamples returned shared state")
	}
}
