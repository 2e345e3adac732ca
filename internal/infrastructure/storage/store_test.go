package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/helmware/deckhand/internal/application/ports"
	"github.com/helmware/deckhand/internal/domain/workspace"
)

func openTestStore(t *testing.T) *SQLiteStateStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "deckhand.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(id, name string) ports.WorkspaceRecord {
	return ports.WorkspaceRecord{
		ID:         id,
		Name:       name,
		Dir:        "/repo/.agents-worktrees/" + name,
		Status:     workspace.StatusRunning,
		BranchName: "agents/" + name,
		IsWorktree: true,
		SlotLabel:  name,
		LaunchedAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestSaveAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := testRecord("id-1", "auth-fix")
	second := testRecord("id-2", "api-tests")
	second.LaunchedAt = first.LaunchedAt.Add(time.Hour)

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}
	if records[0].Name != "auth-fix" || records[1].Name != "api-tests" {
		t.Errorf("wrong launch order: %q then %q", records[0].Name, records[1].Name)
	}
	if records[0].BranchName != "agents/auth-fix" || !records[0].IsWorktree {
		t.Errorf("record round-trip lost fields: %+v", records[0])
	}
	if !records[0].LaunchedAt.Equal(first.LaunchedAt) {
		t.Errorf("LaunchedAt = %v, want %v", records[0].LaunchedAt, first.LaunchedAt)
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("id-1", "auth-fix")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec.Status = workspace.StatusDone
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("List() returned %d records, want 1", len(records))
	}
	if records[0].Status != workspace.StatusDone {
		t.Errorf("Status = %q, want %q", records[0].Status, workspace.StatusDone)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testRecord("id-1", "auth-fix")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, "id-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "id-1"); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("List() returned %d records after delete, want 0", len(records))
	}
}

func TestSaveValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, ports.WorkspaceRecord{Name: "no-id"}); err == nil {
		t.Error("expected error for record without ID")
	}
	if err := store.Save(ctx, ports.WorkspaceRecord{ID: "no-name"}); err == nil {
		t.Error("expected error for record without name")
	}
}

func TestOpenIsIdempotentAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deckhand.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if err := store.Save(context.Background(), testRecord("id-1", "auth-fix")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer store.Close()

	records, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("List() returned %d records after reopen, want 1", len(records))
	}
}
