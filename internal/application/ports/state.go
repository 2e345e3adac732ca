package ports

import (
	"context"
	"time"

	"github.com/helmware/deckhand/internal/domain/workspace"
)

// WorkspaceRecord is the persisted shape of a workspace. Records outlive the
// supervisor process so a restart can re-adopt workspaces whose slots are
// still alive in the host.
type WorkspaceRecord struct {
	ID           string
	Name         string
	Dir          string
	Status       workspace.Status
	BranchName   string
	IsWorktree   bool
	WorktreePath string
	ExternalRef  string
	SlotLabel    string
	LaunchedAt   time.Time
}

// WorkspaceStateStore persists workspace records across supervisor restarts.
// The in-memory registry stays authoritative; the store is a recovery aid.
type WorkspaceStateStore interface {
	Save(ctx context.Context, rec WorkspaceRecord) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]WorkspaceRecord, error)
	Close() error
}
