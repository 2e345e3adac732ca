// Package workspace defines the domain model for supervised agent workspaces:
// the workspace entity, the registry of active workspaces, and the status
// detection state machine.
package workspace

import (
	"context"
	"strings"
	"time"

	"github.com/helmware/deckhand/internal/domain/errors"
)

// Status represents the inferred run state of a workspace's agent.
//
// Status is a heuristic derived from process liveness and output activity,
// not an authoritative signal from the agent itself.
type Status string

const (
	StatusRunning Status = "running" // Agent process live with recent output activity
	StatusWaiting Status = "waiting" // Agent process live but output has gone quiet
	StatusDone    Status = "done"    // Agent exited cleanly (or handle is gone)
	StatusError   Status = "error"   // Agent exited with a non-zero code
)

// IsTerminal reports whether the status is final. Terminal workspaces are
// never re-polled for liveness; they persist until explicitly killed.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// OrphanSlot is the sentinel SlotPosition for a workspace whose name could
// not be matched to any live host slot.
const OrphanSlot = -1

// AgentHandle is the boundary to a spawned interactive agent process.
// Implementations expose liveness, exit status, and an activity signal;
// they never expose the agent's internal state.
type AgentHandle interface {
	// IsLive reports whether the underlying process is still running.
	IsLive(ctx context.Context) (bool, error)

	// ExitCode returns the process exit code. Only meaningful once IsLive
	// has reported false.
	ExitCode(ctx context.Context) (int, error)

	// ActivityFingerprint returns an opaque comparable token that changes
	// whenever the agent produces new output.
	ActivityFingerprint(ctx context.Context) (uint64, error)

	// Terminate stops the underlying process and releases the handle.
	Terminate(ctx context.Context) error
}

// Workspace pairs one isolated directory (or git worktree) with one
// supervised agent process and one host UI slot.
type Workspace struct {
	ID           string      // Unique record identifier
	Name         string      // Unique among all active workspaces
	SlotPosition int         // Cached host slot index; OrphanSlot when unmatched
	Handle       AgentHandle // Owned for the workspace's lifetime; nil if spawn never succeeded
	Dir          string      // Absolute path to the workspace directory
	Status       Status      // Derived each poll tick
	BranchName   string      // Git branch, when branch-backed
	IsWorktree   bool        // Whether Dir lives inside a dedicated worktree
	WorktreePath string      // Worktree root; set iff IsWorktree
	ExternalRef  string      // Remote issue/PR reference, e.g. "#42"
	LaunchedAt   time.Time   // When the workspace was launched

	// Activity tracking for status detection.
	LastActivityAt time.Time
	Fingerprint    uint64
}

// Validate checks the workspace's structural invariants.
func (w *Workspace) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return errors.New("workspace", "workspace name is required")
	}
	if strings.TrimSpace(w.Dir) == "" {
		return errors.New("workspace", "workspace directory is required")
	}
	if w.IsWorktree && w.WorktreePath == "" {
		return errors.New("workspace", "worktree workspace requires a worktree path")
	}
	if !w.IsWorktree && w.WorktreePath != "" {
		return errors.New("workspace", "worktree path set on a non-worktree workspace")
	}
	return nil
}

// Orphaned reports whether the workspace currently has no matching host slot.
func (w *Workspace) Orphaned() bool {
	return w.SlotPosition == OrphanSlot
}
