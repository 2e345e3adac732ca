// Package ports defines the interfaces between the supervisor core and its
// external collaborators: agent spawning, the host UI's slot primitives, the
// remote tracker, the history log, and workspace state persistence.
package ports

import (
	"context"

	"github.com/helmware/deckhand/internal/domain/workspace"
)

// SpawnOptions configures a new agent process.
type SpawnOptions struct {
	Dir           string // Working directory for the agent
	Command       string // Agent command line, e.g. "claude"
	InitialPrompt string // Optional text injected once the agent is up
	Label         string // Display label for the hosting slot
}

// AgentSpawner starts interactive agent processes and hands back opaque
// handles. Spawning is coarse-grained blocking work; callers must not hold
// the coordination lock across it.
type AgentSpawner interface {
	Spawn(ctx context.Context, opts SpawnOptions) (workspace.AgentHandle, error)
}
