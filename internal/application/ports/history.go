package ports

import (
	"context"
	"time"
)

// SessionSummary is one past-session record from the agent's on-disk
// history log. The log format belongs to the agent; deckhand reads it only.
type SessionSummary struct {
	SessionID   string
	Project     string
	Branch      string
	FirstPrompt string
	ModifiedAt  time.Time
}

// HistorySource lists past-session summaries for a project directory.
type HistorySource interface {
	ListSessions(ctx context.Context, projectDir string) ([]SessionSummary, error)
}
