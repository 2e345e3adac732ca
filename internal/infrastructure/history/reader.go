// Package history reads the agent's on-disk session log. The log belongs to
// the agent; deckhand never writes it. Records are JSON lines appended as
// sessions start and end, so readers tolerate partial or malformed trailing
// lines.
package history

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/helmware/deckhand/internal/application/ports"
)

// IndexFileName is the session index file deckhand looks for under the
// history root.
const IndexFileName = "sessions.jsonl"

var _ ports.HistorySource = (*SessionIndex)(nil)

// SessionIndex reads past-session summaries from a JSONL index file.
type SessionIndex struct {
	root string
}

// NewSessionIndex returns an index rooted at dir. The directory does not
// need to exist yet; a missing index reads as empty.
func NewSessionIndex(root string) *SessionIndex {
	return &SessionIndex{root: root}
}

// IndexPath returns the path of the index file this source reads.
func (s *SessionIndex) IndexPath() string {
	return filepath.Join(s.root, IndexFileName)
}

// sessionRecord is the wire shape of one log line.
type sessionRecord struct {
	SessionID   string    `json:"sessionId"`
	Project     string    `json:"cwd"`
	Branch      string    `json:"gitBranch"`
	FirstPrompt string    `json:"firstPrompt"`
	ModifiedAt  time.Time `json:"modifiedAt"`
}

// ListSessions returns summaries for sessions recorded against projectDir,
// most recent first. Later lines for the same session ID supersede earlier
// ones. An empty projectDir returns all sessions.
func (s *SessionIndex) ListSessions(_ context.Context, projectDir string) ([]ports.SessionSummary, error) {
	f, err := os.Open(s.IndexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open session index: %w", err)
	}
	defer f.Close()

	byID := make(map[string]ports.SessionSummary)
	order := make([]string, 0)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec sessionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// Torn or foreign lines are skipped, not fatal.
			continue
		}
		if rec.SessionID == "" {
			continue
		}
		if projectDir != "" && rec.Project != projectDir {
			continue
		}

		if _, seen := byID[rec.SessionID]; !seen {
			order = append(order, rec.SessionID)
		}
		byID[rec.SessionID] = ports.SessionSummary{
			SessionID:   rec.SessionID,
			Project:     rec.Project,
			Branch:      rec.Branch,
			FirstPrompt: rec.FirstPrompt,
			ModifiedAt:  rec.ModifiedAt,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session index: %w", err)
	}

	sessions := make([]ports.SessionSummary, 0, len(order))
	for _, id := range order {
		sessions = append(sessions, byID[id])
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].ModifiedAt.After(sessions[j].ModifiedAt)
	})
	return sessions, nil
}
