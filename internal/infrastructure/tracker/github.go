// Package tracker integrates with the remote issue tracker through the gh
// CLI. Authentication and repo detection are delegated entirely to gh.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/helmware/deckhand/internal/application/ports"
	domainerrors "github.com/helmware/deckhand/internal/domain/errors"
)

var _ ports.Tracker = (*GitHubTracker)(nil)

// runnerFunc executes a gh invocation and returns its stdout. Swappable in
// tests.
type runnerFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

// GitHubTracker implements the tracker boundary on top of the gh CLI.
type GitHubTracker struct {
	repoDir string
	run     runnerFunc
}

// NewGitHubTracker returns a tracker scoped to the repository at repoDir.
// It fails up front if gh is not installed so callers can surface the
// problem before mutating any state.
func NewGitHubTracker(repoDir string) (*GitHubTracker, error) {
	ghPath, err := exec.LookPath("gh")
	if err != nil {
		return nil, domainerrors.NewError(domainerrors.CodePrecondition,
			"gh CLI not found in PATH", domainerrors.ErrTrackerUnavailable)
	}

	return &GitHubTracker{
		repoDir: repoDir,
		run: func(ctx context.Context, dir string, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, ghPath, args...)
			cmd.Dir = dir

			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			if err := cmd.Run(); err != nil {
				return nil, fmt.Errorf("gh %s: %s: %w",
					strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
			}
			return stdout.Bytes(), nil
		},
	}, nil
}

type issueJSON struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

type prJSON struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	HeadRefName string `json:"headRefName"`
}

// ListOpenIssues returns the repository's open issues, newest first as gh
// orders them.
func (t *GitHubTracker) ListOpenIssues(ctx context.Context) ([]ports.Issue, error) {
	out, err := t.run(ctx, t.repoDir, "issue", "list", "--state", "open", "--json", "number,title,body")
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	var raw []issueJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse issue list: %w", err)
	}

	issues := make([]ports.Issue, 0, len(raw))
	for _, it := range raw {
		issues = append(issues, ports.Issue{
			Number: it.Number,
			Title:  it.Title,
			Body:   it.Body,
		})
	}
	return issues, nil
}

// ListOpenPRs returns the repository's open pull requests.
func (t *GitHubTracker) ListOpenPRs(ctx context.Context) ([]ports.PullRequest, error) {
	out, err := t.run(ctx, t.repoDir, "pr", "list", "--state", "open", "--json", "number,title,body,headRefName")
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}

	var raw []prJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse pull request list: %w", err)
	}

	prs := make([]ports.PullRequest, 0, len(raw))
	for _, pr := range raw {
		prs = append(prs, ports.PullRequest{
			Number:     pr.Number,
			Title:      pr.Title,
			HeadBranch: pr.HeadRefName,
			Body:       pr.Body,
		})
	}
	return prs, nil
}

// CreatePR opens a pull request from headBranch and returns its URL.
func (t *GitHubTracker) CreatePR(ctx context.Context, title, body, headBranch string) (string, error) {
	if title == "" {
		return "", fmt.Errorf("pull request title is required")
	}
	if headBranch == "" {
		return "", fmt.Errorf("head branch is required")
	}

	out, err := t.run(ctx, t.repoDir, "pr", "create",
		"--title", title, "--body", body, "--head", headBranch)
	if err != nil {
		return "", fmt.Errorf("failed to create pull request: %w", err)
	}

	// gh prints the new PR URL as the last line of stdout.
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return lines[len(lines)-1], nil
}
