package ports

import "context"

// Issue is an open issue on the remote tracker.
type Issue struct {
	Number int
	Title  string
	Body   string
}

// PullRequest is an open pull request on the remote tracker.
type PullRequest struct {
	Number     int
	Title      string
	HeadBranch string
	Body       string
}

// Tracker is the remote issue/PR tracker boundary. Implementations must
// verify their own preconditions (client binary present, repo reachable)
// and fail before any registry mutation is attempted.
type Tracker interface {
	ListOpenIssues(ctx context.Context) ([]Issue, error)
	ListOpenPRs(ctx context.Context) ([]PullRequest, error)
	CreatePR(ctx context.Context, title, body, headBranch string) (string, error)
}
