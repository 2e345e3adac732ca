// Package supervisor coordinates the workspace registry, status detection,
// slot reconciliation, and the external collaborators (spawner, slot host,
// version control, tracker, state store) behind one lock.
package supervisor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helmware/deckhand/internal/application/ports"
	domainerrors "github.com/helmware/deckhand/internal/domain/errors"
	"github.com/helmware/deckhand/internal/domain/workspace"
	"github.com/helmware/deckhand/internal/infrastructure/logging"
	"github.com/helmware/deckhand/internal/infrastructure/tracing"
)

// VersionControl is the supervisor's view of the git collaborator.
type VersionControl interface {
	RepoRoot(ctx context.Context, dir string) (string, error)
	CurrentBranch(ctx context.Context, dir string) (string, error)
	Create(ctx context.Context, repoRoot, name, baseBranch string) (path string, branch string, err error)
	Remove(ctx context.Context, repoRoot, worktreePath string) error
	PushBranch(ctx context.Context, repoRoot, branch string) error
}

// TextSender is implemented by agent handles that accept injected input.
type TextSender interface {
	SendText(ctx context.Context, text string) error
}

// Options configures a Supervisor.
type Options struct {
	AgentCommand  string // Command line used to start agents
	IdleThreshold time.Duration
}

// Supervisor owns the registry and serializes every read-modify-write
// sequence over it. User-triggered operations and the poll tick all acquire
// the same lock, so composite operations (kill, launch) are atomic relative
// to concurrent lookups.
type Supervisor struct {
	mu sync.Mutex

	registry   *workspace.Registry
	detector   *workspace.Detector
	reconciler Reconciler

	spawner ports.AgentSpawner
	slots   ports.SlotHost
	vcs     VersionControl
	tracker ports.Tracker
	store   ports.WorkspaceStateStore

	opts   Options
	logger *logging.Logger
	tracer *tracing.Tracer
}

// New creates a supervisor. Tracker and store may be nil; tracker-backed
// operations then fail with a precondition error, and persistence is skipped.
func New(spawner ports.AgentSpawner, slots ports.SlotHost, vcs VersionControl,
	tracker ports.Tracker, store ports.WorkspaceStateStore,
	opts Options, logger *logging.Logger, tracer *tracing.Tracer) *Supervisor {
	if opts.AgentCommand == "" {
		opts.AgentCommand = "claude"
	}
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}

	return &Supervisor{
		registry: workspace.NewRegistry(),
		detector: &workspace.Detector{IdleThreshold: opts.IdleThreshold},
		spawner:  spawner,
		slots:    slots,
		vcs:      vcs,
		tracker:  tracker,
		store:    store,
		opts:     opts,
		logger:   logger,
		tracer:   tracer,
	}
}

// LaunchOptions configures a single launch.
type LaunchOptions struct {
	Name          string // Candidate name; disambiguated against the registry
	Dir           string // Working directory; the repo root for worktree launches
	UseWorktree   bool
	BaseBranch    string // Branch the worktree is cut from; empty means HEAD
	InitialPrompt string
	ExternalRef   string // Remote issue/PR reference, e.g. "#42"
	Command       string // Overrides the configured agent command
}

// Launch creates a workspace: optionally a worktree, then the agent process,
// then the registry entry. Failures leave the registry unmodified; a
// partially created worktree is left on disk for inspection.
func (s *Supervisor) Launch(ctx context.Context, opts LaunchOptions) (*workspace.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.Dir == "" {
		return nil, domainerrors.New("launch", "workspace directory is required")
	}

	name := s.registry.ResolveName(opts.Name)
	ctx = logging.WithWorkspace(ctx, name)

	ctx, span := s.tracer.StartOperationSpan(ctx, "launch", name)
	defer span.End()

	dir := opts.Dir
	branch := ""
	worktreePath := ""

	if opts.UseWorktree {
		if s.vcs == nil {
			err := domainerrors.NewError(domainerrors.CodePrecondition,
				"worktree launch requires version control support", nil)
			span.EndWithError(err)
			return nil, err
		}
		repoRoot, err := s.vcs.RepoRoot(ctx, opts.Dir)
		if err != nil {
			span.EndWithError(err)
			return nil, fmt.Errorf("worktree launch requires a git repository: %w", err)
		}
		worktreePath, branch, err = s.vcs.Create(ctx, repoRoot, name, opts.BaseBranch)
		if err != nil {
			span.EndWithError(err)
			return nil, err
		}
		dir = worktreePath
		span.SetWorktree(worktreePath)
	} else if s.vcs != nil {
		// Branch name is informational for plain-directory launches.
		branch, _ = s.vcs.CurrentBranch(ctx, dir)
	}

	command := opts.Command
	if command == "" {
		command = s.opts.AgentCommand
	}

	handle, err := s.spawner.Spawn(ctx, ports.SpawnOptions{
		Dir:           dir,
		Command:       command,
		InitialPrompt: opts.InitialPrompt,
		Label:         name,
	})
	if err != nil {
		span.EndWithError(err)
		return nil, fmt.Errorf("failed to spawn agent for %s: %w", name, err)
	}

	now := time.Now()
	ws := &workspace.Workspace{
		ID:             uuid.New().String()[:8],
		Name:           name,
		SlotPosition:   workspace.OrphanSlot,
		Handle:         handle,
		Dir:            dir,
		Status:         workspace.StatusRunning,
		BranchName:     branch,
		IsWorktree:     opts.UseWorktree,
		WorktreePath:   worktreePath,
		ExternalRef:    opts.ExternalRef,
		LaunchedAt:     now,
		LastActivityAt: now,
	}

	if err := s.registry.Insert(ws); err != nil {
		// ResolveName ran under the same lock, so this is unreachable
		// short of a programming error. Release the process regardless.
		_ = handle.Terminate(ctx)
		span.EndWithError(err)
		return nil, err
	}

	s.reconcile(ctx)
	s.persist(ctx, ws)

	span.SetSlot(ws.SlotPosition)
	logging.LogLaunch(ctx, s.logger, name, ws.SlotPosition, opts.UseWorktree)
	return ws, nil
}

// Kill terminates a workspace's agent, optionally removes its worktree, and
// deletes it from the registry. Cleanup failures are logged, never allowed to
// block removal of the entity.
func (s *Supervisor) Kill(ctx context.Context, name string, removeWorktree bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.registry.FindByName(name)
	if ws == nil {
		return domainerrors.NewError(domainerrors.CodeNotFound,
			fmt.Sprintf("no workspace named %s", name), domainerrors.ErrWorkspaceNotFound)
	}

	ctx = logging.WithWorkspace(ctx, name)
	ctx, span := s.tracer.StartOperationSpan(ctx, "kill", name)
	defer span.End()

	if ws.Handle != nil {
		if err := ws.Handle.Terminate(ctx); err != nil {
			s.logger.WarnContext(ctx, "agent termination failed", "error", err)
		}
	}

	if removeWorktree && ws.IsWorktree && ws.WorktreePath != "" {
		repoRoot, err := s.vcs.RepoRoot(ctx, ws.WorktreePath)
		if err == nil {
			err = s.vcs.Remove(ctx, repoRoot, ws.WorktreePath)
		}
		if err != nil {
			logging.LogWorktreeRemovalFailed(ctx, s.logger, ws.WorktreePath, err)
		}
	}

	slot := ws.SlotPosition
	s.registry.Remove(name)

	if s.store != nil {
		if err := s.store.Delete(ctx, ws.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete persisted record", "error", err)
		}
	}

	if slot != workspace.OrphanSlot {
		if err := s.slots.CloseSlot(ctx, slot); err != nil {
			s.logger.WarnContext(ctx, "failed to close slot", "slot", slot, "error", err)
		}
	}

	s.reconcile(ctx)
	logging.LogKill(ctx, s.logger, name, removeWorktree)
	return nil
}

// Switch focuses the host slot of the named workspace. Orphaned workspaces
// fail with a descriptive error instead of targeting an arbitrary slot.
func (s *Supervisor) Switch(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.registry.FindByName(name)
	if ws == nil {
		return domainerrors.NewError(domainerrors.CodeNotFound,
			fmt.Sprintf("no workspace named %s", name), domainerrors.ErrWorkspaceNotFound)
	}

	// Refresh positions first: the cached index may be stale if the host
	// changed slots since the last tick.
	s.reconcile(ctx)

	if ws.Orphaned() {
		return domainerrors.NewError(domainerrors.CodeExecution,
			fmt.Sprintf("workspace %s has no live slot; its slot was closed or renamed in the host", name),
			domainerrors.ErrOrphanedSlot)
	}

	return s.slots.SelectSlot(ctx, ws.SlotPosition)
}

// Send injects a line of text into the named workspace's agent.
func (s *Supervisor) Send(ctx context.Context, name, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.registry.FindByName(name)
	if ws == nil {
		return domainerrors.NewError(domainerrors.CodeNotFound,
			fmt.Sprintf("no workspace named %s", name), domainerrors.ErrWorkspaceNotFound)
	}
	if ws.Status.IsTerminal() || ws.Handle == nil {
		return domainerrors.NewError(domainerrors.CodePrecondition,
			fmt.Sprintf("workspace %s has no live agent", name), domainerrors.ErrAgentNotLive)
	}

	sender, ok := ws.Handle.(TextSender)
	if !ok {
		return domainerrors.New("send", "agent handle does not accept input")
	}
	return sender.SendText(ctx, text)
}

// LaunchFromIssue launches a worktree-backed workspace seeded with an issue's
// title and body as the initial prompt.
func (s *Supervisor) LaunchFromIssue(ctx context.Context, repoDir string, issue ports.Issue) (*workspace.Workspace, error) {
	prompt := fmt.Sprintf("Work on issue #%d: %s", issue.Number, issue.Title)
	if issue.Body != "" {
		prompt += "\n\n" + issue.Body
	}

	return s.Launch(ctx, LaunchOptions{
		Name:          SlugFromTitle(issue.Title),
		Dir:           repoDir,
		UseWorktree:   true,
		InitialPrompt: prompt,
		ExternalRef:   fmt.Sprintf("#%d", issue.Number),
	})
}

// CreatePR pushes the workspace's branch and opens a pull request for it.
// Returns the PR URL.
func (s *Supervisor) CreatePR(ctx context.Context, name, title, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker == nil {
		return "", domainerrors.NewError(domainerrors.CodePrecondition,
			"no tracker configured", domainerrors.ErrTrackerUnavailable)
	}

	ws := s.registry.FindByName(name)
	if ws == nil {
		return "", domainerrors.NewError(domainerrors.CodeNotFound,
			fmt.Sprintf("no workspace named %s", name), domainerrors.ErrWorkspaceNotFound)
	}
	if ws.BranchName == "" {
		return "", domainerrors.New("pr", fmt.Sprintf("workspace %s has no branch to open a PR from", name))
	}

	repoRoot, err := s.vcs.RepoRoot(ctx, ws.Dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve repository root: %w", err)
	}
	if err := s.vcs.PushBranch(ctx, repoRoot, ws.BranchName); err != nil {
		return "", err
	}

	if title == "" {
		title = ws.Name
	}
	url, err := s.tracker.CreatePR(ctx, title, body, ws.BranchName)
	if err != nil {
		return "", err
	}

	ws.ExternalRef = url
	s.persist(ctx, ws)
	return url, nil
}

// Workspaces returns a stable insertion-ordered snapshot of the registry.
func (s *Supervisor) Workspaces() []*workspace.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.AllOrdered()
}

// Find returns the named workspace, or nil.
func (s *Supervisor) Find(name string) *workspace.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.FindByName(name)
}

// Tracker exposes the configured tracker for read-only listing commands.
func (s *Supervisor) Tracker() ports.Tracker {
	return s.tracker
}

// reconcile refreshes slot positions. Callers must hold s.mu. Slot host
// failures leave positions untouched; the next tick retries.
func (s *Supervisor) reconcile(ctx context.Context) int {
	slots, err := s.slots.ListSlots(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list host slots", "error", err)
		return 0
	}
	return s.reconciler.Reconcile(s.registry, slots)
}

// persist saves a workspace record. Callers must hold s.mu. Persistence is a
// recovery aid, so failures are logged, not surfaced.
func (s *Supervisor) persist(ctx context.Context, ws *workspace.Workspace) {
	if s.store == nil {
		return
	}
	rec := ports.WorkspaceRecord{
		ID:           ws.ID,
		Name:         ws.Name,
		Dir:          ws.Dir,
		Status:       ws.Status,
		BranchName:   ws.BranchName,
		IsWorktree:   ws.IsWorktree,
		WorktreePath: ws.WorktreePath,
		ExternalRef:  ws.ExternalRef,
		SlotLabel:    ws.Name,
		LaunchedAt:   ws.LaunchedAt,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "failed to persist workspace record", "error", err)
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// SlugFromTitle derives a workspace name candidate from free-form text.
func SlugFromTitle(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "task"
	}
	const maxLen = 32
	if len(slug) > maxLen {
		slug = strings.Trim(slug[:maxLen], "-")
	}
	return slug
}
