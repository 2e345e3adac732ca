package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/helmware/deckhand/internal/application/ports"
	domainerrors "github.com/helmware/deckhand/internal/domain/errors"
	"github.com/helmware/deckhand/internal/domain/workspace"
)

// fakeHandle is a scriptable agent handle.
type fakeHandle struct {
	live        bool
	exitCode    int
	fingerprint uint64
	terminated  bool
	sent        []string
}

func (h *fakeHandle) IsLive(context.Context) (bool, error)               { return h.live, nil }
func (h *fakeHandle) ExitCode(context.Context) (int, error)              { return h.exitCode, nil }
func (h *fakeHandle) ActivityFingerprint(context.Context) (uint64, error) { return h.fingerprint, nil }
func (h *fakeHandle) Terminate(context.Context) error {
	h.terminated = true
	h.live = false
	return nil
}
func (h *fakeHandle) SendText(_ context.Context, text string) error {
	h.sent = append(h.sent, text)
	return nil
}

// fakeSlotHost mirrors a tmux session: an ordered window list where spawning
// an agent creates a window labelled with the workspace name.
type fakeSlotHost struct {
	slots    []ports.Slot
	next     int
	spawnErr error
	handles  map[string]*fakeHandle
	selected []int
}

func newFakeSlotHost(labels ...string) *fakeSlotHost {
	h := &fakeSlotHost{handles: map[string]*fakeHandle{}}
	for _, l := range labels {
		h.slots = append(h.slots, ports.Slot{Index: h.next, Label: l})
		h.next++
	}
	return h
}

func (h *fakeSlotHost) ListSlots(context.Context) ([]ports.Slot, error) {
	out := make([]ports.Slot, len(h.slots))
	copy(out, h.slots)
	return out, nil
}

func (h *fakeSlotHost) CreateSlot(_ context.Context, label, _, _ string) (int, error) {
	idx := h.next
	h.next++
	h.slots = append(h.slots, ports.Slot{Index: idx, Label: label})
	return idx, nil
}

func (h *fakeSlotHost) RenameSlot(_ context.Context, index int, label string) error {
	for i := range h.slots {
		if h.slots[i].Index == index {
			h.slots[i].Label = label
			return nil
		}
	}
	return fmt.Errorf("no slot %d", index)
}

func (h *fakeSlotHost) SelectSlot(_ context.Context, index int) error {
	h.selected = append(h.selected, index)
	return nil
}

func (h *fakeSlotHost) CloseSlot(_ context.Context, index int) error {
	for i := range h.slots {
		if h.slots[i].Index == index {
			h.slots = append(h.slots[:i], h.slots[i+1:]...)
			return nil
		}
	}
	return nil
}

func (h *fakeSlotHost) Spawn(ctx context.Context, opts ports.SpawnOptions) (workspace.AgentHandle, error) {
	if h.spawnErr != nil {
		return nil, h.spawnErr
	}
	if _, err := h.CreateSlot(ctx, opts.Label, opts.Dir, opts.Command); err != nil {
		return nil, err
	}
	handle := &fakeHandle{live: true, fingerprint: 1}
	h.handles[opts.Label] = handle
	return handle, nil
}

func (h *fakeSlotHost) HandleForSlot(_ context.Context, index int) (workspace.AgentHandle, error) {
	for _, s := range h.slots {
		if s.Index == index {
			handle := &fakeHandle{live: true, fingerprint: 1}
			h.handles[s.Label] = handle
			return handle, nil
		}
	}
	return nil, fmt.Errorf("no slot %d", index)
}

// closeByLabel simulates the user closing a window out of band.
func (h *fakeSlotHost) closeByLabel(label string) {
	for i := range h.slots {
		if strings.Contains(h.slots[i].Label, label) {
			h.slots = append(h.slots[:i], h.slots[i+1:]...)
			return
		}
	}
}

// fakeVCS records worktree operations without touching git.
type fakeVCS struct {
	root      string
	createErr error
	created   []string
	removed   []string
	pushed    []string
}

func (v *fakeVCS) RepoRoot(context.Context, string) (string, error) {
	if v.root == "" {
		return "", errors.New("not a git repository")
	}
	return v.root, nil
}

func (v *fakeVCS) CurrentBranch(context.Context, string) (string, error) { return "main", nil }

func (v *fakeVCS) Create(_ context.Context, repoRoot, name, _ string) (string, string, error) {
	if v.createErr != nil {
		return "", "", v.createErr
	}
	path := repoRoot + "/.agents-worktrees/" + name
	v.created = append(v.created, path)
	return path, "agents/" + name, nil
}

func (v *fakeVCS) Remove(_ context.Context, _, path string) error {
	v.removed = append(v.removed, path)
	return nil
}

func (v *fakeVCS) PushBranch(_ context.Context, _, branch string) error {
	v.pushed = append(v.pushed, branch)
	return nil
}

// fakeTracker is an in-memory tracker.
type fakeTracker struct {
	issues  []ports.Issue
	prs     []ports.PullRequest
	created []string
}

func (t *fakeTracker) ListOpenIssues(context.Context) ([]ports.Issue, error) { return t.issues, nil }
func (t *fakeTracker) ListOpenPRs(context.Context) ([]ports.PullRequest, error) { return t.prs, nil }
func (t *fakeTracker) CreatePR(_ context.Context, title, _, headBranch string) (string, error) {
	t.created = append(t.created, headBranch)
	return "https://example.com/pull/" + title, nil
}

// fakeStore keeps records in a map.
type fakeStore struct {
	records map[string]ports.WorkspaceRecord
}

func newFakeStore() *fakeStore { return &fakeStore{records: map[string]ports.WorkspaceRecord{}} }

func (s *fakeStore) Save(_ context.Context, rec ports.WorkspaceRecord) error {
	s.records[rec.ID] = rec
	return nil
}
func (s *fakeStore) Delete(_ context.Context, id string) error {
	delete(s.records, id)
	return nil
}
func (s *fakeStore) List(context.Context) ([]ports.WorkspaceRecord, error) {
	out := make([]ports.WorkspaceRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}
func (s *fakeStore) Close() error { return nil }

func newTestSupervisor(host *fakeSlotHost, vcs *fakeVCS, tracker ports.Tracker, store ports.WorkspaceStateStore) *Supervisor {
	return New(host, host, vcs, tracker, store, Options{AgentCommand: "claude"}, nil, nil)
}

func TestLaunchRegistersAndReconciles(t *testing.T) {
	host := newFakeSlotHost("Dashboard")
	sup := newTestSupervisor(host, &fakeVCS{root: "/repo"}, nil, nil)

	ws, err := sup.Launch(context.Background(), LaunchOptions{Name: "auth-fix", Dir: "/repo"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if ws.Name != "auth-fix" {
		t.Errorf("Name = %q", ws.Name)
	}
	if ws.SlotPosition != 1 {
		t.Errorf("SlotPosition = %d, want 1", ws.SlotPosition)
	}
	if ws.Status != workspace.StatusRunning {
		t.Errorf("Status = %q, want running", ws.Status)
	}
	if sup.Find("auth-fix") == nil {
		t.Error("workspace not registered")
	}
}

func TestLaunchDisambiguatesNames(t *testing.T) {
	host := newFakeSlotHost()
	sup := newTestSupervisor(host, &fakeVCS{root: "/repo"}, nil, nil)
	ctx := context.Background()

	names := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		ws, err := sup.Launch(ctx, LaunchOptions{Name: "auth-fix", Dir: "/repo"})
		if err != nil {
			t.Fatalf("Launch() %d error = %v", i, err)
		}
		names = append(names, ws.Name)
	}

	want := []string{"auth-fix", "auth-fix-2", "auth-fix-3"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("launch %d name = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestLaunchWorktree(t *testing.T) {
	host := newFakeSlotHost()
	vcs := &fakeVCS{root: "/repo"}
	sup := newTestSupervisor(host, vcs, nil, nil)

	ws, err := sup.Launch(context.Background(), LaunchOptions{
		Name: "feature-x", Dir: "/repo", UseWorktree: true,
	})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if !ws.IsWorktree || ws.WorktreePath != "/repo/.agents-worktrees/feature-x" {
		t.Errorf("worktree fields wrong: %+v", ws)
	}
	if ws.BranchName != "agents/feature-x" {
		t.Errorf("BranchName = %q", ws.BranchName)
	}
	if ws.Dir != ws.WorktreePath {
		t.Errorf("Dir = %q, want the worktree path", ws.Dir)
	}
}

func TestLaunchSpawnFailureLeavesRegistryUnmodified(t *testing.T) {
	host := newFakeSlotHost()
	host.spawnErr = errors.New("spawn failed")
	sup := newTestSupervisor(host, &fakeVCS{root: "/repo"}, nil, nil)

	if _, err := sup.Launch(context.Background(), LaunchOptions{Name: "auth-fix", Dir: "/repo"}); err == nil {
		t.Fatal("expected spawn error")
	}
	if len(sup.Workspaces()) != 0 {
		t.Error("registry mutated despite spawn failure")
	}
}

func TestLaunchWorktreeCreateFailureLeavesRegistryUnmodified(t *testing.T) {
	host := newFakeSlotHost("Dashboard")
	vcs := &fakeVCS{root: "/repo", createErr: domainerrors.NewError(domainerrors.CodeValidation,
		"worktree path already exists: /repo/.agents-worktrees/auth-fix", domainerrors.ErrWorktreeExists)}
	sup := newTestSupervisor(host, vcs, nil, nil)

	_, err := sup.Launch(context.Background(), LaunchOptions{
		Name: "auth-fix", Dir: "/repo", UseWorktree: true,
	})
	if !errors.Is(err, domainerrors.ErrWorktreeExists) {
		t.Fatalf("Launch() error = %v, want ErrWorktreeExists", err)
	}
	if len(sup.Workspaces()) != 0 {
		t.Error("registry mutated despite worktree creation failure")
	}
	if len(host.handles) != 0 {
		t.Error("agent spawned despite worktree creation failure")
	}
}

func TestLaunchWorktreeWithoutVersionControl(t *testing.T) {
	host := newFakeSlotHost("Dashboard")
	sup := New(host, host, nil, nil, nil, Options{AgentCommand: "claude"}, nil, nil)

	_, err := sup.Launch(context.Background(), LaunchOptions{
		Name: "auth-fix", Dir: "/repo", UseWorktree: true,
	})
	if err == nil {
		t.Fatal("expected precondition error")
	}
	var derr *domainerrors.DeckhandError
	if !errors.As(err, &derr) || derr.Code != domainerrors.CodePrecondition {
		t.Fatalf("Launch() error = %v, want code %s", err, domainerrors.CodePrecondition)
	}
	if len(sup.Workspaces()) != 0 {
		t.Error("registry mutated despite missing version control")
	}
}

func TestKillRemovesEverything(t *testing.T) {
	host := newFakeSlotHost("Dashboard")
	vcs := &fakeVCS{root: "/repo"}
	store := newFakeStore()
	sup := newTestSupervisor(host, vcs, nil, store)
	ctx := context.Background()

	ws, err := sup.Launch(ctx, LaunchOptions{Name: "auth-fix", Dir: "/repo", UseWorktree: true})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	handle := host.handles["auth-fix"]

	if err := sup.Kill(ctx, "auth-fix", true); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	if sup.Find("auth-fix") != nil {
		t.Error("workspace still registered after kill")
	}
	if len(sup.Workspaces()) != 0 {
		t.Error("AllOrdered still lists the killed workspace")
	}
	if !handle.terminated {
		t.Error("agent handle not terminated")
	}
	if len(vcs.removed) != 1 || vcs.removed[0] != ws.WorktreePath {
		t.Errorf("worktree not removed: %v", vcs.removed)
	}
	if len(store.records) != 0 {
		t.Error("persisted record not deleted")
	}
	if len(host.slots) != 1 {
		t.Errorf("slot not closed, %d slots remain", len(host.slots))
	}
}

func TestKillUnknownWorkspace(t *testing.T) {
	sup := newTestSupervisor(newFakeSlotHost(), &fakeVCS{root: "/repo"}, nil, nil)

	err := sup.Kill(context.Background(), "ghost", false)
	if !errors.Is(err, domainerrors.ErrWorkspaceNotFound) {
		t.Errorf("error = %v, want ErrWorkspaceNotFound", err)
	}
}

func TestSwitchSelectsSlot(t *testing.T) {
	host := newFakeSlotHost("Dashboard")
	sup := newTestSupervisor(host, &fakeVCS{root: "/repo"}, nil, nil)
	ctx := context.Background()

	if _, err := sup.Launch(ctx, LaunchOptions{Name: "auth-fix", Dir: "/repo"}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if err := sup.Switch(ctx, "auth-fix"); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}
	if len(host.selected) != 1 || host.selected[0] != 1 {
		t.Errorf("selected = %v, want [1]", host.selected)
	}
}

func TestSwitchOrphanFails(t *testing.T) {
	host := newFakeSlotHost("Dashboard")
	sup := newTestSupervisor(host, &fakeVCS{root: "/repo"}, nil, nil)
	ctx := context.Background()

	if _, err := sup.Launch(ctx, LaunchOptions{Name: "auth-fix", Dir: "/repo"}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	// The user closes the window behind our back.
	host.closeByLabel("auth-fix")

	err := sup.Switch(ctx, "auth-fix")
	if !errors.Is(err, domainerrors.ErrOrphanedSlot) {
		t.Errorf("error = %v, want ErrOrphanedSlot", err)
	}
	if len(host.selected) != 0 {
		t.Errorf("an arbitrary slot was selected: %v", host.selected)
	}
}

func TestSendReachesHandle(t *testing.T) {
	host := newFakeSlotHost()
	sup := newTestSupervisor(host, &fakeVCS{root: "/repo"}, nil, nil)
	ctx := context.Background()

	if _, err := sup.Launch(ctx, LaunchOptions{Name: "auth-fix", Dir: "/repo"}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if err := sup.Send(ctx, "auth-fix", "run the tests"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	handle := host.handles["auth-fix"]
	if len(handle.sent) != 1 || handle.sent[0] != "run the tests" {
		t.Errorf("sent = %v", handle.sent)
	}
}

func TestSendToDeadAgentFails(t *testing.T) {
	host := newFakeSlotHost()
	sup := newTestSupervisor(host, &fakeVCS{root: "/repo"}, nil, nil)
	ctx := context.Background()

	if _, err := sup.Launch(ctx, LaunchOptions{Name: "auth-fix", Dir: "/repo"}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	host.handles["auth-fix"].live = false
	host.handles["auth-fix"].exitCode = 0
	NewPoller(sup, DefaultPollInterval).Tick(ctx)

	err := sup.Send(ctx, "auth-fix", "hello?")
	if !errors.Is(err, domainerrors.ErrAgentNotLive) {
		t.Errorf("error = %v, want ErrAgentNotLive", err)
	}
}

func TestLaunchFromIssue(t *testing.T) {
	host := newFakeSlotHost()
	sup := newTestSupervisor(host, &fakeVCS{root: "/repo"}, &fakeTracker{}, nil)

	ws, err := sup.LaunchFromIssue(context.Background(), "/repo", ports.Issue{
		Number: 42, Title: "Fix login timeout!", Body: "Sessions expire early.",
	})
	if err != nil {
		t.Fatalf("LaunchFromIssue() error = %v", err)
	}
	if ws.Name != "fix-login-timeout" {
		t.Errorf("Name = %q", ws.Name)
	}
	if ws.ExternalRef != "#42" {
		t.Errorf("ExternalRef = %q", ws.ExternalRef)
	}
	if !ws.IsWorktree {
		t.Error("issue launch should be worktree-backed")
	}
}

func TestCreatePRPushesAndRecordsURL(t *testing.T) {
	host := newFakeSlotHost()
	vcs := &fakeVCS{root: "/repo"}
	tracker := &fakeTracker{}
	sup := newTestSupervisor(host, vcs, tracker, nil)
	ctx := context.Background()

	if _, err := sup.Launch(ctx, LaunchOptions{Name: "feature-x", Dir: "/repo", UseWorktree: true}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	url, err := sup.CreatePR(ctx, "feature-x", "Feature X", "details")
	if err != nil {
		t.Fatalf("CreatePR() error = %v", err)
	}
	if url == "" {
		t.Error("empty PR URL")
	}
	if len(vcs.pushed) != 1 || vcs.pushed[0] != "agents/feature-x" {
		t.Errorf("pushed = %v", vcs.pushed)
	}
	if len(tracker.created) != 1 || tracker.created[0] != "agents/feature-x" {
		t.Errorf("created = %v", tracker.created)
	}
	if got := sup.Find("feature-x").ExternalRef; got != url {
		t.Errorf("ExternalRef = %q, want %q", got, url)
	}
}

func TestCreatePRWithoutTracker(t *testing.T) {
	sup := newTestSupervisor(newFakeSlotHost(), &fakeVCS{root: "/repo"}, nil, nil)

	_, err := sup.CreatePR(context.Background(), "any", "t", "b")
	if !errors.Is(err, domainerrors.ErrTrackerUnavailable) {
		t.Errorf("error = %v, want ErrTrackerUnavailable", err)
	}
}

func TestSlugFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Fix login timeout!", "fix-login-timeout"},
		{"  Spaced   out  ", "spaced-out"},
		{"ALL CAPS", "all-caps"},
		{"???", "task"},
		{"a-very-long-title-that-keeps-going-and-going", "a-very-long-title-that-keeps-goi"},
	}
	for _, tt := range tests {
		if got := SlugFromTitle(tt.title); got != tt.want {
			t.Errorf("SlugFromTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
