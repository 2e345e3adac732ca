// Package process provides process and terminal management for supervised
// agents: a tmux-backed slot host plus agent handles, and a PTY fallback for
// headless use.
package process

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"os/exec"
	"strconv"
	"strings"

	"github.com/helmware/deckhand/internal/application/ports"
	"github.com/helmware/deckhand/internal/domain/workspace"
)

// TmuxSlotHost exposes the windows of one tmux session as host UI slots and
// spawns agent processes into them. The window list is owned by tmux and the
// user; deckhand only observes and reconciles against it.
type TmuxSlotHost struct {
	tmuxPath string
	session  string // target session; empty targets the attached session
}

// Compile-time checks that TmuxSlotHost covers both collaborator boundaries.
var (
	_ ports.SlotHost     = (*TmuxSlotHost)(nil)
	_ ports.AgentSpawner = (*TmuxSlotHost)(nil)
)

// NewTmuxSlotHost creates a new tmux slot host.
func NewTmuxSlotHost(session string) (*TmuxSlotHost, error) {
	path, err := exec.LookPath("tmux")
	if err != nil {
		return nil, fmt.Errorf("tmux not found in PATH: %w", err)
	}

	return &TmuxSlotHost{
		tmuxPath: path,
		session:  session,
	}, nil
}

// run executes a tmux subcommand and returns its stdout.
func (h *TmuxSlotHost) run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, h.tmuxPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tmux %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

// target formats a window target in the configured session.
func (h *TmuxSlotHost) target(index int) string {
	return fmt.Sprintf("%s:%d", h.session, index)
}

// ListSlots returns the session's windows in display order.
func (h *TmuxSlotHost) ListSlots(ctx context.Context) ([]ports.Slot, error) {
	args := []string{"list-windows", "-F", "#{window_index}\t#{window_name}"}
	if h.session != "" {
		args = append(args, "-t", h.session)
	}

	out, err := h.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	var slots []ports.Slot
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		idx, label, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		index, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}
		slots = append(slots, ports.Slot{Index: index, Label: label})
	}
	return slots, nil
}

// CreateSlot creates a new window running the given command and returns its
// index. The window keeps its pane around after the command exits so the
// exit status stays observable.
func (h *TmuxSlotHost) CreateSlot(ctx context.Context, label, dir, command string) (int, error) {
	args := []string{"new-window", "-d", "-P", "-F", "#{window_index}", "-n", label}
	if h.session != "" {
		args = append(args, "-t", h.session+":")
	}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	if command != "" {
		args = append(args, command)
	}

	out, err := h.run(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to create window: %w", err)
	}

	index, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("failed to parse window index %q: %w", out, err)
	}

	// remain-on-exit keeps the dead pane so pane_dead_status is readable.
	if _, err := h.run(ctx, "set-option", "-t", h.target(index), "remain-on-exit", "on"); err != nil {
		return index, fmt.Errorf("failed to set remain-on-exit: %w", err)
	}

	return index, nil
}

// RenameSlot renames the window at the given index.
func (h *TmuxSlotHost) RenameSlot(ctx context.Context, index int, label string) error {
	if _, err := h.run(ctx, "rename-window", "-t", h.target(index), label); err != nil {
		return fmt.Errorf("failed to rename window %d: %w", index, err)
	}
	return nil
}

// SelectSlot makes the window at the given index the active one.
func (h *TmuxSlotHost) SelectSlot(ctx context.Context, index int) error {
	if _, err := h.run(ctx, "select-window", "-t", h.target(index)); err != nil {
		return fmt.Errorf("failed to select window %d: %w", index, err)
	}
	return nil
}

// CloseSlot kills the window at the given index. A window that is already
// gone is not an error.
func (h *TmuxSlotHost) CloseSlot(ctx context.Context, index int) error {
	_, err := h.run(ctx, "kill-window", "-t", h.target(index))
	if err != nil {
		if strings.Contains(err.Error(), "can't find window") ||
			strings.Contains(err.Error(), "no server running") {
			return nil
		}
		return fmt.Errorf("failed to close window %d: %w", index, err)
	}
	return nil
}

// Spawn starts an agent in a new window and returns a handle bound to the
// window's pane. The pane ID stays stable across window reordering, so the
// handle survives slot moves.
func (h *TmuxSlotHost) Spawn(ctx context.Context, opts ports.SpawnOptions) (workspace.AgentHandle, error) {
	if opts.Command == "" {
		return nil, fmt.Errorf("agent command cannot be empty")
	}

	index, err := h.CreateSlot(ctx, opts.Label, opts.Dir, opts.Command)
	if err != nil {
		return nil, err
	}

	paneID, err := h.run(ctx, "display-message", "-p", "-t", h.target(index), "#{pane_id}")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pane for window %d: %w", index, err)
	}

	handle := &TmuxAgentHandle{
		host:   h,
		paneID: strings.TrimSpace(paneID),
	}

	if opts.InitialPrompt != "" {
		if err := handle.SendText(ctx, opts.InitialPrompt); err != nil {
			return handle, fmt.Errorf("agent started but initial prompt failed: %w", err)
		}
	}

	return handle, nil
}

// HandleForSlot rebinds to the pane of an existing window. Used on startup
// recovery to re-adopt agents whose windows outlived the previous supervisor
// process.
func (h *TmuxSlotHost) HandleForSlot(ctx context.Context, index int) (workspace.AgentHandle, error) {
	paneID, err := h.run(ctx, "display-message", "-p", "-t", h.target(index), "#{pane_id}")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pane for window %d: %w", index, err)
	}
	return &TmuxAgentHandle{host: h, paneID: strings.TrimSpace(paneID)}, nil
}

// TmuxAgentHandle is an AgentHandle backed by a tmux pane. Liveness and exit
// status come from the pane's dead flags; the activity fingerprint is a hash
// of the visible pane content, which changes whenever the agent writes
// output.
type TmuxAgentHandle struct {
	host   *TmuxSlotHost
	paneID string
}

var _ workspace.AgentHandle = (*TmuxAgentHandle)(nil)

// PaneID returns the tmux pane identifier backing this handle.
func (t *TmuxAgentHandle) PaneID() string {
	return t.paneID
}

// IsLive reports whether the pane's process is still running.
func (t *TmuxAgentHandle) IsLive(ctx context.Context) (bool, error) {
	out, err := t.host.run(ctx, "display-message", "-p", "-t", t.paneID, "#{pane_dead}")
	if err != nil {
		return false, fmt.Errorf("pane %s liveness query: %w", t.paneID, err)
	}
	return strings.TrimSpace(out) == "0", nil
}

// ExitCode returns the dead pane's exit status.
func (t *TmuxAgentHandle) ExitCode(ctx context.Context) (int, error) {
	out, err := t.host.run(ctx, "display-message", "-p", "-t", t.paneID, "#{pane_dead_status}")
	if err != nil {
		return 0, fmt.Errorf("pane %s exit status query: %w", t.paneID, err)
	}

	code, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("pane %s reported exit status %q: %w", t.paneID, out, err)
	}
	return code, nil
}

// ActivityFingerprint hashes the pane's visible content. Equal hashes across
// ticks mean no new output was produced.
func (t *TmuxAgentHandle) ActivityFingerprint(ctx context.Context) (uint64, error) {
	out, err := t.host.run(ctx, "capture-pane", "-p", "-t", t.paneID)
	if err != nil {
		return 0, fmt.Errorf("pane %s capture: %w", t.paneID, err)
	}

	h := fnv.New64a()
	h.Write([]byte(out))
	return h.Sum64(), nil
}

// SendText sends a line of text to the pane followed by Enter.
func (t *TmuxAgentHandle) SendText(ctx context.Context, text string) error {
	if _, err := t.host.run(ctx, "send-keys", "-t", t.paneID, text, "Enter"); err != nil {
		return fmt.Errorf("failed to send text to pane %s: %w", t.paneID, err)
	}
	return nil
}

// Terminate kills the pane's process. A pane that is already gone is not an
// error.
func (t *TmuxAgentHandle) Terminate(ctx context.Context) error {
	_, err := t.host.run(ctx, "kill-pane", "-t", t.paneID)
	if err != nil {
		if strings.Contains(err.Error(), "can't find pane") ||
			strings.Contains(err.Error(), "no server running") {
			return nil
		}
		return fmt.Errorf("failed to kill pane %s: %w", t.paneID, err)
	}
	return nil
}
