package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/creack/pty"

	"github.com/helmware/deckhand/internal/application/ports"
	"github.com/helmware/deckhand/internal/domain/workspace"
)

var _ ports.AgentSpawner = (*PTYSpawner)(nil)

// PTYSpawner launches agents under a pseudo-terminal owned by this process.
// It is the fallback when no tmux server is available: agents are not
// attachable, but status detection works the same way because the handle
// reports liveness, exit codes, and output activity.
type PTYSpawner struct {
	shell string
}

// NewPTYSpawner returns a spawner that runs agent commands through the
// user's shell, falling back to /bin/sh.
func NewPTYSpawner() *PTYSpawner {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &PTYSpawner{shell: shell}
}

// Spawn starts the agent command in dir attached to a new pty and returns a
// handle over the running process.
func (s *PTYSpawner) Spawn(ctx context.Context, opts ports.SpawnOptions) (workspace.AgentHandle, error) {
	if opts.Command == "" {
		return nil, fmt.Errorf("agent command must not be empty")
	}

	cmd := exec.Command(s.shell, "-c", opts.Command)
	cmd.Dir = opts.Dir
	cmd.Env = os.Environ()

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to start agent %q: %w", opts.Command, err)
	}

	h := &PTYHandle{
		cmd:  cmd,
		ptmx: ptmx,
		done: make(chan struct{}),
	}
	go h.drain()
	go h.wait()

	if opts.InitialPrompt != "" {
		if _, err := io.WriteString(ptmx, opts.InitialPrompt+"\n"); err != nil {
			_ = h.Terminate(ctx)
			return nil, fmt.Errorf("failed to deliver initial prompt: %w", err)
		}
	}
	return h, nil
}

var _ workspace.AgentHandle = (*PTYHandle)(nil)

// PTYHandle wraps a process started under a pty. Output activity is tracked
// as a running byte count, which serves as the activity fingerprint: any new
// output changes the count.
type PTYHandle struct {
	cmd  *exec.Cmd
	ptmx *os.File

	bytesRead atomic.Uint64

	done     chan struct{}
	exitOnce sync.Once
	exitCode atomic.Int64
}

func (h *PTYHandle) drain() {
	buf := make([]byte, 4096)
	for {
		n, err := h.ptmx.Read(buf)
		if n > 0 {
			h.bytesRead.Add(uint64(n))
		}
		if err != nil {
			// Read fails with EIO once the child side closes.
			return
		}
	}
}

func (h *PTYHandle) wait() {
	err := h.cmd.Wait()
	h.exitOnce.Do(func() {
		code := 0
		if err != nil {
			code = 1
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			}
		}
		h.exitCode.Store(int64(code))
		close(h.done)
	})
	_ = h.ptmx.Close()
}

// IsLive reports whether the process is still running.
func (h *PTYHandle) IsLive(_ context.Context) (bool, error) {
	select {
	case <-h.done:
		return false, nil
	default:
		return true, nil
	}
}

// ExitCode returns the recorded exit code. It is only meaningful after the
// process has exited.
func (h *PTYHandle) ExitCode(_ context.Context) (int, error) {
	select {
	case <-h.done:
		return int(h.exitCode.Load()), nil
	default:
		return 0, fmt.Errorf("agent process is still running")
	}
}

// ActivityFingerprint returns the total bytes the agent has written so far.
func (h *PTYHandle) ActivityFingerprint(_ context.Context) (uint64, error) {
	return h.bytesRead.Load(), nil
}

// SendText writes a line of input to the agent's terminal.
func (h *PTYHandle) SendText(_ context.Context, text string) error {
	if _, err := io.WriteString(h.ptmx, text+"\n"); err != nil {
		return fmt.Errorf("failed to write to agent pty: %w", err)
	}
	return nil
}

// Terminate asks the process to exit with SIGTERM. Already-exited processes
// are not an error.
func (h *PTYHandle) Terminate(_ context.Context) error {
	select {
	case <-h.done:
		return nil
	default:
	}
	if h.cmd.Process == nil {
		return nil
	}
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if err == os.ErrProcessDone {
			return nil
		}
		return fmt.Errorf("failed to signal agent process: %w", err)
	}
	return nil
}
