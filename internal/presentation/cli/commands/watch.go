package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/helmware/deckhand/internal/application/supervisor"
	"github.com/helmware/deckhand/internal/domain/workspace"
	"github.com/helmware/deckhand/internal/infrastructure/history"
	"github.com/helmware/deckhand/internal/presentation/cli/output"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the supervision loop in the foreground",
		Long: `Poll every workspace on the configured interval: recompute statuses,
reconcile tmux window positions, and prefix each window's name with a
status glyph (▶ running, ⏸ waiting, ✔ done, ✖ error). Status changes are
printed as they happen. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			lastStatus := make(map[string]workspace.Status)
			observer := func() {
				for _, ws := range app.Supervisor.Workspaces() {
					if prev, ok := lastStatus[ws.Name]; ok && prev != ws.Status {
						app.Formatter.Println("%s %s: %s -> %s",
							app.Formatter.Dim("status"), ws.Name, prev, ws.Status)
					}
					lastStatus[ws.Name] = ws.Status

					if !ws.Orphaned() {
						label := output.SlotLabel(ws)
						_ = app.SlotHost.RenameSlot(context.Background(), ws.SlotPosition, label)
					}
				}
			}

			// Surface new agent sessions appearing in the history log while
			// watching.
			if w, err := history.NewWatcher(history.DefaultWatcherConfig()); err == nil {
				if err := w.Watch(historyDir(app.Config.History.Dir)); err == nil {
					defer w.Close()
					go func() {
						for range w.Events() {
							app.Formatter.Info("History log updated; 'deckhand resume' lists new sessions")
						}
					}()
				}
			}

			app.Formatter.Info("Watching %d workspace(s); Ctrl-C to stop.", len(app.Supervisor.Workspaces()))

			poller := supervisor.NewPoller(app.Supervisor, app.Config.Poller.Interval, observer)
			poller.Tick(ctx)
			poller.Run(ctx)
			return nil
		},
	}

	return cmd
}
