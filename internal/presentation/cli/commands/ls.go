package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/helmware/deckhand/internal/presentation/cli/output"
)

// WorkspaceInfo is the JSON shape of one workspace in ls output.
type WorkspaceInfo struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Slot        int    `json:"slot"`
	Dir         string `json:"dir"`
	Branch      string `json:"branch,omitempty"`
	Worktree    string `json:"worktree,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"`
	LaunchedAt  string `json:"launched_at"`
}

// NewLsCmd creates the ls command.
func NewLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List active workspaces",
		Long: `List all active workspaces with their inferred status.

Status is a heuristic: it is derived from process liveness and output
activity, not reported by the agent itself. A quietly thinking agent can
show as waiting until it produces output again.`,
		Aliases: []string{"list"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()

			// One detection pass so statuses are current, not as of the
			// last background tick.
			app.Poller.Tick(cmd.Context())

			workspaces := app.Supervisor.Workspaces()
			now := time.Now()

			if app.Formatter.Format() == output.FormatJSON {
				infos := make([]WorkspaceInfo, 0, len(workspaces))
				for _, ws := range workspaces {
					infos = append(infos, WorkspaceInfo{
						Name:        ws.Name,
						Status:      string(ws.Status),
						Slot:        ws.SlotPosition,
						Dir:         ws.Dir,
						Branch:      ws.BranchName,
						Worktree:    ws.WorktreePath,
						ExternalRef: ws.ExternalRef,
						LaunchedAt:  ws.LaunchedAt.Format(time.RFC3339),
					})
				}
				return app.Formatter.JSON(map[string]any{
					"workspaces": infos,
					"count":      len(infos),
				})
			}

			if len(workspaces) == 0 {
				app.Formatter.Info("No active workspaces. Use 'deckhand launch' to start one.")
				return nil
			}

			rows := make([][]string, 0, len(workspaces))
			for _, ws := range workspaces {
				slot := strconv.Itoa(ws.SlotPosition)
				if ws.Orphaned() {
					slot = app.Formatter.Dim("orphan")
				}
				branch := ws.BranchName
				if branch == "" {
					branch = "-"
				}
				ref := ws.ExternalRef
				if ref == "" {
					ref = "-"
				}
				rows = append(rows, []string{
					ws.Name,
					app.Formatter.StatusText(ws.Status),
					slot,
					branch,
					output.Age(ws.LaunchedAt, now),
					ref,
				})
			}

			return app.Formatter.Table(output.TableData{
				Columns: []output.TableColumn{
					{Header: "NAME"},
					{Header: "STATUS"},
					{Header: "SLOT", Align: output.AlignRight},
					{Header: "BRANCH"},
					{Header: "AGE", Align: output.AlignRight},
					{Header: "REF"},
				},
				Rows: rows,
			})
		},
	}

	return cmd
}
