package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	domainerrors "github.com/helmware/deckhand/internal/domain/errors"
	"github.com/helmware/deckhand/internal/presentation/cli/output"
)

// NewIssuesCmd creates the issues command.
func NewIssuesCmd() *cobra.Command {
	var launch int

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List open issues, or launch an agent on one",
		Long: `List the repository's open issues from the remote tracker.

With --launch N, starts a worktree-backed workspace for issue N instead:
the workspace is named after the issue title and the agent's first prompt
carries the issue title and body.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()

			tracker := app.Supervisor.Tracker()
			if tracker == nil {
				return domainerrors.NewError(domainerrors.CodePrecondition,
					"gh CLI not found; install it to use tracker commands", domainerrors.ErrTrackerUnavailable)
			}

			issues, err := tracker.ListOpenIssues(cmd.Context())
			if err != nil {
				return err
			}

			if launch > 0 {
				for _, issue := range issues {
					if issue.Number != launch {
						continue
					}
					dir, err := os.Getwd()
					if err != nil {
						return err
					}
					ws, err := app.Supervisor.LaunchFromIssue(cmd.Context(), dir, issue)
					if err != nil {
						return err
					}
					app.Formatter.Success("Launched %s for issue #%d in slot %d", ws.Name, issue.Number, ws.SlotPosition)
					return nil
				}
				return fmt.Errorf("no open issue #%d", launch)
			}

			if app.Formatter.Format() == output.FormatJSON {
				return app.Formatter.JSON(issues)
			}

			if len(issues) == 0 {
				app.Formatter.Info("No open issues.")
				return nil
			}

			rows := make([][]string, 0, len(issues))
			for _, issue := range issues {
				rows = append(rows, []string{
					"#" + strconv.Itoa(issue.Number),
					issue.Title,
				})
			}
			return app.Formatter.Table(output.TableData{
				Columns: []output.TableColumn{
					{Header: "ISSUE", Align: output.AlignRight},
					{Header: "TITLE"},
				},
				Rows: rows,
			})
		},
	}

	cmd.Flags().IntVarP(&launch, "launch", "l", 0, "launch a workspace for the given issue number")

	return cmd
}
