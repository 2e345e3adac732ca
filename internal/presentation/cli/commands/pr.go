package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/helmware/deckhand/internal/presentation/cli/output"
)

// NewPRCmd creates the pr command.
func NewPRCmd() *cobra.Command {
	var (
		title string
		body  string
	)

	cmd := &cobra.Command{
		Use:   "pr [name]",
		Short: "List open PRs, or open one from a workspace's branch",
		Long: `Without arguments, lists the repository's open pull requests.

With a workspace name, pushes that workspace's branch and opens a pull
request from it. The workspace must be branch-backed (a worktree launch).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()

			if len(args) == 1 {
				url, err := app.Supervisor.CreatePR(cmd.Context(), args[0], title, body)
				if err != nil {
					return err
				}
				app.Formatter.Success("Opened %s", url)
				return nil
			}

			tracker := app.Supervisor.Tracker()
			if tracker == nil {
				app.Formatter.Warning("gh CLI not found; tracker commands unavailable")
				return nil
			}

			prs, err := tracker.ListOpenPRs(cmd.Context())
			if err != nil {
				return err
			}

			if app.Formatter.Format() == output.FormatJSON {
				return app.Formatter.JSON(prs)
			}

			if len(prs) == 0 {
				app.Formatter.Info("No open pull requests.")
				return nil
			}

			rows := make([][]string, 0, len(prs))
			for _, pr := range prs {
				rows = append(rows, []string{
					"#" + strconv.Itoa(pr.Number),
					pr.Title,
					pr.HeadBranch,
				})
			}
			return app.Formatter.Table(output.TableData{
				Columns: []output.TableColumn{
					{Header: "PR", Align: output.AlignRight},
					{Header: "TITLE"},
					{Header: "BRANCH"},
				},
				Rows: rows,
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "pull request title (default: workspace name)")
	cmd.Flags().StringVarP(&body, "body", "b", "", "pull request body")

	return cmd
}
