package commands

import (
	"github.com/spf13/cobra"
)

// NewKillCmd creates the kill command.
func NewKillCmd() *cobra.Command {
	var keepWorktree bool

	cmd := &cobra.Command{
		Use:   "kill <name>",
		Short: "Terminate a workspace's agent and remove it",
		Long: `Terminate the agent process, close its tmux window, and remove the
workspace from the registry. Worktree-backed workspaces also have their
worktree removed unless --keep-worktree is given. Finished (done/error)
workspaces stay visible until killed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()

			if err := app.Supervisor.Kill(cmd.Context(), args[0], !keepWorktree); err != nil {
				return err
			}
			app.Formatter.Success("Killed %s", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&keepWorktree, "keep-worktree", "k", false, "leave the worktree and branch in place")

	return cmd
}
