package commands

import (
	"github.com/spf13/cobra"
)

// NewSwitchCmd creates the switch command.
func NewSwitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch <name>",
		Short: "Focus a workspace's tmux window",
		Long: `Select the tmux window of the named workspace.

Fails if the workspace's window was closed or renamed outside deckhand;
such orphaned workspaces show as "orphan" in 'deckhand ls'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()
			return app.Supervisor.Switch(cmd.Context(), args[0])
		},
	}

	return cmd
}
