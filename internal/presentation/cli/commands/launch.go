package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/helmware/deckhand/internal/application/supervisor"
)

// NewLaunchCmd creates the launch command.
func NewLaunchCmd() *cobra.Command {
	var (
		dir      string
		worktree bool
		base     string
		prompt   string
		command  string
	)

	cmd := &cobra.Command{
		Use:   "launch [name]",
		Short: "Launch an agent in a new workspace",
		Long: `Launch an agent in a new tmux window bound to a directory.

With --worktree, the workspace gets its own git worktree under the
configured worktree root, on a fresh branch named after the workspace.
If the name is already taken, a numeric suffix is appended (-2, -3, ...).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()

			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to determine working directory: %w", err)
				}
				dir = wd
			}

			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			if name == "" {
				name = filepath.Base(dir)
			}

			ws, err := app.Supervisor.Launch(cmd.Context(), supervisor.LaunchOptions{
				Name:          name,
				Dir:           dir,
				UseWorktree:   worktree,
				BaseBranch:    base,
				InitialPrompt: prompt,
				Command:       command,
			})
			if err != nil {
				return err
			}

			app.Formatter.Success("Launched %s in slot %d", ws.Name, ws.SlotPosition)
			if ws.IsWorktree {
				app.Formatter.Item("worktree", ws.WorktreePath)
				app.Formatter.Item("branch", ws.BranchName)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "workspace directory (default: current directory)")
	cmd.Flags().BoolVarP(&worktree, "worktree", "w", false, "create an isolated git worktree for the workspace")
	cmd.Flags().StringVarP(&base, "base", "b", "", "base branch for the worktree (default: current HEAD)")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "initial prompt sent to the agent")
	cmd.Flags().StringVar(&command, "command", "", "agent command (default: from config)")

	return cmd
}
