package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/helmware/deckhand/internal/application/supervisor"
	"github.com/helmware/deckhand/internal/infrastructure/history"
	"github.com/helmware/deckhand/internal/presentation/cli/output"
)

// historyDir resolves the session log directory from config, defaulting to
// ~/.deckhand/history.
func historyDir(cfgDir string) string {
	if cfgDir != "" {
		return cfgDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".deckhand", "history")
}

// NewResumeCmd creates the resume command.
func NewResumeCmd() *cobra.Command {
	var (
		sessionID string
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "List past agent sessions, or resume one",
		Long: `List past agent sessions recorded in the agent's history log for the
current project.

With --session ID, launches a new workspace whose agent resumes that
session instead of starting fresh.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()

			dir, err := os.Getwd()
			if err != nil {
				return err
			}

			idx := history.NewSessionIndex(historyDir(app.Config.History.Dir))
			project := dir
			if all {
				project = ""
			}
			sessions, err := idx.ListSessions(cmd.Context(), project)
			if err != nil {
				return err
			}

			if sessionID != "" {
				for _, s := range sessions {
					if s.SessionID != sessionID {
						continue
					}
					name := supervisor.SlugFromTitle(s.FirstPrompt)
					ws, err := app.Supervisor.Launch(cmd.Context(), supervisor.LaunchOptions{
						Name:    name,
						Dir:     dir,
						Command: fmt.Sprintf("%s --resume %s", app.Config.Agent.Command, s.SessionID),
					})
					if err != nil {
						return err
					}
					app.Formatter.Success("Resumed session %s as %s in slot %d", s.SessionID, ws.Name, ws.SlotPosition)
					return nil
				}
				return fmt.Errorf("no recorded session %s", sessionID)
			}

			if app.Formatter.Format() == output.FormatJSON {
				return app.Formatter.JSON(sessions)
			}

			if len(sessions) == 0 {
				app.Formatter.Info("No recorded sessions for this project.")
				return nil
			}

			now := time.Now()
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				prompt := s.FirstPrompt
				if len(prompt) > 60 {
					prompt = prompt[:57] + "..."
				}
				branch := s.Branch
				if branch == "" {
					branch = "-"
				}
				rows = append(rows, []string{
					s.SessionID,
					output.Age(s.ModifiedAt, now),
					branch,
					prompt,
				})
			}
			return app.Formatter.Table(output.TableData{
				Columns: []output.TableColumn{
					{Header: "SESSION"},
					{Header: "AGE", Align: output.AlignRight},
					{Header: "BRANCH"},
					{Header: "FIRST PROMPT"},
				},
				Rows: rows,
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "resume the given session in a new workspace")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list sessions from all projects")

	return cmd
}
