package commands

import (
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <name> [text...]",
		Short: "Send input to a workspace's agent",
		Long: `Send a line of text to the named workspace's agent.

With text arguments, sends them as one line and exits. Without, opens an
interactive prompt; each line is delivered to the agent as you enter it.
Exit with Ctrl-D.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()
			name := args[0]

			if len(args) > 1 {
				return app.Supervisor.Send(cmd.Context(), name, strings.Join(args[1:], " "))
			}

			rl, err := readline.New(name + "> ")
			if err != nil {
				return err
			}
			defer rl.Close()

			app.Formatter.Info("Sending to %s. Ctrl-D to stop.", name)
			for {
				line, err := rl.Readline()
				if err == io.EOF || err == readline.ErrInterrupt {
					return nil
				}
				if err != nil {
					return err
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if err := app.Supervisor.Send(cmd.Context(), name, line); err != nil {
					app.Formatter.Error("%s", err.Error())
					return err
				}
			}
		},
	}

	return cmd
}
