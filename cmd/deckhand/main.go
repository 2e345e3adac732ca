// Deckhand CLI entry point
//
// Deckhand supervises interactive coding agents running in tmux windows,
// each bound to an isolated directory or git worktree.
package main

import "github.com/helmware/deckhand/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
