package commands

import (
	"testing"
)

func TestRootCmdRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"launch", "kill", "ls", "switch", "send", "issues", "pr", "resume", "watch", "version"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmdGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	for _, flag := range []string{"config", "output", "session", "verbose"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("global flag %q not registered", flag)
		}
	}
}

func TestVersionRuns(t *testing.T) {
	if err := runVersion(true); err != nil {
		t.Errorf("runVersion(short) error = %v", err)
	}
	if err := runVersion(false); err != nil {
		t.Errorf("runVersion(full) error = %v", err)
	}
}
