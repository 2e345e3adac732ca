package output

import (
	"strings"
	"testing"

	"github.com/helmware/deckhand/internal/domain/workspace"
)

func TestStatusGlyph(t *testing.T) {
	tests := []struct {
		status workspace.Status
		want   string
	}{
		{workspace.StatusRunning, GlyphRunning},
		{workspace.StatusWaiting, GlyphWaiting},
		{workspace.StatusDone, GlyphDone},
		{workspace.StatusError, GlyphError},
		{workspace.Status("bogus"), "?"},
	}

	for _, tt := range tests {
		if got := StatusGlyph(tt.status); got != tt.want {
			t.Errorf("StatusGlyph(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestSlotLabelKeepsRawNameMatchable(t *testing.T) {
	ws := &workspace.Workspace{Name: "auth-fix", Status: workspace.StatusRunning}

	label := SlotLabel(ws)
	if label != "▶ auth-fix" {
		t.Errorf("SlotLabel() = %q", label)
	}
	// The reconciler matches by name substring; the decorated label must
	// still contain the raw name.
	if !strings.Contains(label, ws.Name) {
		t.Errorf("label %q does not contain the workspace name", label)
	}
}
