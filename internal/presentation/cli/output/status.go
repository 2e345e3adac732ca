package output

import (
	"github.com/helmware/deckhand/internal/domain/workspace"
)

// Status glyphs shown in slot labels and listings. Slot-label matching in
// the reconciler tolerates these prefixes, so they are safe to prepend to
// a raw workspace name.
const (
	GlyphRunning = "▶"
	GlyphWaiting = "⏸"
	GlyphDone    = "✔"
	GlyphError   = "✖"
)

// StatusGlyph returns the glyph for a workspace status.
func StatusGlyph(s workspace.Status) string {
	switch s {
	case workspace.StatusRunning:
		return GlyphRunning
	case workspace.StatusWaiting:
		return GlyphWaiting
	case workspace.StatusDone:
		return GlyphDone
	case workspace.StatusError:
		return GlyphError
	default:
		return "?"
	}
}

// StatusColor returns the display color for a workspace status.
func StatusColor(s workspace.Status) Color {
	switch s {
	case workspace.StatusRunning:
		return ColorGreen
	case workspace.StatusWaiting:
		return ColorYellow
	case workspace.StatusDone:
		return ColorDim
	case workspace.StatusError:
		return ColorRed
	default:
		return ColorWhite
	}
}

// SlotLabel builds the decorated label for a workspace's host slot, glyph
// first so the raw name stays intact for matching.
func SlotLabel(ws *workspace.Workspace) string {
	return StatusGlyph(ws.Status) + " " + ws.Name
}

// StatusText renders a colored glyph-plus-name form of a status.
func (f *Formatter) StatusText(s workspace.Status) string {
	return f.Colorize(StatusGlyph(s)+" "+string(s), StatusColor(s))
}
