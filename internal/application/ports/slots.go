package ports

import "context"

// Slot is one positional container in the host UI's ordered slot list.
// The label may carry decorative prefixes (status glyphs) around the raw
// workspace name.
type Slot struct {
	Index int
	Label string
}

// SlotHost exposes the host UI's slot primitives. The host owns the slot
// list: the user can close, rename, or create slots at any time without the
// supervisor's involvement, so cached positions are advisory only.
type SlotHost interface {
	ListSlots(ctx context.Context) ([]Slot, error)
	CreateSlot(ctx context.Context, label, dir, command string) (int, error)
	RenameSlot(ctx context.Context, index int, label string) error
	SelectSlot(ctx context.Context, index int) error
	CloseSlot(ctx context.Context, index int) error
}
