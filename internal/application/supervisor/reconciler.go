package supervisor

import (
	"sort"
	"strings"

	"github.com/helmware/deckhand/internal/application/ports"
	"github.com/helmware/deckhand/internal/domain/workspace"
)

// Reconciler realigns each workspace's cached slot position with the host's
// live slot ordering. Positions are never tracked incrementally: the host can
// close, create, or reorder slots without telling us, so every pass is a full
// rescan against the current list.
type Reconciler struct{}

// Reconcile matches workspace names against slot labels and rewrites each
// workspace's SlotPosition. Labels carry decorative status glyphs around the
// raw name, so matching is by name substring, not equality. Workspaces whose
// name matches no slot are marked orphaned. Returns the orphan count.
func (Reconciler) Reconcile(reg *workspace.Registry, slots []ports.Slot) int {
	workspaces := reg.AllOrdered()

	// Longer names claim first so "auth-fix" is never swallowed by a
	// workspace named "auth" matching the same label.
	byLength := make([]*workspace.Workspace, len(workspaces))
	copy(byLength, workspaces)
	sort.SliceStable(byLength, func(i, j int) bool {
		return len(byLength[i].Name) > len(byLength[j].Name)
	})

	claimed := make(map[int]bool, len(slots))
	orphans := 0

	for _, ws := range byLength {
		ws.SlotPosition = workspace.OrphanSlot
		for _, slot := range slots {
			if claimed[slot.Index] {
				continue
			}
			if !strings.Contains(slot.Label, ws.Name) {
				continue
			}
			ws.SlotPosition = slot.Index
			claimed[slot.Index] = true
			break
		}
		if ws.Orphaned() {
			orphans++
		}
	}

	return orphans
}
