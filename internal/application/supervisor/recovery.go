package supervisor

import (
	"context"
	"strings"

	"github.com/helmware/deckhand/internal/domain/workspace"
)

// HandleRebinder is implemented by slot hosts that can rebuild an agent
// handle for a slot that outlived the previous supervisor process.
type HandleRebinder interface {
	HandleForSlot(ctx context.Context, index int) (workspace.AgentHandle, error)
}

// Recover reloads persisted workspace records on startup. Records whose slot
// is still alive in the host are re-adopted with a live handle; the rest are
// inserted as Done so the user can inspect and kill them explicitly.
func (s *Supervisor) Recover(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	records, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.slots.ListSlots(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "recovery cannot list host slots", "error", err)
		slots = nil
	}

	rebinder, canRebind := s.slots.(HandleRebinder)

	for _, rec := range records {
		if s.registry.FindByName(rec.Name) != nil {
			continue
		}

		ws := &workspace.Workspace{
			ID:             rec.ID,
			Name:           rec.Name,
			SlotPosition:   workspace.OrphanSlot,
			Dir:            rec.Dir,
			Status:         workspace.StatusDone,
			BranchName:     rec.BranchName,
			IsWorktree:     rec.IsWorktree,
			WorktreePath:   rec.WorktreePath,
			ExternalRef:    rec.ExternalRef,
			LaunchedAt:     rec.LaunchedAt,
			LastActivityAt: rec.LaunchedAt,
		}

		label := rec.SlotLabel
		if label == "" {
			label = rec.Name
		}
		for _, slot := range slots {
			if !strings.Contains(slot.Label, label) {
				continue
			}
			if !canRebind {
				break
			}
			handle, err := rebinder.HandleForSlot(ctx, slot.Index)
			if err != nil {
				s.logger.WarnContext(ctx, "failed to re-adopt agent",
					"workspace", rec.Name, "slot", slot.Index, "error", err)
				break
			}
			ws.Handle = handle
			ws.SlotPosition = slot.Index
			ws.Status = rec.Status
			if ws.Status.IsTerminal() {
				// The slot survived; let detection re-derive liveness.
				ws.Status = workspace.StatusRunning
			}
			break
		}

		if err := s.registry.Insert(ws); err != nil {
			s.logger.WarnContext(ctx, "failed to restore workspace", "workspace", rec.Name, "error", err)
			continue
		}
		s.logger.InfoContext(ctx, "restored workspace",
			"workspace", ws.Name, "status", string(ws.Status), "slot", ws.SlotPosition)
	}

	s.reconcile(ctx)
	return nil
}
