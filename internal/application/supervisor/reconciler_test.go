package supervisor

import (
	"testing"

	"github.com/helmware/deckhand/internal/application/ports"
	"github.com/helmware/deckhand/internal/domain/workspace"
)

func registered(t *testing.T, reg *workspace.Registry, name string) *workspace.Workspace {
	t.Helper()
	ws := &workspace.Workspace{
		Name:         name,
		Dir:          "/tmp/" + name,
		SlotPosition: workspace.OrphanSlot,
		Status:       workspace.StatusRunning,
	}
	if err := reg.Insert(ws); err != nil {
		t.Fatalf("Insert(%s) error = %v", name, err)
	}
	return ws
}

func TestReconcileMatchesDecoratedLabels(t *testing.T) {
	reg := workspace.NewRegistry()
	authFix := registered(t, reg, "auth-fix")
	apiTests := registered(t, reg, "api-tests")

	slots := []ports.Slot{
		{Index: 0, Label: "Dashboard"},
		{Index: 1, Label: "▶ auth-fix"},
		{Index: 2, Label: "⏸ api-tests"},
	}

	orphans := Reconciler{}.Reconcile(reg, slots)
	if orphans != 0 {
		t.Errorf("orphans = %d, want 0", orphans)
	}
	if authFix.SlotPosition != 1 {
		t.Errorf("auth-fix position = %d, want 1", authFix.SlotPosition)
	}
	if apiTests.SlotPosition != 2 {
		t.Errorf("api-tests position = %d, want 2", apiTests.SlotPosition)
	}
}

func TestReconcileAfterExternalClose(t *testing.T) {
	reg := workspace.NewRegistry()
	authFix := registered(t, reg, "auth-fix")
	apiTests := registered(t, reg, "api-tests")

	// First pass with both slots alive.
	Reconciler{}.Reconcile(reg, []ports.Slot{
		{Index: 0, Label: "Dashboard"},
		{Index: 1, Label: "▶ auth-fix"},
		{Index: 2, Label: "⏸ api-tests"},
	})

	// The user closes auth-fix's slot; indices shift.
	orphans := Reconciler{}.Reconcile(reg, []ports.Slot{
		{Index: 0, Label: "Dashboard"},
		{Index: 1, Label: "⏸ api-tests"},
	})

	if orphans != 1 {
		t.Errorf("orphans = %d, want 1", orphans)
	}
	if !authFix.Orphaned() {
		t.Errorf("auth-fix position = %d, want orphan", authFix.SlotPosition)
	}
	if apiTests.SlotPosition != 1 {
		t.Errorf("api-tests position = %d, want 1", apiTests.SlotPosition)
	}
}

func TestReconcilePrefersLongerNames(t *testing.T) {
	reg := workspace.NewRegistry()
	short := registered(t, reg, "auth")
	long := registered(t, reg, "auth-fix")

	slots := []ports.Slot{
		{Index: 0, Label: "▶ auth-fix"},
		{Index: 1, Label: "▶ auth"},
	}

	Reconciler{}.Reconcile(reg, slots)

	if long.SlotPosition != 0 {
		t.Errorf("auth-fix position = %d, want 0", long.SlotPosition)
	}
	if short.SlotPosition != 1 {
		t.Errorf("auth position = %d, want 1", short.SlotPosition)
	}
}

func TestReconcileEmptySlotListOrphansAll(t *testing.T) {
	reg := workspace.NewRegistry()
	ws := registered(t, reg, "auth-fix")
	ws.SlotPosition = 3

	orphans := Reconciler{}.Reconcile(reg, nil)
	if orphans != 1 {
		t.Errorf("orphans = %d, want 1", orphans)
	}
	if !ws.Orphaned() {
		t.Errorf("position = %d, want orphan", ws.SlotPosition)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	reg := workspace.NewRegistry()
	ws := registered(t, reg, "auth-fix")

	slots := []ports.Slot{{Index: 0, Label: "▶ auth-fix"}}

	Reconciler{}.Reconcile(reg, slots)
	first := ws.SlotPosition
	Reconciler{}.Reconcile(reg, slots)

	if ws.SlotPosition != first {
		t.Errorf("position changed across identical passes: %d then %d", first, ws.SlotPosition)
	}
}
