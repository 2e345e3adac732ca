package workspace

import (
	"fmt"
	"sync"

	"github.com/helmware/deckhand/internal/domain/errors"
)

// Registry is the authoritative collection of active workspaces.
//
// All mutation and every composite operation (kill = terminate + remove)
// serialize on one registry-wide mutex, so concurrent lookups always observe
// either pre- or post-operation state, never a partial one.
type Registry struct {
	mu      sync.Mutex
	byName  map[string]*Workspace
	ordered []*Workspace // insertion order, stable
}

// NewRegistry creates an empty workspace registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Workspace),
	}
}

// ResolveName returns base if unused, otherwise the first free
// "base-2", "base-3", ... suffix. Callers resolve names through this before
// Insert so a launch never fails on an identity conflict.
func (r *Registry) ResolveName(base string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[base]; !taken {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if _, taken := r.byName[candidate]; !taken {
			return candidate
		}
	}
}

// Insert adds a workspace to the registry. It rejects a name that is already
// present; uniqueness must be pre-resolved via ResolveName.
func (r *Registry) Insert(ws *Workspace) error {
	if err := ws.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[ws.Name]; taken {
		return errors.NewError(errors.CodeValidation,
			fmt.Sprintf("workspace %q", ws.Name), errors.ErrNameTaken)
	}
	r.byName[ws.Name] = ws
	r.ordered = append(r.ordered, ws)
	return nil
}

// Remove deletes the workspace with the given name. Removing an unknown name
// is a no-op returning false.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.byName[name]
	if !ok {
		return false
	}
	delete(r.byName, name)
	for i, w := range r.ordered {
		if w == ws {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			break
		}
	}
	return true
}

// FindByName returns the workspace with the given name, or nil.
func (r *Registry) FindByName(name string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byName[name]
}

// FindBySlot returns the workspace currently mapped to the given slot
// position, or nil. OrphanSlot never matches.
func (r *Registry) FindBySlot(position int) *Workspace {
	if position == OrphanSlot {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ws := range r.ordered {
		if ws.SlotPosition == position {
			return ws
		}
	}
	return nil
}

// FindByHandle returns the workspace owning the given agent handle, or nil.
func (r *Registry) FindByHandle(handle AgentHandle) *Workspace {
	if handle == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ws := range r.ordered {
		if ws.Handle == handle {
			return ws
		}
	}
	return nil
}

// AllOrdered returns a snapshot of all workspaces in insertion order.
func (r *Registry) AllOrdered() []*Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Workspace, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ordered)
}
