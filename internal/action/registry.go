package action

import (
	"fmt"
	"sort"
	"sync"

	"deskmate/internal/logging"
)

// Registry holds all registered actions by id and executes them by id.
// Registration order is preserved so the bracket router can apply a stable
// first-match-wins policy.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
	order   []string // ids in first-registration order

	global *Context
}

// NewRegistry creates an empty registry with a fresh global context.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Action),
		global:  NewContext(),
	}
}

// Register adds an action. Registration is idempotent by id: registering the
// same id again replaces the instance but keeps its original position.
func (r *Registry) Register(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if _, exists := r.actions[id]; !exists {
		r.order = append(r.order, id)
	}
	r.actions[id] = a
	logging.Actions("registered action %s - %s", id, a.Description())
}

// Unregister removes an action. Unused in steady-state operation.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[id]; !exists {
		return false
	}
	delete(r.actions, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	logging.Actions("unregistered action %s", id)
	return true
}

// Has reports whether an action is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actions[id]
	return ok
}

// Get returns a registered action.
func (r *Registry) Get(id string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	return a, ok
}

// Execute looks up an action by id, checks its guard, and runs it.
// Guard failures and busy latches yield Skipped; any error or panic inside
// the action is converted to Failure. Execution never propagates a fault.
func (r *Registry) Execute(id string, ctx *Context) (res Result) {
	r.mu.RLock()
	a, ok := r.actions[id]
	r.mu.RUnlock()

	if !ok {
		return Failure(fmt.Sprintf("action not found: %s", id))
	}
	if !a.CanRun(ctx) {
		return Skipped(fmt.Sprintf("action cannot run: %s", id))
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.ActionsError("action %s panicked: %v", id, rec)
			res = Failure(fmt.Sprintf("action execution failed: %v", rec))
		}
	}()

	res = a.Execute(ctx)
	logging.ActionsDebug("executed %s -> %s (%s)", id, res.Status, res.Message)
	return res
}

// ListAvailable returns the ids whose guard currently passes, sorted for
// determinism.
func (r *Registry) ListAvailable(ctx *Context) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.actions))
	for id, a := range r.actions {
		if a.CanRun(ctx) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// All returns the registered actions in registration order. The snapshot
// reflects registrations made after construction; it is taken under lock so
// the router can iterate safely.
func (r *Registry) All() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Action, 0, len(r.order))
	for _, id := range r.order {
		if a, ok := r.actions[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// BracketAware returns the registered bracket-capable actions in
// registration order.
func (r *Registry) BracketAware() []BracketAware {
	var out []BracketAware
	for _, a := range r.All() {
		if ba, ok := a.(BracketAware); ok {
			out = append(out, ba)
		}
	}
	return out
}

// Global returns the long-lived context shared across ticks.
func (r *Registry) Global() *Context {
	return r.global
}
