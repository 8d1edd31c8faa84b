package forward

import (
	"sync"

	"portwarden/internal/kerrors"
)

// handle is the registry's record of a running supervisor: the channel
// that signals graceful shutdown and the channel the supervisor closes
// when it has actually exited.
type handle struct {
	shutdown chan struct{}
	done     chan struct{}
}

// Registry holds the two parallel maps described in the data model: forward
// state and supervisor handle, both guarded by a single lock so readers
// never observe one without the other except during the documented
// start/stop commit windows.
type Registry struct {
	mu      sync.RWMutex
	states  map[string]State
	handles map[string]*handle
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		states:  make(map[string]State),
		handles: make(map[string]*handle),
	}
}

// InsertNew adds a freshly created state and its supervisor handle
// together. It fails with a DuplicateForward-flavored CoreError if the id
// is already present.
func (r *Registry) InsertNew(state State, h *handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.states[state.ID]; exists {
		return kerrors.NewValidationError("forward already exists: " + state.ID)
	}
	r.states[state.ID] = state.clone()
	r.handles[state.ID] = h
	return nil
}

// Remove deletes a forward's state and handle, returning both so the
// caller can cancel the supervisor. NotFound is reported as (State{}, nil,
// false).
func (r *Registry) Remove(id string) (State, *handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[id]
	if !ok {
		return State{}, nil, false
	}
	h := r.handles[id]
	delete(r.states, id)
	delete(r.handles, id)
	return state, h, true
}

// Get returns a detached copy of one forward's state.
func (r *Registry) Get(id string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[id]
	if !ok {
		return State{}, false
	}
	return state.clone(), true
}

// List returns a snapshot of every forward's state.
func (r *Registry) List() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]State, 0, len(r.states))
	for _, state := range r.states {
		out = append(out, state.clone())
	}
	return out
}

// ListByInstance returns a snapshot of forwards sharing instanceID.
func (r *Registry) ListByInstance(instanceID string) []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []State
	for _, state := range r.states {
		if state.Config.InstanceID == instanceID {
			out = append(out, state.clone())
		}
	}
	return out
}

// Mutate applies f to the entry identified by id under the registry's
// exclusive lock and stores the result. It reports whether the entry
// existed.
func (r *Registry) Mutate(id string, f func(State) State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[id]
	if !ok {
		return false
	}
	r.states[id] = f(state)
	return true
}

// handleFor returns the supervisor handle for id, if any, without
// affecting the state map.
func (r *Registry) handleFor(id string) (*handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// replaceHandle swaps the supervisor handle for an existing id, used by
// reconnect to attach a freshly spawned supervisor without touching the
// state entry.
func (r *Registry) replaceHandle(id string, h *handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[id] = h
}
