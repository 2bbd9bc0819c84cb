package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is an opaque reference to one live connection. The registry and
// dispatcher only ever send to it, kill it, or use its id for set
// membership; the websocket plumbing behind it lives in the handlers
// package.
type Handle interface {
	// ID is stable for the lifetime of the connection and distinguishes
	// multiple connections opened by the same user.
	ID() uuid.UUID

	// Send queues a single text frame for delivery. It must not block
	// indefinitely; an error means the connection is unusable.
	Send(data []byte) error

	// Kill tears the connection down. Safe to call more than once.
	Kill()
}

// Registry is the in-memory index of live connections per user. It is the
// only mutable state shared across connection goroutines, so every access
// goes through its mutex; no caller ever sees the internal sets.
type Registry struct {
	mu    sync.Mutex
	conns map[int64]map[uuid.UUID]Handle
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[int64]map[uuid.UUID]Handle),
	}
}

// Register adds a handle to the user's connection set, creating the set if
// needed. Registering the same handle twice is a no-op.
func (r *Registry) Register(userID int64, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[uuid.UUID]Handle)
		r.conns[userID] = set
	}
	set[h.ID()] = h
}

// Unregister removes a handle from the user's connection set. When the set
// becomes empty the user's entry is dropped entirely so the map does not
// accumulate keys for users who disconnected long ago.
func (r *Registry) Unregister(userID int64, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, h.ID())
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

// ConnectionsFor returns a snapshot of the user's current handles. Callers
// get a copy: iterating it while other goroutines register or unregister is
// safe.
func (r *Registry) ConnectionsFor(userID int64) []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.conns[userID]
	handles := make([]Handle, 0, len(set))
	for _, h := range set {
		handles = append(handles, h)
	}
	return handles
}

// Count reports the number of live connections for a user.
func (r *Registry) Count(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[userID])
}
