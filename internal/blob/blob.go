// Package blob manages transient playback handles: revocable, in-memory-only
// references to an entry's audio payload. Handles let callers stream or
// export audio without duplicating the durable payload, and are invalidated
// whenever the owning entry leaves memory.
package blob

import (
	"sync"

	"github.com/google/uuid"
)

// HandleID identifies one live playback handle.
type HandleID string

// Handles is the capability surface for creating and revoking playback
// handles. The journal repository is the only component that creates or
// revokes them.
type Handles interface {
	// Create registers the payload and returns a fresh handle.
	Create(audio []byte) (HandleID, error)
	// Release revokes a handle. Releasing an unknown or already-released
	// handle is a no-op.
	Release(id HandleID)
	// Bytes resolves a live handle to its payload for playback/export.
	Bytes(id HandleID) ([]byte, bool)
	// Live reports how many handles are currently registered.
	Live() int
}

// Registry is the in-process Handles implementation backed by a map.
type Registry struct {
	mu      sync.Mutex
	handles map[HandleID][]byte
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[HandleID][]byte)}
}

func (r *Registry) Create(audio []byte) (HandleID, error) {
	id := HandleID(uuid.New().String())
	r.mu.Lock()
	r.handles[id] = audio
	r.mu.Unlock()
	return id, nil
}

func (r *Registry) Release(id HandleID) {
	r.mu.Lock()
	delete(r.handles, id)
	r.mu.Unlock()
}

func (r *Registry) Bytes(id HandleID) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.handles[id]
	return b, ok
}

func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
