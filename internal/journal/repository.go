// Package journal holds the in-memory journal state and keeps it in sync
// with the durable entry store. The repository is the sole mutation surface
// for entries; it writes through to the store before reflecting any change
// in memory, so the in-memory view is never ahead of durable state.
package journal

import (
	"context"
	"sort"
	"sync"

	"github.com/dhanaBhai/unposted/internal/blob"
	"github.com/dhanaBhai/unposted/internal/model"
	"github.com/dhanaBhai/unposted/internal/store"
)

// Repository owns the ordered in-memory entry list, the write-through to the
// store, and the lifecycle of transient playback handles. A single mutex
// serializes operations; per-id ordering remains the caller's concern.
type Repository struct {
	store   store.EntryStore
	handles blob.Handles

	mu        sync.Mutex
	entries   []*model.Entry
	handleIDs map[string]blob.HandleID
	hydrated  bool
}

func New(s store.EntryStore, h blob.Handles) *Repository {
	return &Repository{
		store:     s,
		handles:   h,
		handleIDs: make(map[string]blob.HandleID),
	}
}

// Hydrate loads every stored entry into memory, newest first, once per
// repository lifetime. Calls after a successful load are no-ops; a failed
// load leaves the repository un-hydrated so the caller may retry.
func (r *Repository) Hydrate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hydrated {
		return nil
	}
	loaded, err := r.store.GetAll(ctx)
	if err != nil {
		return model.NewPersistenceError("hydrate", err)
	}
	sortNewestFirst(loaded)

	handleIDs := make(map[string]blob.HandleID, len(loaded))
	for _, e := range loaded {
		hid, err := r.handles.Create(e.Audio)
		if err != nil {
			for _, issued := range handleIDs {
				r.handles.Release(issued)
			}
			return model.NewPersistenceError("hydrate", err)
		}
		handleIDs[e.ID] = hid
	}

	// Entries added before hydration were written through and reload with
	// fresh handles above; their pre-hydration handles are released here.
	for _, hid := range r.handleIDs {
		r.handles.Release(hid)
	}
	r.entries = loaded
	r.handleIDs = handleIDs
	r.hydrated = true
	return nil
}

// Add derives a playback handle for the entry, writes it through to the
// store, then inserts it into the in-memory list. A failed write releases
// the just-derived handle and leaves memory unchanged.
func (r *Repository) Add(ctx context.Context, e *model.Entry) error {
	if e == nil || e.ID == "" {
		return model.NewValidationError("entry", "missing id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	hid, err := r.handles.Create(e.Audio)
	if err != nil {
		return model.NewPersistenceError("add", err)
	}
	if err := r.store.Put(ctx, e); err != nil {
		r.handles.Release(hid)
		return model.NewPersistenceError("add", err)
	}

	// Same id in memory means the store upserted; mirror that here.
	if old, ok := r.handleIDs[e.ID]; ok {
		r.handles.Release(old)
		r.dropFromList(e.ID)
	}
	r.entries = append([]*model.Entry{e}, r.entries...)
	sortNewestFirst(r.entries)
	r.handleIDs[e.ID] = hid
	return nil
}

// Update merges patch over the entry with the given id. Unknown ids are a
// no-op. The merged entry is written to the store before memory or handles
// change; when the patch replaces audio, the old handle is released and a
// new one derived only after the write succeeds.
func (r *Repository) Update(ctx context.Context, id string, patch model.EntryPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil
	}

	merged := r.entries[idx].Clone()
	if patch.Transcript != nil {
		merged.Transcript = *patch.Transcript
	}
	if patch.Duration != nil {
		if err := model.ValidateDuration(*patch.Duration); err != nil {
			return err
		}
		merged.Duration = *patch.Duration
	}
	if patch.Encrypted != nil {
		merged.Encrypted = *patch.Encrypted
	}
	replaceAudio := patch.Audio != nil
	if replaceAudio {
		merged.Audio = patch.Audio
	}

	if err := r.store.Put(ctx, merged); err != nil {
		return model.NewPersistenceError("update", err)
	}

	if replaceAudio {
		r.handles.Release(r.handleIDs[id])
		hid, err := r.handles.Create(merged.Audio)
		if err != nil {
			// Durable state already carries the new audio; memory must
			// follow even though the handle could not be derived.
			delete(r.handleIDs, id)
			r.entries[idx] = merged
			return model.NewPersistenceError("update", err)
		}
		r.handleIDs[id] = hid
	}
	r.entries[idx] = merged
	return nil
}

// Remove deletes the entry from the store first, then drops it from memory
// and releases its handle. Removing an absent id is a no-op.
func (r *Repository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, id); err != nil {
		return model.NewPersistenceError("remove", err)
	}
	if hid, ok := r.handleIDs[id]; ok {
		r.handles.Release(hid)
		delete(r.handleIDs, id)
	}
	r.dropFromList(id)
	return nil
}

// Clear empties the store, then memory, releasing every handle.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Clear(ctx); err != nil {
		return model.NewPersistenceError("clear", err)
	}
	for _, hid := range r.handleIDs {
		r.handles.Release(hid)
	}
	r.handleIDs = make(map[string]blob.HandleID)
	r.entries = nil
	return nil
}

// All returns a snapshot of the in-memory list, newest first.
func (r *Repository) All() []*model.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Get returns the in-memory entry with the given id.
func (r *Repository) Get(id string) (*model.Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(id); idx >= 0 {
		return r.entries[idx], true
	}
	return nil, false
}

// Handle returns the live playback handle for an entry.
func (r *Repository) Handle(id string) (blob.HandleID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hid, ok := r.handleIDs[id]
	return hid, ok
}

// locked helpers

func (r *Repository) indexOf(id string) int {
	for i, e := range r.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) dropFromList(id string) {
	if idx := r.indexOf(id); idx >= 0 {
		r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
	}
}

func sortNewestFirst(entries []*model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
