package store

import (
	"context"

	"github.com/dhanaBhai/unposted/internal/model"
)

// EntryStore is the durable table of journal entries keyed by id.
// Implementations live under internal/store/<driver>/ (e.g., sqlite, memory).
//
// Transient playback handles are never part of the durable record; a store
// persists only the fields of model.Entry. Put, Delete and Clear are atomic
// with respect to a single record: a reader never observes a half-written
// entry.
type EntryStore interface {
	// Put upserts an entry by id.
	Put(ctx context.Context, e *model.Entry) error
	// GetAll returns every stored entry. Order is not guaranteed; callers
	// sort by creation time themselves.
	GetAll(ctx context.Context) ([]*model.Entry, error)
	// Delete removes an entry by id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error
	// Clear empties the table.
	Clear(ctx context.Context) error

	HealthCheck(ctx context.Context) error
	Close() error
}
