// Package memory provides an in-memory EntryStore used by tests and the
// ephemeral CLI mode. Nothing survives process exit.
package memory

import (
	"context"
	"sync"

	"github.com/dhanaBhai/unposted/internal/model"
)

// EntryStore keeps entries in a map guarded by a mutex. Entries are cloned
// on the way in and out so callers never share the stored copy.
type EntryStore struct {
	mu      sync.Mutex
	entries map[string]*model.Entry
}

func New() *EntryStore {
	return &EntryStore{entries: make(map[string]*model.Entry)}
}

func (s *EntryStore) Put(_ context.Context, e *model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e.Clone()
	return nil
}

func (s *EntryStore) GetAll(_ context.Context) ([]*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*model.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e.Clone())
	}
	return result, nil
}

func (s *EntryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *EntryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*model.Entry)
	return nil
}

func (s *EntryStore) HealthCheck(_ context.Context) error { return nil }

func (s *EntryStore) Close() error { return nil }
