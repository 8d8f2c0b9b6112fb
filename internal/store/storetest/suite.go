package storetest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dhanaBhai/unposted/internal/model"
	"github.com/dhanaBhai/unposted/internal/store"
)

// Run exercises a compliance suite against a store.EntryStore implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.EntryStore) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	if err := s.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	// Put and read back every persisted field.
	e1 := &model.Entry{
		ID:         "e1",
		CreatedAt:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Transcript: "first morning note",
		Duration:   4.25,
		Audio:      []byte{0x1f, 0x8b, 0x00, 0x01},
		Title:      "first morning note",
	}
	if err := s.Put(ctx, e1); err != nil {
		t.Fatalf("Put e1: %v", err)
	}
	got, err := s.GetAll(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("GetAll: n=%d err=%v", len(got), err)
	}
	r := got[0]
	if r.ID != e1.ID || !r.CreatedAt.Equal(e1.CreatedAt) || r.Transcript != e1.Transcript ||
		r.Duration != e1.Duration || !bytes.Equal(r.Audio, e1.Audio) ||
		r.Encrypted != e1.Encrypted || r.Title != e1.Title {
		t.Fatalf("round trip mismatch: got %+v want %+v", r, e1)
	}

	// Put with the same id overwrites, never duplicates.
	e1b := e1.Clone()
	e1b.Transcript = "first morning note, amended"
	if err := s.Put(ctx, e1b); err != nil {
		t.Fatalf("Put e1 again: %v", err)
	}
	got, err = s.GetAll(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("GetAll after upsert: n=%d err=%v", len(got), err)
	}
	if got[0].Transcript != e1b.Transcript {
		t.Fatalf("upsert not reflected: %q", got[0].Transcript)
	}

	// Second entry coexists under its own id.
	e2 := &model.Entry{
		ID:        "e2",
		CreatedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		Duration:  0,
	}
	if err := s.Put(ctx, e2); err != nil {
		t.Fatalf("Put e2: %v", err)
	}
	if got, err = s.GetAll(ctx); err != nil || len(got) != 2 {
		t.Fatalf("GetAll two: n=%d err=%v", len(got), err)
	}

	// Delete removes by id and is a no-op for absent ids.
	if err := s.Delete(ctx, "e1"); err != nil {
		t.Fatalf("Delete e1: %v", err)
	}
	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete absent id: %v", err)
	}
	if got, err = s.GetAll(ctx); err != nil || len(got) != 1 || got[0].ID != "e2" {
		t.Fatalf("GetAll after delete: n=%d err=%v", len(got), err)
	}

	// Clear empties the table.
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, err = s.GetAll(ctx); err != nil || len(got) != 0 {
		t.Fatalf("GetAll after clear: n=%d err=%v", len(got), err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
