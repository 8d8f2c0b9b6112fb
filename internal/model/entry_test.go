package model

import (
	"math"
	"testing"
)

func TestNewEntryDerivesTitleOnce(t *testing.T) {
	e, err := NewEntry("today I walked along the river and thought", 12.5, []byte{1, 2})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	if e.Title != "today I walked along the" {
		t.Fatalf("title = %q", e.Title)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("id/createdAt not set: %+v", e)
	}
	if e.CreatedAt.Location() != e.CreatedAt.UTC().Location() {
		t.Fatalf("createdAt not UTC: %v", e.CreatedAt)
	}
}

func TestNewEntryEmptyTranscript(t *testing.T) {
	e, err := NewEntry("", 0, nil)
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	if e.Title != "" {
		t.Fatalf("expected empty title, got %q", e.Title)
	}
	if e.Transcript != "" {
		t.Fatalf("expected empty transcript, got %q", e.Transcript)
	}
}

func TestTitleFromTranscriptShort(t *testing.T) {
	if got := TitleFromTranscript("  two   words  "); got != "two words" {
		t.Fatalf("title = %q", got)
	}
}

func TestNewEntryRejectsBadDurations(t *testing.T) {
	cases := []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, d := range cases {
		if _, err := NewEntry("x", d, nil); !IsValidationError(err) {
			t.Fatalf("duration %v: expected validation error, got %v", d, err)
		}
	}
}

func TestEntryIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		e, err := NewEntry("x", 1, nil)
		if err != nil {
			t.Fatalf("NewEntry: %v", err)
		}
		if seen[e.ID] {
			t.Fatalf("duplicate id %s", e.ID)
		}
		seen[e.ID] = true
	}
}
