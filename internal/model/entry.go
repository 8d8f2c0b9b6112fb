package model

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// titleWords is how many leading transcript words seed an entry title.
const titleWords = 5

// Entry is one durable voice-journal record. ID and CreatedAt are set once
// at construction and never change; Audio is owned by the store once written.
type Entry struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	Transcript string    `json:"transcript"`
	Duration   float64   `json:"duration"`
	Audio      []byte    `json:"-"`
	Encrypted  bool      `json:"encrypted"`
	Title      string    `json:"title,omitempty"`
}

// NewEntry builds an entry with a fresh id and a UTC creation time. The
// title is derived from the transcript here, once, and never recomputed.
func NewEntry(transcript string, duration float64, audio []byte) (*Entry, error) {
	if err := ValidateDuration(duration); err != nil {
		return nil, err
	}
	return &Entry{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Transcript: transcript,
		Duration:   duration,
		Audio:      audio,
		Title:      TitleFromTranscript(transcript),
	}, nil
}

// ValidateDuration rejects negative and non-finite durations.
func ValidateDuration(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return NewValidationError("duration", "must be finite")
	}
	if d < 0 {
		return NewValidationError("duration", "must be >= 0")
	}
	return nil
}

// TitleFromTranscript returns the first five words of the transcript, or the
// empty string when the transcript has none.
func TitleFromTranscript(transcript string) string {
	words := strings.Fields(transcript)
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	return strings.Join(words, " ")
}

// Clone returns a copy the caller may mutate. The audio slice is shared;
// payloads are immutable once written.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

// EntryPatch carries the mutable fields of an update. Nil fields are left
// untouched; Audio replaces the stored payload when non-nil.
type EntryPatch struct {
	Transcript *string
	Duration   *float64
	Audio      []byte
	Encrypted  *bool
}
