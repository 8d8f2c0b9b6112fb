package journal

import (
	"testing"
	"time"

	"github.com/dhanaBhai/unposted/internal/model"
)

func entriesOnDays(days ...int) []*model.Entry {
	out := make([]*model.Entry, len(days))
	for i, d := range days {
		out[i] = &model.Entry{
			ID:        string(rune('a' + i)),
			CreatedAt: time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func TestStreak(t *testing.T) {
	cases := []struct {
		name string
		days []int
		want int
	}{
		{"empty", nil, 0},
		{"single", []int{3}, 1},
		{"three consecutive", []int{3, 2, 1}, 3},
		{"same day collapses then gap breaks", []int{3, 3, 1}, 1},
		{"gap of two breaks immediately", []int{3, 1}, 1},
		{"same day then consecutive", []int{3, 3, 2}, 2},
		{"long run with trailing gap", []int{9, 8, 7, 6, 3}, 4},
		{"out of order input breaks", []int{2, 3}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Streak(entriesOnDays(tc.days...)); got != tc.want {
				t.Fatalf("Streak(%v) = %d, want %d", tc.days, got, tc.want)
			}
		})
	}
}

func TestStreakCrossesMonthBoundary(t *testing.T) {
	entries := []*model.Entry{
		{ID: "a", CreatedAt: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)},
		{ID: "b", CreatedAt: time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC)},
	}
	if got := Streak(entries); got != 2 {
		t.Fatalf("Streak across month boundary = %d, want 2", got)
	}
}

func TestStreakUsesCalendarDaysNotInstants(t *testing.T) {
	// 23:50 and 00:10 the next day are 20 minutes apart but one calendar
	// day apart.
	entries := []*model.Entry{
		{ID: "a", CreatedAt: time.Date(2026, 3, 2, 0, 10, 0, 0, time.UTC)},
		{ID: "b", CreatedAt: time.Date(2026, 3, 1, 23, 50, 0, 0, time.UTC)},
	}
	if got := Streak(entries); got != 2 {
		t.Fatalf("Streak = %d, want 2", got)
	}
}

func TestStreakDoesNotMutateInput(t *testing.T) {
	entries := entriesOnDays(3, 2, 1)
	before := make([]time.Time, len(entries))
	for i, e := range entries {
		before[i] = e.CreatedAt
	}
	_ = Streak(entries)
	for i, e := range entries {
		if !e.CreatedAt.Equal(before[i]) {
			t.Fatalf("entry %d mutated", i)
		}
	}
}
