package journal

import (
	"time"

	"github.com/dhanaBhai/unposted/internal/model"
)

// Streak returns the number of consecutive calendar days with at least one
// entry, walking backward from the newest. Input must be sorted newest
// first; entries on an already-counted day collapse into it. The walk ends
// at the first gap wider than one day. Never mutates its input.
func Streak(entries []*model.Entry) int {
	if len(entries) == 0 {
		return 0
	}
	count := 1
	cursor := dayNumber(entries[0].CreatedAt)
	for _, e := range entries[1:] {
		day := dayNumber(e.CreatedAt)
		switch cursor - day {
		case 0:
			// same calendar day, already counted
		case 1:
			count++
			cursor = day
		default:
			// wider gap, or out-of-order input: the streak is over
			return count
		}
	}
	return count
}

// dayNumber collapses an instant to its UTC calendar-day ordinal.
func dayNumber(t time.Time) int {
	return int(t.UTC().Unix() / 86400)
}
