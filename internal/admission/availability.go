package admission

import (
	"sort"
	"time"

	"ms-registration/internal/models"
)

// DayCounts maps a day key (YYYY-MM-DD) to the number of active registrations selecting it.
// Missing days count as zero.
type DayCounts map[string]int

// Availability maps every day of an event (YYYY-MM-DD) to its remaining seats.
type Availability map[string]int

type DayAvailability struct {
	Day        string `json:"day"`
	Remaining  int    `json:"remaining"`
	Selectable bool   `json:"selectable"`
}

// ComputeAvailability derives remaining = max(0, quota - active) for every day in the event range.
func ComputeAvailability(event *models.Event, counts DayCounts) Availability {
	out := make(Availability)
	for _, d := range event.Days() {
		key := models.DayKey(d)
		remaining := event.DailyQuota - counts[key]
		if remaining < 0 {
			remaining = 0
		}
		out[key] = remaining
	}
	return out
}

// Remaining returns the seats left on day, or 0 when day is outside the event.
func (a Availability) Remaining(day time.Time) int {
	return a[models.DayKey(day)]
}

func (a Availability) Selectable(day time.Time) bool {
	return a.Remaining(day) > 0
}

// Sorted lists the days in ascending order.
func (a Availability) Sorted() []DayAvailability {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]DayAvailability, 0, len(keys))
	for _, k := range keys {
		out = append(out, DayAvailability{Day: k, Remaining: a[k], Selectable: a[k] > 0})
	}
	return out
}
