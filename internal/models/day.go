package models

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the wire and storage format of a calendar day.
const DayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string into midnight UTC of that calendar day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseDays parses every entry of days, stopping at the first invalid one.
func ParseDays(days []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		t, err := ParseDay(d)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// DayKey formats the calendar day of t. Times are expected to be normalized with TruncateDay.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// TruncateDay drops the time of day, keeping the calendar date of t in UTC. Days are stored
// as midnight UTC, so a value read back with a session offset still maps to its own date.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween lists every calendar day from start to end, both inclusive.
func DaysBetween(start, end time.Time) []time.Time {
	start, end = TruncateDay(start), TruncateDay(end)
	if end.Before(start) {
		return nil
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
