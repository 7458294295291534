package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID                string    `bun:"id,pk" json:"id"`
	Name              string    `bun:"name,notnull" json:"name"`
	Description       string    `bun:"description" json:"description"`
	StartDate         time.Time `bun:"start_date,type:date,notnull" json:"start_date"`
	EndDate           time.Time `bun:"end_date,type:date,notnull" json:"end_date"`
	DailyQuota        int       `bun:"daily_quota,notnull" json:"daily_quota"`
	AllowsCompanion   bool      `bun:"allows_companion,notnull" json:"allows_companion"`
	MaxCompanions     int       `bun:"max_companions,notnull" json:"max_companions"`
	LogoURL           string    `bun:"logo_url" json:"logo_url,omitempty"`
	InstitutionalText string    `bun:"institutional_text" json:"institutional_text,omitempty"`
	Guidelines        string    `bun:"guidelines" json:"guidelines,omitempty"`
	Active            bool      `bun:"active,notnull" json:"active"`
	CreatedAt         time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Days lists every calendar day of the event, start and end included.
func (e *Event) Days() []time.Time {
	return DaysBetween(e.StartDate, e.EndDate)
}

// Covers reports whether day lies inside the event's [start, end] range.
func (e *Event) Covers(day time.Time) bool {
	day = TruncateDay(day)
	return !day.Before(TruncateDay(e.StartDate)) && !day.After(TruncateDay(e.EndDate))
}
