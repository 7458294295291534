package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

type Category string

const (
	CategoryDisabledPerson Category = "disabled_person"
	CategoryPregnant       Category = "pregnant"
	CategoryElderly        Category = "elderly"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryDisabledPerson, CategoryPregnant, CategoryElderly:
		return true
	}
	return false
}

func (c Category) Label() string {
	switch c {
	case CategoryDisabledPerson:
		return "Disabled person"
	case CategoryPregnant:
		return "Pregnant"
	case CategoryElderly:
		return "Elderly"
	default:
		return string(c)
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether a registration in this status holds its seats.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusConfirmed:
		return "Confirmed"
	case StatusRejected:
		return "Rejected"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// ActiveStatuses are the statuses that consume a seat on each selected day.
func ActiveStatuses() []string {
	return []string{string(StatusPending), string(StatusConfirmed)}
}

type Registration struct {
	bun.BaseModel `bun:"table:registrations,alias:r"`

	ID             string    `bun:"id,pk" json:"id"`
	EventID        string    `bun:"event_id,notnull" json:"event_id"`
	FullName       string    `bun:"full_name,notnull" json:"full_name"`
	TaxID          string    `bun:"tax_id,notnull" json:"tax_id"`
	Address        string    `bun:"address,notnull" json:"address"`
	Phone          string    `bun:"phone,notnull" json:"phone"`
	Category       Category  `bun:"category,notnull" json:"category"`
	DisabilityType *string   `bun:"disability_type" json:"disability_type"`
	Notes          *string   `bun:"notes" json:"notes"`
	CompanionName  *string   `bun:"companion_name" json:"companion_name"`
	CompanionTaxID *string   `bun:"companion_tax_id" json:"companion_tax_id"`
	Protocol       string    `bun:"protocol,notnull,unique" json:"protocol"`
	AccessCode     string    `bun:"access_code,notnull" json:"access_code"`
	Status         Status    `bun:"status,notnull" json:"status"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull" json:"updated_at"`

	Days  []RegistrationDay `bun:"rel:has-many,join:id=registration_id" json:"days"`
	Event *Event            `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
}

// RegistrationDay is one selected calendar day of a registration. Seat usage is derived by
// counting these rows for active registrations; no counter is stored anywhere.
type RegistrationDay struct {
	bun.BaseModel `bun:"table:registration_days,alias:rd"`

	RegistrationID string `bun:"registration_id,pk"`
	Day            string `bun:"day,pk"`
	EventID        string `bun:"event_id,notnull"`
}

func (d RegistrationDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Day)
}

func (d *RegistrationDay) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Day)
}

// DayKeys returns the selected days in ascending order.
func (r *Registration) DayKeys() []string {
	keys := make([]string, 0, len(r.Days))
	for _, d := range r.Days {
		keys = append(keys, d.Day)
	}
	sort.Strings(keys)
	return keys
}

// SetDays replaces the selected days, keeping the rows tied to this registration.
func (r *Registration) SetDays(days []time.Time) {
	r.Days = make([]RegistrationDay, 0, len(days))
	for _, d := range days {
		r.Days = append(r.Days, RegistrationDay{
			RegistrationID: r.ID,
			Day:            DayKey(d),
			EventID:        r.EventID,
		})
	}
}
