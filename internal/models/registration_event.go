package models

import "time"

const (
	RegistrationCreated       = "registration.created"
	RegistrationStatusChanged = "registration.status_changed"
)

// RegistrationEvent is published to Kafka and streamed to live subscribers whenever a
// registration is admitted or changes status. It carries no tax IDs.
type RegistrationEvent struct {
	Type           string    `json:"type"`
	RegistrationID string    `json:"registration_id"`
	EventID        string    `json:"event_id"`
	Protocol       string    `json:"protocol"`
	FullName       string    `json:"full_name"`
	Category       Category  `json:"category"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previous_status,omitempty"`
	Days           []string  `json:"days"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func NewRegistrationEvent(kind string, reg *Registration, previous Status) RegistrationEvent {
	return RegistrationEvent{
		Type:           kind,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		Protocol:       reg.Protocol,
		FullName:       reg.FullName,
		Category:       reg.Category,
		Status:         reg.Status,
		PreviousStatus: previous,
		Days:           reg.DayKeys(),
		OccurredAt:     reg.UpdatedAt,
	}
}
