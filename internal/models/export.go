package models

import "time"

// RegistrationExport is the flat, read-only projection handed to the export layer.
type RegistrationExport struct {
	Protocol       string
	AccessCode     string
	Status         Status
	FullName       string
	TaxID          string
	Category       Category
	Address        string
	Phone          string
	DisabilityType string
	Notes          string
	CompanionName  string
	CompanionTaxID string
	EventID        string
	EventName      string
	Days           []string
	CreatedAt      time.Time
}

func NewRegistrationExport(r Registration, eventName string) RegistrationExport {
	if eventName == "" && r.Event != nil {
		eventName = r.Event.Name
	}
	return RegistrationExport{
		Protocol:       r.Protocol,
		AccessCode:     r.AccessCode,
		Status:         r.Status,
		FullName:       r.FullName,
		TaxID:          r.TaxID,
		Category:       r.Category,
		Address:        r.Address,
		Phone:          r.Phone,
		DisabilityType: deref(r.DisabilityType),
		Notes:          deref(r.Notes),
		CompanionName:  deref(r.CompanionName),
		CompanionTaxID: deref(r.CompanionTaxID),
		EventID:        r.EventID,
		EventName:      eventName,
		Days:           r.DayKeys(),
		CreatedAt:      r.CreatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
