package service

import (
	"context"
	"fmt"
	"strings"

	"ms-registration/internal/admission"
	"ms-registration/internal/models"
	"ms-registration/internal/utils"
)

// EventInput is an event as submitted by an administrator. Dates are YYYY-MM-DD.
type EventInput struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	DailyQuota        int    `json:"daily_quota"`
	AllowsCompanion   bool   `json:"allows_companion"`
	MaxCompanions     int    `json:"max_companions"`
	LogoURL           string `json:"logo_url"`
	InstitutionalText string `json:"institutional_text"`
	Guidelines        string `json:"guidelines"`
	Active            *bool  `json:"active"`
}

// apply validates in and writes it onto event.
func (in EventInput) apply(event *models.Event) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return invalid("name", "is required")
	}
	start, err := models.ParseDay(in.StartDate)
	if err != nil {
		return invalid("start_date", err.Error())
	}
	end, err := models.ParseDay(in.EndDate)
	if err != nil {
		return invalid("end_date", err.Error())
	}
	if end.Before(start) {
		return invalid("end_date", "must not be before start_date")
	}
	if in.DailyQuota <= 0 {
		return invalid("daily_quota", "must be greater than zero")
	}
	if in.MaxCompanions < 0 {
		return invalid("max_companions", "must not be negative")
	}
	if !in.AllowsCompanion && in.MaxCompanions != 0 {
		return invalid("max_companions", "must be zero when companions are not allowed")
	}

	event.Name = name
	event.Description = strings.TrimSpace(in.Description)
	event.StartDate = start
	event.EndDate = end
	event.DailyQuota = in.DailyQuota
	event.AllowsCompanion = in.AllowsCompanion
	event.MaxCompanions = in.MaxCompanions
	event.LogoURL = strings.TrimSpace(in.LogoURL)
	event.InstitutionalText = in.InstitutionalText
	event.Guidelines = in.Guidelines
	if in.Active != nil {
		event.Active = *in.Active
	}
	return nil
}

func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*models.Event, error) {
	now := s.now()
	event := &models.Event{
		ID:        utils.GenerateID(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := in.apply(event); err != nil {
		return nil, err
	}
	if err := s.Store.CreateEvent(ctx, event); err != nil {
		return nil, s.storeErr("CREATE_EVENT", event.Name, err)
	}
	s.Logger.Info("EVENT", fmt.Sprintf("created event %s (%s)", event.ID, event.Name))
	return event, nil
}

func (s *Service) UpdateEvent(ctx context.Context, id string, in EventInput) (*models.Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(event); err != nil {
		return nil, err
	}
	event.UpdatedAt = s.now()
	if err := s.Store.UpdateEvent(ctx, event); err != nil {
		return nil, s.storeErr("UPDATE_EVENT", id, err)
	}
	s.Logger.Info("EVENT", fmt.Sprintf("updated event %s", id))
	return event, nil
}

// SetEventActive opens or closes an event for public registration.
func (s *Service) SetEventActive(ctx context.Context, id string, active bool) (*models.Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Active = active
	event.UpdatedAt = s.now()
	if err := s.Store.UpdateEvent(ctx, event); err != nil {
		return nil, s.storeErr("UPDATE_EVENT", id, err)
	}
	s.Logger.Info("EVENT", fmt.Sprintf("event %s active=%t", id, active))
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.Store.GetEventByID(ctx, id)
	if err != nil {
		return nil, s.storeErr("GET_EVENT", id, err)
	}
	return event, nil
}

func (s *Service) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.Store.ListEvents(ctx, false)
	if err != nil {
		return nil, s.storeErr("LIST_EVENTS", "all", err)
	}
	return events, nil
}

// DeleteEvent fails with models.ErrEventInUse while any registration references the event.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if err := s.Store.DeleteEvent(ctx, id); err != nil {
		return s.storeErr("DELETE_EVENT", id, err)
	}
	s.Logger.Info("EVENT", fmt.Sprintf("deleted event %s", id))
	return nil
}

func (s *Service) PublicEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.Store.ListEvents(ctx, true)
	if err != nil {
		return nil, s.storeErr("LIST_EVENTS", "active", err)
	}
	return events, nil
}

// EventAvailability is an event together with the remaining seats of each of its days.
type EventAvailability struct {
	Event *models.Event               `json:"event"`
	Days  []admission.DayAvailability `json:"days"`
}

// PublicEvent returns an active event and its availability. Inactive events are not found.
func (s *Service) PublicEvent(ctx context.Context, id string) (*EventAvailability, error) {
	event, err := s.activeEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	avail, err := s.Engine.Availability(ctx, event)
	if err != nil {
		return nil, err
	}
	return &EventAvailability{Event: event, Days: avail.Sorted()}, nil
}

func (s *Service) activeEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.Active {
		return nil, models.ErrNotFound
	}
	return event, nil
}

// DayReport is one day of the per-event occupancy report.
type DayReport struct {
	Day           string `json:"day"`
	Registrations int    `json:"registrations"`
	Confirmed     int    `json:"confirmed"`
	Active        int    `json:"active"`
	Remaining     int    `json:"remaining"`
}

// EventDayReport lists every day of the event with its registrations of any status, confirmed
// and active counts and remaining seats.
func (s *Service) EventDayReport(ctx context.Context, id string) ([]DayReport, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.Store.CountByDayAndStatus(ctx, id)
	if err != nil {
		return nil, s.storeErr("COUNT_BY_DAY", id, err)
	}

	byDay := make(map[string]*DayReport)
	days := event.Days()
	report := make([]DayReport, len(days))
	for i, d := range days {
		report[i].Day = models.DayKey(d)
		byDay[report[i].Day] = &report[i]
	}
	for _, c := range counts {
		row, ok := byDay[c.Day]
		if !ok {
			continue
		}
		row.Registrations += c.Count
		if c.Status == models.StatusConfirmed {
			row.Confirmed += c.Count
		}
		if c.Status.Active() {
			row.Active += c.Count
		}
	}
	for i := range report {
		report[i].Remaining = event.DailyQuota - report[i].Active
		if report[i].Remaining < 0 {
			report[i].Remaining = 0
		}
	}
	return report, nil
}

// Stats are the dashboard totals.
type Stats struct {
	TotalEvents          int `json:"total_events"`
	ActiveEvents         int `json:"active_events"`
	TotalRegistrations   int `json:"total_registrations"`
	PendingRegistrations int `json:"pending_registrations"`
}

func (s *Service) Dashboard(ctx context.Context) (*Stats, error) {
	var st Stats
	var err error
	if st.TotalEvents, err = s.Store.CountEvents(ctx, false); err != nil {
		return nil, s.storeErr("COUNT_EVENTS", "all", err)
	}
	if st.ActiveEvents, err = s.Store.CountEvents(ctx, true); err != nil {
		return nil, s.storeErr("COUNT_EVENTS", "active", err)
	}
	if st.TotalRegistrations, err = s.Store.CountRegistrations(ctx, ""); err != nil {
		return nil, s.storeErr("COUNT_REGISTRATIONS", "all", err)
	}
	if st.PendingRegistrations, err = s.Store.CountRegistrations(ctx, models.StatusPending); err != nil {
		return nil, s.storeErr("COUNT_REGISTRATIONS", string(models.StatusPending), err)
	}
	return &st, nil
}
