package admission

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

const (
	validCPF      = "529.982.247-25"
	validCPFAlt   = "11144477735"
	validCPFZeros = "00000000191"
)

func day(s string) time.Time {
	d, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func juneEvent(quota int) *models.Event {
	return &models.Event{
		ID:         "evt-1",
		Name:       "Festival",
		StartDate:  day("2025-06-10"),
		EndDate:    day("2025-06-12"),
		DailyQuota: quota,
		Active:     true,
	}
}

func submission(days ...string) Submission {
	parsed := make([]time.Time, 0, len(days))
	for _, d := range days {
		parsed = append(parsed, day(d))
	}
	return Submission{
		Days: parsed,
		Applicant: Applicant{
			FullName: "Maria Souza",
			TaxID:    validCPF,
			Address:  "Rua A, 10",
			Phone:    "(11) 98765-4321",
			Category: models.CategoryElderly,
		},
	}
}

// memStore keeps registrations in memory. With racy set it releases its own mutex between
// the recount and the insert, so only an external lock keeps admissions consistent.
type memStore struct {
	mu         sync.Mutex
	regs       map[string]*models.Registration
	protocols  map[string]bool
	quotas     map[string]int
	racy       bool
	admitDelay time.Duration
	countErr   error
	admitErr   error
	admits     int
}

func newMemStore() *memStore {
	return &memStore{
		regs:      make(map[string]*models.Registration),
		protocols: make(map[string]bool),
	}
}

// track stores event's quota unless the event is already known.
func (s *memStore) track(event *models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quotas == nil {
		s.quotas = make(map[string]int)
	}
	if _, ok := s.quotas[event.ID]; !ok {
		s.quotas[event.ID] = event.DailyQuota
	}
}

func (s *memStore) setQuota(eventID string, quota int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotas[eventID] = quota
}

func hasDay(r *models.Registration, day string) bool {
	for _, d := range r.Days {
		if d.Day == day {
			return true
		}
	}
	return false
}

func (s *memStore) count(eventID string, days []string) map[string]int {
	counts := make(map[string]int)
	for _, r := range s.regs {
		if r.EventID != eventID || !r.Status.Active() {
			continue
		}
		for _, d := range days {
			if hasDay(r, d) {
				counts[d]++
			}
		}
	}
	return counts
}

func (s *memStore) CountActiveByDay(_ context.Context, eventID string, days []string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return nil, s.countErr
	}
	return s.count(eventID, days), nil
}

func (s *memStore) AdmitRegistration(_ context.Context, reg *models.Registration, check func(int, map[string]int) error) error {
	s.mu.Lock()
	if s.admitErr != nil {
		s.mu.Unlock()
		return s.admitErr
	}
	quota, ok := s.quotas[reg.EventID]
	if !ok {
		s.mu.Unlock()
		return models.ErrNotFound
	}
	if s.protocols[reg.Protocol] {
		s.mu.Unlock()
		return models.ErrDuplicateProtocol
	}
	counts := s.count(reg.EventID, reg.DayKeys())
	if s.racy {
		s.mu.Unlock()
		time.Sleep(s.admitDelay)
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	if err := check(quota, counts); err != nil {
		return err
	}
	stored := *reg
	s.regs[reg.ID] = &stored
	s.protocols[reg.Protocol] = true
	s.admits++
	return nil
}

func (s *memStore) GetRegistration(_ context.Context, id string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) UpdateRegistrationStatus(_ context.Context, id string, from, to models.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.Status != from {
		return models.ErrStatusChanged
	}
	r.Status = to
	r.UpdatedAt = at
	return nil
}

func (s *memStore) byStatus(status models.Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.regs {
		if r.Status == status {
			n++
		}
	}
	return n
}

// seqIDs hands out predictable identifiers. Protocols listed in repeat are returned first.
type seqIDs struct {
	mu     sync.Mutex
	n      int
	repeat []string
}

func (g *seqIDs) ID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("reg-%03d", g.n)
}

func (g *seqIDs) Protocol(time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.repeat) > 0 {
		p := g.repeat[0]
		g.repeat = g.repeat[1:]
		return p, nil
	}
	g.n++
	return fmt.Sprintf("PA-TEST-%03d", g.n), nil
}

func (g *seqIDs) AccessCode() (string, error) { return "123456", nil }

type recordingPublisher struct {
	mu      sync.Mutex
	created []string
	changed []string
	err     error
}

func (p *recordingPublisher) PublishRegistrationEvent(_ context.Context, ev models.RegistrationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch ev.Type {
	case models.RegistrationCreated:
		p.created = append(p.created, ev.RegistrationID)
	case models.RegistrationStatusChanged:
		p.changed = append(p.changed, fmt.Sprintf("%s:%s->%s", ev.RegistrationID, ev.PreviousStatus, ev.Status))
	}
	return p.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *recordingNotifier) Notify(ev models.RegistrationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, ev.Type)
}

func newTestEngine(store Store, locker Locker) (*Engine, *recordingPublisher, *recordingNotifier) {
	pub := &recordingPublisher{}
	notifier := &recordingNotifier{}
	e := NewEngine(store, locker, pub, logger.NewWithWriter(io.Discard))
	e.Notifier = notifier
	e.IDs = &seqIDs{}
	e.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e, pub, notifier
}
