package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

const (
	defaultLockWait     = 5 * time.Second
	maxProtocolAttempts = 3
)

// Store is the record store the engine admits into.
type Store interface {
	// CountActiveByDay counts pending and confirmed registrations of the event per day.
	CountActiveByDay(ctx context.Context, eventID string, days []string) (map[string]int, error)
	// AdmitRegistration reads the event's daily quota, recounts the requested days, calls check
	// with both and inserts reg only if check returns nil, all inside one transaction.
	AdmitRegistration(ctx context.Context, reg *models.Registration, check func(quota int, counts map[string]int) error) error
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	// UpdateRegistrationStatus moves id from one status to another, failing with
	// models.ErrStatusChanged if the stored status is no longer from.
	UpdateRegistrationStatus(ctx context.Context, id string, from, to models.Status, at time.Time) error
}

// Locker serializes admissions per (event, day).
type Locker interface {
	LockDays(ctx context.Context, eventID string, days []string, owner string) (bool, error)
	UnlockDays(ctx context.Context, eventID string, days []string, owner string) error
}

// Publisher delivers registration events to other services.
type Publisher interface {
	PublishRegistrationEvent(ctx context.Context, ev models.RegistrationEvent) error
}

// Notifier delivers registration events to live subscribers of this instance.
type Notifier interface {
	Notify(ev models.RegistrationEvent)
}

type Engine struct {
	Store     Store
	Locker    Locker
	Publisher Publisher
	Notifier  Notifier
	IDs       IdentifierGenerator
	Logger    *logger.Logger
	Now       func() time.Time
	// LockWait bounds how long an admission waits for busy day locks.
	LockWait time.Duration
}

func NewEngine(store Store, locker Locker, publisher Publisher, log *logger.Logger) *Engine {
	return &Engine{
		Store:     store,
		Locker:    locker,
		Publisher: publisher,
		IDs:       RandomIdentifiers{},
		Logger:    log,
		Now:       time.Now,
		LockWait:  defaultLockWait,
	}
}

// Availability loads the active counts of event and computes its remaining seats.
func (e *Engine) Availability(ctx context.Context, event *models.Event) (Availability, error) {
	days := make([]string, 0)
	for _, d := range event.Days() {
		days = append(days, models.DayKey(d))
	}
	counts, err := e.Store.CountActiveByDay(ctx, event.ID, days)
	if err != nil {
		e.Logger.LogDatabase("COUNT", event.ID, err.Error())
		return nil, storeError("count active registrations", err)
	}
	return ComputeAvailability(event, counts), nil
}

// Admit re-checks every requested day at admission time and inserts a pending registration
// only if all of them still have seats. Otherwise it returns a DayFull error listing the
// full days and writes nothing.
func (e *Engine) Admit(ctx context.Context, event *models.Event, v *ValidatedRegistration) (*models.Registration, error) {
	if v.EventID != event.ID {
		return nil, fmt.Errorf("registration validated for event %s, admitting into %s", v.EventID, event.ID)
	}

	days := v.DayKeys()
	id := e.IDs.ID()

	release, err := e.lockDays(ctx, event.ID, days, id)
	if err != nil {
		return nil, err
	}
	defer release()

	now := e.now()
	reg := &models.Registration{
		ID:        id,
		EventID:   event.ID,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	v.ApplicantDetails.Apply(reg)
	reg.SetDays(v.Days)

	// the quota read inside the transaction wins over the one loaded before the locks
	check := func(quota int, counts map[string]int) error {
		current := *event
		current.DailyQuota = quota
		avail := ComputeAvailability(&current, counts)
		var full []time.Time
		for _, d := range v.Days {
			if !avail.Selectable(d) {
				full = append(full, d)
			}
		}
		if len(full) > 0 {
			return dayFull(full)
		}
		return nil
	}

	for attempt := 1; ; attempt++ {
		if reg.Protocol, err = e.IDs.Protocol(now); err != nil {
			return nil, err
		}
		if reg.AccessCode, err = e.IDs.AccessCode(); err != nil {
			return nil, err
		}

		err = e.Store.AdmitRegistration(ctx, reg, check)
		if err == nil {
			break
		}
		if errors.Is(err, models.ErrDuplicateProtocol) && attempt < maxProtocolAttempts {
			e.Logger.Warn("ADMISSION", fmt.Sprintf("protocol %s already taken, regenerating", reg.Protocol))
			continue
		}
		if derr, ok := AsError(err); ok {
			e.Logger.LogAdmission("REJECTED", event.ID, fmt.Sprintf("%s %s", derr.Code, strings.Join(derr.DayKeys(), ",")))
			return nil, err
		}
		e.Logger.LogDatabase("ADMIT", event.ID, err.Error())
		return nil, storeError("admit registration", err)
	}

	e.Logger.LogAdmission("ADMITTED", reg.ID, fmt.Sprintf("protocol %s days %s", reg.Protocol, strings.Join(days, ",")))

	e.emit(ctx, models.NewRegistrationEvent(models.RegistrationCreated, reg, ""))

	return reg, nil
}

// Transition moves a stored registration to a new status.
func (e *Engine) Transition(ctx context.Context, id string, to models.Status) (*models.Registration, error) {
	reg, err := e.Store.GetRegistration(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, storeError("get registration", err)
	}

	next, err := TransitionStatus(reg, to, e.now())
	if err != nil {
		return nil, err
	}

	if err := e.Store.UpdateRegistrationStatus(ctx, id, reg.Status, to, next.UpdatedAt); err != nil {
		if errors.Is(err, models.ErrStatusChanged) {
			return nil, invalidTransition(reg.Status, to)
		}
		e.Logger.LogDatabase("UPDATE_STATUS", id, err.Error())
		return nil, storeError("update registration status", err)
	}

	e.Logger.LogAdmission("STATUS", id, fmt.Sprintf("%s -> %s", reg.Status, to))

	e.emit(ctx, models.NewRegistrationEvent(models.RegistrationStatusChanged, next, reg.Status))

	return next, nil
}

// emit runs after the row is committed, so delivery failures are only logged.
func (e *Engine) emit(ctx context.Context, ev models.RegistrationEvent) {
	if e.Publisher != nil {
		if err := e.Publisher.PublishRegistrationEvent(ctx, ev); err != nil {
			e.Logger.Error("KAFKA", fmt.Sprintf("publish %s for %s: %v", ev.Type, ev.RegistrationID, err))
		}
	}
	if e.Notifier != nil {
		e.Notifier.Notify(ev)
	}
}

func (e *Engine) lockDays(ctx context.Context, eventID string, days []string, owner string) (func(), error) {
	if e.Locker == nil {
		return func() {}, nil
	}

	wait := e.LockWait
	if wait <= 0 {
		wait = defaultLockWait
	}
	deadline := time.Now().Add(wait)
	backoff := 5 * time.Millisecond

	for {
		ok, err := e.Locker.LockDays(ctx, eventID, days, owner)
		if err != nil {
			return nil, storeError("lock days", err)
		}
		if ok {
			return func() {
				if err := e.Locker.UnlockDays(context.WithoutCancel(ctx), eventID, days, owner); err != nil {
					e.Logger.Warn("LOCK", fmt.Sprintf("release days of %s: %v", owner, err))
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrBusy
		}

		select {
		case <-ctx.Done():
			return nil, ErrBusy
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}
