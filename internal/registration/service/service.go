package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-registration/internal/admission"
	"ms-registration/internal/export"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/receipt"
	"ms-registration/internal/registration/db"
)

// Store is the part of the record store the service reads and edits directly. Admission and
// status changes go through the engine.
type Store interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, activeOnly bool) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	CountEvents(ctx context.Context, activeOnly bool) (int, error)

	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	GetRegistrationByProtocol(ctx context.Context, protocol string) (*models.Registration, error)
	ListRegistrations(ctx context.Context, f db.RegistrationFilter) ([]models.Registration, int, error)
	UpdateRegistrationDetails(ctx context.Context, reg *models.Registration) error
	CountRegistrations(ctx context.Context, status models.Status) (int, error)
	CountByDayAndStatus(ctx context.Context, eventID string) ([]db.DayStatusCount, error)
}

// Engine is the admission engine as used by the service.
type Engine interface {
	Availability(ctx context.Context, event *models.Event) (admission.Availability, error)
	Admit(ctx context.Context, event *models.Event, v *admission.ValidatedRegistration) (*models.Registration, error)
	Transition(ctx context.Context, id string, to models.Status) (*models.Registration, error)
}

type Service struct {
	Store    Store
	Engine   Engine
	Signer   *receipt.Signer
	Exporter *export.Exporter
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewService(store Store, engine Engine, signer *receipt.Signer, exporter *export.Exporter, log *logger.Logger) *Service {
	if exporter == nil {
		exporter = export.NewExporter("")
	}
	return &Service{
		Store:    store,
		Engine:   engine,
		Signer:   signer,
		Exporter: exporter,
		Logger:   log,
		Now:      time.Now,
	}
}

// InputError reports a request field the service could not accept.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &InputError{Field: field, Message: message}
}

// storeErr passes not-found and in-use through and marks anything else as a store failure.
func (s *Service) storeErr(op, target string, err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrEventInUse) {
		return err
	}
	s.Logger.LogDatabase(op, target, err.Error())
	return fmt.Errorf("%w: %s: %w", admission.ErrStore, op, err)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
