package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-registration/internal/models"
)

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	if _, err := d.Bun.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

// ListEvents returns events newest first, optionally only the active ones.
func (d *DB) ListEvents(ctx context.Context, activeOnly bool) ([]models.Event, error) {
	events := make([]models.Event, 0)
	q := d.Bun.NewSelect().Model(&events).Order("e.created_at DESC")
	if activeOnly {
		q = q.Where("e.active = ?", true)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

// UpdateEvent overwrites every editable column of the event.
func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := d.Bun.NewUpdate().
		Model(event).
		Column("name", "description", "start_date", "end_date", "daily_quota", "allows_companion",
			"max_companions", "logo_url", "institutional_text", "guidelines", "active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireAffected(res)
}

// DeleteEvent removes an event that no registration references.
func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		inUse, err := tx.NewSelect().
			Model((*models.Registration)(nil)).
			Where("r.event_id = ?", id).
			Exists(ctx)
		if err != nil {
			return err
		}
		if inUse {
			return models.ErrEventInUse
		}

		res, err := tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

func (d *DB) CountEvents(ctx context.Context, activeOnly bool) (int, error) {
	q := d.Bun.NewSelect().Model((*models.Event)(nil))
	if activeOnly {
		q = q.Where("e.active = ?", true)
	}
	return q.Count(ctx)
}
