package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-registration/internal/models"
)

// DB is the bun-backed record store for events, registrations and admins.
type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// Ping checks the database connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}

// CreateSchema creates every table and index if missing. Used for SQLite and tests; PostgreSQL
// deployments run the SQL migrations instead.
func (d *DB) CreateSchema(ctx context.Context) error {
	tables := []struct {
		model interface{}
		fks   []string
	}{
		{model: (*models.Event)(nil)},
		{model: (*models.Admin)(nil)},
		{
			model: (*models.Registration)(nil),
			fks:   []string{`("event_id") REFERENCES "events" ("id")`},
		},
		{
			model: (*models.RegistrationDay)(nil),
			fks: []string{
				`("registration_id") REFERENCES "registrations" ("id") ON DELETE CASCADE`,
				`("event_id") REFERENCES "events" ("id")`,
			},
		},
	}
	for _, t := range tables {
		q := d.Bun.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.fks {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", t.model, err)
		}
	}

	indexes := []struct {
		model   interface{}
		name    string
		columns []string
	}{
		{(*models.RegistrationDay)(nil), "idx_registration_days_event_day", []string{"event_id", "day"}},
		{(*models.Registration)(nil), "idx_registrations_event", []string{"event_id"}},
		{(*models.Registration)(nil), "idx_registrations_status", []string{"status"}},
	}
	for _, idx := range indexes {
		if _, err := d.Bun.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
