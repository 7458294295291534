package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-registration/internal/admission"
	"ms-registration/internal/models"
)

// RegistrationFilter narrows ListRegistrations. Zero values match everything.
type RegistrationFilter struct {
	EventID  string
	Status   models.Status
	Category models.Category
	// Day keeps registrations that selected this day (YYYY-MM-DD).
	Day string
	// Search matches name or protocol case-insensitively, and the tax ID when the term
	// looks like a CPF.
	Search string
	Limit  int
	Offset int
}

func (d *DB) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Relation("Event").
		Relation("Days", orderDays).
		Where("r.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

func (d *DB) GetRegistrationByProtocol(ctx context.Context, protocol string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Relation("Event").
		Relation("Days", orderDays).
		Where("r.protocol = ?", protocol).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

// ListRegistrations returns the matching registrations newest first plus the total count
// ignoring Limit and Offset.
func (d *DB) ListRegistrations(ctx context.Context, f RegistrationFilter) ([]models.Registration, int, error) {
	regs := make([]models.Registration, 0)
	q := d.Bun.NewSelect().
		Model(&regs).
		Relation("Event").
		Relation("Days", orderDays).
		Order("r.created_at DESC")

	if f.EventID != "" {
		q = q.Where("r.event_id = ?", f.EventID)
	}
	if f.Status != "" {
		q = q.Where("r.status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("r.category = ?", f.Category)
	}
	if f.Day != "" {
		q = q.Where("r.id IN (?)", d.Bun.NewSelect().
			Model((*models.RegistrationDay)(nil)).
			Column("rd.registration_id").
			Where("rd.day = ?", f.Day))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		digits := admission.DigitsOnly(term)
		looksLikeTaxID := digits != "" && strings.Trim(term, "0123456789.- ") == ""
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("LOWER(r.full_name) LIKE ?", like).
				WhereOr("LOWER(r.protocol) LIKE ?", like)
			if looksLikeTaxID {
				q = q.WhereOr("r.tax_id LIKE ?", "%"+digits+"%")
			}
			return q
		})
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

// CountActiveByDay counts pending and confirmed registrations of the event for each of days.
// Days without registrations are left out of the map.
func (d *DB) CountActiveByDay(ctx context.Context, eventID string, days []string) (map[string]int, error) {
	return countActiveByDay(ctx, d.Bun, eventID, days)
}

func countActiveByDay(ctx context.Context, db bun.IDB, eventID string, days []string) (map[string]int, error) {
	counts := make(map[string]int, len(days))
	if len(days) == 0 {
		return counts, nil
	}

	var rows []struct {
		Day   string `bun:"day"`
		Count int    `bun:"count"`
	}
	err := db.NewSelect().
		TableExpr("registration_days AS rd").
		ColumnExpr("rd.day AS day").
		ColumnExpr("COUNT(*) AS count").
		Join("JOIN registrations AS r ON r.id = rd.registration_id").
		Where("rd.event_id = ?", eventID).
		Where("rd.day IN (?)", bun.In(days)).
		Where("r.status IN (?)", bun.In(models.ActiveStatuses())).
		GroupExpr("rd.day").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("count active registrations: %w", err)
	}

	for _, row := range rows {
		counts[row.Day] = row.Count
	}
	return counts, nil
}

// AdmitRegistration recounts the active registrations of reg's days and inserts reg with its
// days only when check accepts the event's current daily quota and the counts. Quota read,
// recount and insert share one transaction; on PostgreSQL the event row is locked first so
// admissions and quota edits for one event run one at a time.
func (d *DB) AdmitRegistration(ctx context.Context, reg *models.Registration, check func(quota int, counts map[string]int) error) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().
			Model((*models.Event)(nil)).
			Column("e.daily_quota").
			Where("e.id = ?", reg.EventID)
		if d.Bun.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		var quota int
		if err := q.Scan(ctx, &quota); err != nil {
			return fmt.Errorf("lock event %s: %w", reg.EventID, notFound(err))
		}

		taken, err := tx.NewSelect().
			Model((*models.Registration)(nil)).
			Where("r.protocol = ?", reg.Protocol).
			Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			return models.ErrDuplicateProtocol
		}

		counts, err := countActiveByDay(ctx, tx, reg.EventID, reg.DayKeys())
		if err != nil {
			return err
		}
		if err := check(quota, counts); err != nil {
			return err
		}

		if _, err := tx.NewInsert().Model(reg).Exec(ctx); err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
		if len(reg.Days) > 0 {
			if _, err := tx.NewInsert().Model(&reg.Days).Exec(ctx); err != nil {
				return fmt.Errorf("insert registration days: %w", err)
			}
		}
		return nil
	})
}

// UpdateRegistrationStatus changes the status only if it is still from.
func (d *DB) UpdateRegistrationStatus(ctx context.Context, id string, from, to models.Status, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Registration)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	exists, err := d.Bun.NewSelect().Model((*models.Registration)(nil)).Where("r.id = ?", id).Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrStatusChanged
}

// UpdateRegistrationDetails saves the applicant fields. Days, protocol, access code and
// status are left untouched.
func (d *DB) UpdateRegistrationDetails(ctx context.Context, reg *models.Registration) error {
	res, err := d.Bun.NewUpdate().
		Model(reg).
		Column("full_name", "tax_id", "address", "phone", "category", "disability_type", "notes",
			"companion_name", "companion_tax_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return requireAffected(res)
}

func (d *DB) CountRegistrations(ctx context.Context, status models.Status) (int, error) {
	q := d.Bun.NewSelect().Model((*models.Registration)(nil))
	if status != "" {
		q = q.Where("r.status = ?", status)
	}
	return q.Count(ctx)
}

// DayStatusCount is the number of registrations of one status selecting one day.
type DayStatusCount struct {
	Day    string        `bun:"day"`
	Status models.Status `bun:"status"`
	Count  int           `bun:"count"`
}

// CountByDayAndStatus groups the registrations of an event by selected day and status.
func (d *DB) CountByDayAndStatus(ctx context.Context, eventID string) ([]DayStatusCount, error) {
	rows := make([]DayStatusCount, 0)
	err := d.Bun.NewSelect().
		TableExpr("registration_days AS rd").
		ColumnExpr("rd.day AS day").
		ColumnExpr("r.status AS status").
		ColumnExpr("COUNT(*) AS count").
		Join("JOIN registrations AS r ON r.id = rd.registration_id").
		Where("rd.event_id = ?", eventID).
		GroupExpr("rd.day, r.status").
		OrderExpr("rd.day ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("count registrations by day: %w", err)
	}
	return rows, nil
}

func orderDays(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("rd.day ASC")
}
