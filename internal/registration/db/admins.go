package db

import (
	"context"
	"strings"

	"ms-registration/internal/models"
)

// IsAdmin reports whether email is on the admin allow-list.
func (d *DB) IsAdmin(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	return d.Bun.NewSelect().
		Model((*models.Admin)(nil)).
		Where("LOWER(email) = ?", email).
		Exists(ctx)
}

// EnsureAdmin adds email to the allow-list unless it is already there.
func (d *DB) EnsureAdmin(ctx context.Context, admin *models.Admin) error {
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	_, err := d.Bun.NewInsert().
		Model(admin).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	return err
}
