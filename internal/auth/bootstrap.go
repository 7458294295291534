package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

// AdminStore adds entries to the admin allow-list.
type AdminStore interface {
	EnsureAdmin(ctx context.Context, admin *models.Admin) error
}

// CacheInvalidator drops cached allow-list answers.
type CacheInvalidator interface {
	Forget(ctx context.Context, email string) error
}

// BootstrapAdmins puts every email on the allow-list and, when cache is set, drops its cached
// answer so a stale denial does not outlive the grant. It returns how many emails were added.
func BootstrapAdmins(ctx context.Context, store AdminStore, cache CacheInvalidator, emails []string, log *logger.Logger) int {
	added := 0
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		admin := &models.Admin{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      email,
			CreatedAt: time.Now().UTC(),
		}
		if err := store.EnsureAdmin(ctx, admin); err != nil {
			log.Error("AUTH", fmt.Sprintf("Failed to add admin %s: %v", email, err))
			continue
		}
		if cache != nil {
			if err := cache.Forget(ctx, admin.Email); err != nil {
				log.Warn("AUTH", fmt.Sprintf("admin cache invalidation failed for %s: %v", admin.Email, err))
			}
		}
		added++
		log.Info("AUTH", fmt.Sprintf("Admin %s is on the allow-list", admin.Email))
	}
	return added
}
