package auth

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

type allowList struct {
	mu     sync.Mutex
	emails map[string]bool
}

func (a *allowList) EnsureAdmin(_ context.Context, admin *models.Admin) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.emails == nil {
		a.emails = make(map[string]bool)
	}
	a.emails[admin.Email] = true
	return nil
}

func (a *allowList) IsAdmin(_ context.Context, email string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emails[email], nil
}

type MockAdminStore struct {
	mock.Mock
}

func (m *MockAdminStore) EnsureAdmin(ctx context.Context, admin *models.Admin) error {
	return m.Called(ctx, admin).Error(0)
}

func TestBootstrapAdminsDropsCachedDenial(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	log := logger.NewWithWriter(io.Discard)
	list := &allowList{}
	cache := NewRedisAdminCache(client, list, time.Hour, log)
	ctx := context.Background()

	ok, err := cache.IsAdmin(ctx, "new@example.org")
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, mr.Exists(adminCachePrefix+"new@example.org"))

	added := BootstrapAdmins(ctx, list, cache, []string{" New@Example.org "}, log)
	assert.Equal(t, 1, added)

	ok, err = cache.IsAdmin(ctx, "new@example.org")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBootstrapAdminsWithoutCache(t *testing.T) {
	list := &allowList{}
	added := BootstrapAdmins(context.Background(), list, nil, []string{"a@example.org", "b@example.org"}, logger.NewWithWriter(io.Discard))
	assert.Equal(t, 2, added)

	ok, err := list.IsAdmin(context.Background(), "b@example.org")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBootstrapAdminsKeepsCacheOnStoreError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	require.NoError(t, mr.Set(adminCachePrefix+"x@example.org", "0"))

	store := new(MockAdminStore)
	store.On("EnsureAdmin", mock.Anything, mock.Anything).Return(errors.New("db down"))

	log := logger.NewWithWriter(io.Discard)
	cache := NewRedisAdminCache(client, &allowList{}, time.Hour, log)
	added := BootstrapAdmins(context.Background(), store, cache, []string{"x@example.org"}, log)

	assert.Equal(t, 0, added)
	assert.True(t, mr.Exists(adminCachePrefix+"x@example.org"))
	store.AssertExpectations(t)
}
