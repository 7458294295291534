package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/logger"
)

type fakeVerifier map[string]Identity

func (f fakeVerifier) Verify(_ context.Context, raw string) (Identity, error) {
	id, ok := f[raw]
	if !ok {
		return Identity{}, errors.New("bad token")
	}
	return id, nil
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) IsAdmin(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "Token abc")
	_, err = ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "bearer abc")
	token, err := ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestMiddleware(t *testing.T) {
	verifier := fakeVerifier{
		"admin":   {Subject: "1", Email: "Admin@Example.com"},
		"visitor": {Subject: "2", Email: "visitor@example.com"},
		"noemail": {Subject: "3"},
		"broken":  {Subject: "4", Email: "broken@example.com"},
	}
	dir := new(MockDirectory)
	dir.On("IsAdmin", mock.Anything, "admin@example.com").Return(true, nil)
	dir.On("IsAdmin", mock.Anything, "visitor@example.com").Return(false, nil)
	dir.On("IsAdmin", mock.Anything, "broken@example.com").Return(false, errors.New("db down"))

	var seen string
	h := Middleware(verifier, dir, logger.NewWithWriter(io.Discard))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = AdminEmail(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer unknown", http.StatusUnauthorized},
		{"Bearer noemail", http.StatusForbidden},
		{"Bearer visitor", http.StatusForbidden},
		{"Bearer broken", http.StatusServiceUnavailable},
		{"Bearer admin", http.StatusNoContent},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, tc.status, w.Code, tc.header)
	}
	assert.Equal(t, "admin@example.com", seen)
}

func TestAdminEmailEmptyContext(t *testing.T) {
	assert.Equal(t, "", AdminEmail(context.Background()))
	assert.Equal(t, "a@b.c", AdminEmail(WithAdminEmail(context.Background(), "a@b.c")))
}

func TestRedisAdminCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	dir := new(MockDirectory)
	dir.On("IsAdmin", mock.Anything, "admin@example.com").Return(true, nil).Once()
	dir.On("IsAdmin", mock.Anything, "visitor@example.com").Return(false, nil).Once()

	cache := NewRedisAdminCache(client, dir, time.Minute, logger.NewWithWriter(io.Discard))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := cache.IsAdmin(ctx, "admin@example.com")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = cache.IsAdmin(ctx, "visitor@example.com")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	dir.AssertExpectations(t)

	mr.FastForward(2 * time.Minute)
	dir.On("IsAdmin", mock.Anything, "admin@example.com").Return(false, nil).Once()
	ok, err := cache.IsAdmin(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Forget(ctx, "admin@example.com"))
	assert.False(t, mr.Exists(adminCachePrefix+"admin@example.com"))
}

func TestRedisAdminCacheFallsThroughWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	dir := new(MockDirectory)
	dir.On("IsAdmin", mock.Anything, "admin@example.com").Return(true, nil)

	cache := NewRedisAdminCache(client, dir, time.Minute, logger.NewWithWriter(io.Discard))
	ok, err := cache.IsAdmin(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}
