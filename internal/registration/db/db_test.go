package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-registration/internal/admission"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/registration/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// every pooled connection would otherwise see its own in-memory database
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	store := db.New(bunDB)
	require.NoError(t, store.CreateSchema(context.Background()))
	return store
}

func mustDay(s string) time.Time {
	d, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func createEvent(t *testing.T, store *db.DB, quota int, active bool) *models.Event {
	t.Helper()
	now := time.Now().UTC()
	event := &models.Event{
		ID:         uuid.NewString(),
		Name:       "Festival " + uuid.NewString()[:4],
		StartDate:  mustDay("2025-06-10"),
		EndDate:    mustDay("2025-06-12"),
		DailyQuota: quota,
		Active:     active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.CreateEvent(context.Background(), event))
	return event
}

func newRegistration(eventID, name string, status models.Status, days ...string) *models.Registration {
	now := time.Now().UTC()
	reg := &models.Registration{
		ID:         uuid.NewString(),
		EventID:    eventID,
		FullName:   name,
		TaxID:      "52998224725",
		Address:    "Rua A, 10",
		Phone:      "11987654321",
		Category:   models.CategoryElderly,
		Protocol:   "PA-" + uuid.NewString()[:8],
		AccessCode: "123456",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	parsed := make([]time.Time, 0, len(days))
	for _, d := range days {
		parsed = append(parsed, mustDay(d))
	}
	reg.SetDays(parsed)
	return reg
}

func accept(int, map[string]int) error { return nil }

func insert(t *testing.T, store *db.DB, reg *models.Registration) {
	t.Helper()
	require.NoError(t, store.AdmitRegistration(context.Background(), reg, accept))
}

func TestEventCRUD(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	event := createEvent(t, store, 2, true)

	got, err := store.GetEventByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.Name, got.Name)
	assert.Equal(t, "2025-06-10", models.DayKey(got.StartDate))
	assert.Equal(t, "2025-06-12", models.DayKey(got.EndDate))
	assert.Equal(t, 2, got.DailyQuota)
	assert.True(t, got.Active)

	got.Name = "Renamed"
	got.Active = false
	got.DailyQuota = 5
	require.NoError(t, store.UpdateEvent(ctx, got))

	updated, err := store.GetEventByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, 5, updated.DailyQuota)

	_, err = store.GetEventByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	missing := *updated
	missing.ID = "missing"
	assert.ErrorIs(t, store.UpdateEvent(ctx, &missing), models.ErrNotFound)
}

func TestListEventsActiveOnly(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	active := createEvent(t, store, 2, true)
	createEvent(t, store, 2, false)

	all, err := store.ListEvents(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyActive, err := store.ListEvents(ctx, true)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, active.ID, onlyActive[0].ID)

	n, err := store.CountEvents(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteEvent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	used := createEvent(t, store, 2, true)
	unused := createEvent(t, store, 2, true)
	insert(t, store, newRegistration(used.ID, "Ana", models.StatusCancelled, "2025-06-10"))

	assert.ErrorIs(t, store.DeleteEvent(ctx, used.ID), models.ErrEventInUse)
	require.NoError(t, store.DeleteEvent(ctx, unused.ID))
	assert.ErrorIs(t, store.DeleteEvent(ctx, unused.ID), models.ErrNotFound)

	_, err := store.GetEventByID(ctx, used.ID)
	assert.NoError(t, err)
}

func TestCountActiveByDay(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	event := createEvent(t, store, 5, true)
	other := createEvent(t, store, 5, true)

	insert(t, store, newRegistration(event.ID, "A", models.StatusPending, "2025-06-10", "2025-06-11"))
	insert(t, store, newRegistration(event.ID, "B", models.StatusConfirmed, "2025-06-11"))
	insert(t, store, newRegistration(event.ID, "C", models.StatusCancelled, "2025-06-11"))
	insert(t, store, newRegistration(event.ID, "D", models.StatusRejected, "2025-06-12"))
	insert(t, store, newRegistration(other.ID, "E", models.StatusPending, "2025-06-11"))

	counts, err := store.CountActiveByDay(ctx, event.ID, []string{"2025-06-10", "2025-06-11", "2025-06-12"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2025-06-10": 1, "2025-06-11": 2}, counts)

	empty, err := store.CountActiveByDay(ctx, event.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAdmitRegistrationRejectedByCheckWritesNothing(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	event := createEvent(t, store, 1, true)

	reg := newRegistration(event.ID, "A", models.StatusPending, "2025-06-10", "2025-06-11")
	boom := errors.New("full")
	var seen map[string]int
	var seenQuota int
	err := store.AdmitRegistration(ctx, reg, func(quota int, counts map[string]int) error {
		seenQuota, seen = quota, counts
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, seen)
	assert.Equal(t, 1, seenQuota)

	_, err = store.GetRegistration(ctx, reg.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	counts, err := store.CountActiveByDay(ctx, event.ID, []string{"2025-06-10", "2025-06-11"})
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestAdmitRegistrationReadsCurrentQuota(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	event := createEvent(t, store, 3, true)

	edited := *event
	edited.DailyQuota = 1
	require.NoError(t, store.UpdateEvent(ctx, &edited))

	var seenQuota int
	reg := newRegistration(event.ID, "A", models.StatusPending, "2025-06-10")
	require.NoError(t, store.AdmitRegistration(ctx, reg, func(quota int, _ map[string]int) error {
		seenQuota = quota
		return nil
	}))
	assert.Equal(t, 1, seenQuota)
}

func TestAdmitRegistrationUnknownEvent(t *testing.T) {
	store := setupTestDB(t)

	reg := newRegistration(uuid.NewString(), "A", models.StatusPending, "2025-06-10")
	err := store.AdmitRegistration(context.Background(), reg, accept)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAdmitRegistrationDuplicateProtocol(t *testing.T) {
	store := setupTestDB(t)
	event := createEvent(t, store, 5, true)

	first := newRegistration(event.ID, "A", models.StatusPending, "2025-06-10")
	insert(t, store, first)

	second := newRegistration(event.ID, "B", models.StatusPending, "2025-06-10")
	second.Protocol = first.Protocol
	err := store.AdmitRegistration(context.Background(), second, accept)
	assert.ErrorIs(t, err, models.ErrDuplicateProtocol)
}

func TestGetRegistrationLoadsRelations(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	event := createEvent(t, store, 5, true)

	reg := newRegistration(event.ID, "Ana", models.StatusPending, "2025-06-12", "2025-06-10")
	notes := "wheelchair access"
	reg.Notes = &notes
	insert(t, store, reg)

	got, err := store.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-10", "2025-06-12"}, got.DayKeys())
	require.NotNil(t, got.Event)
	assert.Equal(t, event.Name, got.Event.Name)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)
	assert.Nil(t, got.DisabilityType)

	byProtocol, err := store.GetRegistrationByProtocol(ctx, reg.Protocol)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, byProtocol.ID)

	_, err = store.GetRegistrationByProtocol(ctx, "PA-NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateRegistrationStatus(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	event := createEvent(t, store, 5, true)
	reg := newRegistration(event.ID, "Ana", models.StatusPending, "2025-06-10")
	insert(t, store, reg)

	at := time.Now().UTC().Add(time.Minute)
	require.NoError(t, store.UpdateRegistrationStatus(ctx, reg.ID, models.StatusPending, models.StatusConfirmed, at))

	got, err := store.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.WithinDuration(t, at, got.UpdatedAt, time.Second)

	err = store.UpdateRegistrationStatus(ctx, reg.ID, models.StatusPending, models.StatusRejected, at)
	assert.ErrorIs(t, err, models.ErrStatusChanged)

	err = store.UpdateRegistrationStatus(ctx, "missing", models.StatusPending, models.StatusRejected, at)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateRegistrationDetails(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	event := createEvent(t, store, 5, true)
	reg := newRegistration(event.ID, "Ana", models.StatusPending, "2025-06-10")
	insert(t, store, reg)

	disability := "visual"
	reg.FullName = "Ana Maria"
	reg.Category = models.CategoryDisabledPerson
	reg.DisabilityType = &disability
	reg.Status = models.StatusConfirmed
	require.NoError(t, store.UpdateRegistrationDetails(ctx, reg))

	got, err := store.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", got.FullName)
	assert.Equal(t, models.CategoryDisabledPerson, got.Category)
	require.NotNil(t, got.DisabilityType)
	assert.Equal(t, "visual", *got.DisabilityType)
	assert.Equal(t, models.StatusPending, got.Status, "status is not part of the details")
}

func TestListRegistrationsFilters(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	event := createEvent(t, store, 10, true)
	other := createEvent(t, store, 10, true)

	ana := newRegistration(event.ID, "Ana Lima", models.StatusPending, "2025-06-10")
	bruno := newRegistration(event.ID, "Bruno Costa", models.StatusConfirmed, "2025-06-11")
	bruno.TaxID = "11144477735"
	bruno.Category = models.CategoryPregnant
	carla := newRegistration(other.ID, "Carla Dias", models.StatusPending, "2025-06-10", "2025-06-11")
	for i, r := range []*models.Registration{ana, bruno, carla} {
		r.CreatedAt = time.Date(2025, 5, 1+i, 0, 0, 0, 0, time.UTC)
		insert(t, store, r)
	}

	names := func(regs []models.Registration) []string {
		out := make([]string, 0, len(regs))
		for _, r := range regs {
			out = append(out, r.FullName)
		}
		return out
	}

	tests := []struct {
		name   string
		filter db.RegistrationFilter
		want   []string
	}{
		{"all newest first", db.RegistrationFilter{}, []string{"Carla Dias", "Bruno Costa", "Ana Lima"}},
		{"by event", db.RegistrationFilter{EventID: event.ID}, []string{"Bruno Costa", "Ana Lima"}},
		{"by status", db.RegistrationFilter{Status: models.StatusPending}, []string{"Carla Dias", "Ana Lima"}},
		{"by category", db.RegistrationFilter{Category: models.CategoryPregnant}, []string{"Bruno Costa"}},
		{"by day", db.RegistrationFilter{Day: "2025-06-11"}, []string{"Carla Dias", "Bruno Costa"}},
		{"search name case-insensitive", db.RegistrationFilter{Search: "bRuNo"}, []string{"Bruno Costa"}},
		{"search formatted cpf", db.RegistrationFilter{Search: "111.444"}, []string{"Bruno Costa"}},
		{"search protocol", db.RegistrationFilter{Search: ana.Protocol}, []string{"Ana Lima"}},
		{"no match", db.RegistrationFilter{Search: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regs, total, err := store.ListRegistrations(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(regs))
			assert.Equal(t, len(tt.want), total)
		})
	}

	page, total, err := store.ListRegistrations(ctx, db.RegistrationFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"Bruno Costa"}, names(page))
	require.NotNil(t, page[0].Event)
	assert.Equal(t, []string{"2025-06-11"}, page[0].DayKeys())
}

func TestStatsQueries(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	event := createEvent(t, store, 10, true)

	insert(t, store, newRegistration(event.ID, "A", models.StatusPending, "2025-06-10", "2025-06-11"))
	insert(t, store, newRegistration(event.ID, "B", models.StatusConfirmed, "2025-06-10"))
	insert(t, store, newRegistration(event.ID, "C", models.StatusCancelled, "2025-06-10"))

	total, err := store.CountRegistrations(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	pending, err := store.CountRegistrations(ctx, models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	rows, err := store.CountByDayAndStatus(ctx, event.ID)
	require.NoError(t, err)
	got := make(map[string]int)
	for _, r := range rows {
		got[fmt.Sprintf("%s/%s", r.Day, r.Status)] = r.Count
	}
	assert.Equal(t, map[string]int{
		"2025-06-10/pending":   1,
		"2025-06-10/confirmed": 1,
		"2025-06-10/cancelled": 1,
		"2025-06-11/pending":   1,
	}, got)
}

func TestAdmins(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureAdmin(ctx, &models.Admin{
		ID:        uuid.NewString(),
		Email:     " Staff@Example.org ",
		Name:      "Staff",
		CreatedAt: time.Now().UTC(),
	}))

	ok, err := store.IsAdmin(ctx, "staff@example.org")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.IsAdmin(ctx, "STAFF@EXAMPLE.ORG")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.IsAdmin(ctx, "someone@example.org")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.IsAdmin(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, store.EnsureAdmin(ctx, &models.Admin{
			ID:        uuid.NewString(),
			Email:     "Boot@Example.org",
			Name:      "boot",
			CreatedAt: time.Now().UTC(),
		}))
	}

	ok, err := store.IsAdmin(ctx, "boot@example.org")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEngineOverStoreEndToEnd(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	event := createEvent(t, store, 2, true)

	engine := admission.NewEngine(store, admission.NewMemoryLocker(), nil, logger.NewWithWriter(io.Discard))

	submit := func() (*models.Registration, error) {
		v, err := admission.ValidateSubmission(event, admission.Submission{
			Days: []time.Time{mustDay("2025-06-11")},
			Applicant: admission.Applicant{
				FullName: "Maria",
				TaxID:    "529.982.247-25",
				Address:  "Rua A",
				Phone:    "11987654321",
				Category: models.CategoryElderly,
			},
		})
		require.NoError(t, err)
		return engine.Admit(ctx, event, v)
	}

	_, err := submit()
	require.NoError(t, err)
	_, err = submit()
	require.NoError(t, err)
	_, err = submit()
	require.ErrorIs(t, err, admission.ErrDayFull)
	derr, ok := admission.AsError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"2025-06-11"}, derr.DayKeys())

	avail, err := engine.Availability(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, admission.Availability{"2025-06-10": 2, "2025-06-11": 0, "2025-06-12": 2}, avail)
}

func TestEngineOverStoreConcurrentAdmits(t *testing.T) {
	store := setupTestDB(t)
	event := createEvent(t, store, 1, true)
	engine := admission.NewEngine(store, admission.NewMemoryLocker(), nil, logger.NewWithWriter(io.Discard))

	v, err := admission.ValidateSubmission(event, admission.Submission{
		Days: []time.Time{mustDay("2025-06-10")},
		Applicant: admission.Applicant{
			FullName: "Maria",
			TaxID:    "52998224725",
			Address:  "Rua A",
			Phone:    "11987654321",
			Category: models.CategoryPregnant,
		},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var admitted, full int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Admit(context.Background(), event, v)
			switch {
			case err == nil:
				atomic.AddInt32(&admitted, 1)
			case errors.Is(err, admission.ErrDayFull):
				atomic.AddInt32(&full, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted)
	assert.Equal(t, int32(9), full)

	pending, err := store.CountRegistrations(context.Background(), models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}
