package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/models"
)

func TestCanTransition(t *testing.T) {
	statuses := []models.Status{models.StatusPending, models.StatusConfirmed, models.StatusRejected, models.StatusCancelled}
	allowed := map[[2]models.Status]bool{
		{models.StatusPending, models.StatusConfirmed}:   true,
		{models.StatusPending, models.StatusRejected}:    true,
		{models.StatusPending, models.StatusCancelled}:   true,
		{models.StatusConfirmed, models.StatusCancelled}: true,
		{models.StatusRejected, models.StatusCancelled}:  true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]models.Status{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition(models.StatusPending, "archived"))
}

func TestTransitionStatusConfirmTwice(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	reg := &models.Registration{ID: "reg-1", Status: models.StatusPending}

	confirmed, err := TransitionStatus(reg, models.StatusConfirmed, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	assert.Equal(t, now, confirmed.UpdatedAt)
	assert.Equal(t, models.StatusPending, reg.Status, "input is not modified")

	again, err := TransitionStatus(confirmed, models.StatusConfirmed, now)
	assert.Nil(t, again)
	require.ErrorIs(t, err, ErrInvalidTransition)

	derr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, models.StatusConfirmed, derr.From)
}
