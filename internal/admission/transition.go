package admission

import (
	"time"

	"ms-registration/internal/models"
)

// CanTransition reports whether a registration may move from one status to another:
// pending to confirmed or rejected, and any other status to cancelled. Re-applying the
// current status is never allowed.
func CanTransition(from, to models.Status) bool {
	if from == to {
		return false
	}
	switch to {
	case models.StatusConfirmed, models.StatusRejected:
		return from == models.StatusPending
	case models.StatusCancelled:
		return true
	}
	return false
}

// TransitionStatus returns a copy of reg moved to the new status.
func TransitionStatus(reg *models.Registration, to models.Status, now time.Time) (*models.Registration, error) {
	if !CanTransition(reg.Status, to) {
		return nil, invalidTransition(reg.Status, to)
	}
	next := *reg
	next.Status = to
	next.UpdatedAt = now
	return &next, nil
}
