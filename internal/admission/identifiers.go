package admission

import (
	"time"

	"ms-registration/internal/utils"
)

// IdentifierGenerator produces record IDs, protocols and access codes.
type IdentifierGenerator interface {
	ID() string
	Protocol(now time.Time) (string, error)
	AccessCode() (string, error)
}

// RandomIdentifiers draws protocols and access codes from crypto/rand.
type RandomIdentifiers struct{}

func (RandomIdentifiers) ID() string { return utils.GenerateID() }

func (RandomIdentifiers) Protocol(now time.Time) (string, error) {
	return utils.GenerateProtocol(now)
}

func (RandomIdentifiers) AccessCode() (string, error) {
	return utils.GenerateAccessCode()
}
