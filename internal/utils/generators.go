package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// protocolAlphabet leaves out characters that are easy to misread (0/O, 1/I/L).
const protocolAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	protocolPrefix    = "PA"
	protocolSuffixLen = 6
	accessCodeDigits  = 6
	accessCodeCeiling = 1000000
)

// GenerateID returns a new record identifier.
func GenerateID() string {
	return uuid.NewString()
}

// GenerateProtocol builds a human-readable tracking token such as PA-20250611-7F3K9Q.
func GenerateProtocol(now time.Time) (string, error) {
	suffix := make([]byte, protocolSuffixLen)
	max := big.NewInt(int64(len(protocolAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate protocol: %w", err)
		}
		suffix[i] = protocolAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", protocolPrefix, now.UTC().Format("20060102"), suffix), nil
}

// GenerateAccessCode returns a zero-padded numeric code, independent of the protocol.
func GenerateAccessCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(accessCodeCeiling))
	if err != nil {
		return "", fmt.Errorf("generate access code: %w", err)
	}
	return fmt.Sprintf("%0*d", accessCodeDigits, n.Int64()), nil
}
