package models

import "errors"

var (
	// ErrNotFound is returned by the record store when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEventInUse is returned when deleting an event that registrations still reference.
	ErrEventInUse = errors.New("event has registrations")

	// ErrDuplicateProtocol is returned when a generated protocol collides with a stored one.
	ErrDuplicateProtocol = errors.New("protocol already in use")

	// ErrStatusChanged is returned when a conditional status update finds a different status.
	ErrStatusChanged = errors.New("registration status changed concurrently")
)
