package admission

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-registration/internal/models"
)

// Code identifies a domain failure. Codes are stable and exposed over the API.
type Code string

const (
	CodeNoDaysSelected        Code = "NO_DAYS_SELECTED"
	CodeDayOutOfRange         Code = "DAY_OUT_OF_RANGE"
	CodeInvalidTaxID          Code = "INVALID_TAX_ID"
	CodeMissingDisabilityType Code = "MISSING_DISABILITY_TYPE"
	CodeInvalidCompanionTaxID Code = "INVALID_COMPANION_TAX_ID"
	CodeInvalidCategory       Code = "INVALID_CATEGORY"
	CodeMissingField          Code = "MISSING_FIELD"
	CodeDayFull               Code = "DAY_FULL"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeBusy                  Code = "BUSY"
)

// Error is the single domain error type of the engine.
type Error struct {
	Code    Code
	Message string
	// Days holds the offending days for DayOutOfRange and DayFull.
	Days []time.Time
	// Field names the missing field for MissingField.
	Field string
	From  models.Status
	To    models.Status
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Days) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.DayKeys(), ", "))
	}
	return b.String()
}

// Is matches on Code so errors.Is(err, ErrDayFull) works for any DayFull error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) DayKeys() []string {
	keys := make([]string, 0, len(e.Days))
	for _, d := range e.Days {
		keys = append(keys, models.DayKey(d))
	}
	return keys
}

// Input reports whether the error was caused by the submitted data.
func (e *Error) Input() bool {
	switch e.Code {
	case CodeNoDaysSelected, CodeDayOutOfRange, CodeInvalidTaxID, CodeMissingDisabilityType,
		CodeInvalidCompanionTaxID, CodeInvalidCategory, CodeMissingField:
		return true
	}
	return false
}

var (
	ErrNoDaysSelected        = &Error{Code: CodeNoDaysSelected, Message: "select at least one day"}
	ErrDayOutOfRange         = &Error{Code: CodeDayOutOfRange, Message: "day outside the event period"}
	ErrInvalidTaxID          = &Error{Code: CodeInvalidTaxID, Message: "invalid CPF"}
	ErrMissingDisabilityType = &Error{Code: CodeMissingDisabilityType, Message: "disability type is required for disabled person category"}
	ErrInvalidCompanionTaxID = &Error{Code: CodeInvalidCompanionTaxID, Message: "invalid companion CPF"}
	ErrInvalidCategory       = &Error{Code: CodeInvalidCategory, Message: "unknown category"}
	ErrMissingField          = &Error{Code: CodeMissingField, Message: "required field missing"}
	ErrDayFull               = &Error{Code: CodeDayFull, Message: "no seats left"}
	ErrInvalidTransition     = &Error{Code: CodeInvalidTransition, Message: "status change not allowed"}
	ErrBusy                  = &Error{Code: CodeBusy, Message: "admission in progress for the selected days, try again"}
)

// ErrStore marks failures of the record store or lock service. They are safe to retry.
var ErrStore = errors.New("record store unavailable")

func dayOutOfRange(days []time.Time) *Error {
	return &Error{Code: CodeDayOutOfRange, Message: ErrDayOutOfRange.Message, Days: days}
}

func dayFull(days []time.Time) *Error {
	return &Error{Code: CodeDayFull, Message: ErrDayFull.Message, Days: days}
}

func missingField(field string) *Error {
	return &Error{Code: CodeMissingField, Message: field + " is required", Field: field}
}

func invalidTransition(from, to models.Status) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot change status from %s to %s", from, to),
		From:    from,
		To:      to,
	}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// AsError extracts the domain error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
