package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a part, policy or suggestion does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientData is returned when a part has fewer removal events
	// than the configured minimum sample count. No state is mutated.
	ErrInsufficientData = errors.New("insufficient demand data")

	// ErrPolicyDisabled marks a part whose policy has been switched off.
	ErrPolicyDisabled = errors.New("rop policy disabled")

	// ErrInvalidInput is returned for validation failures on user supplied values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSuggestionNotPending is returned when an action requires a PENDING suggestion.
	ErrSuggestionNotPending = errors.New("suggestion is not pending")

	// ErrNoSupplier is returned when a purchase order is requested for a
	// suggestion without a resolved supplier.
	ErrNoSupplier = errors.New("suggestion has no supplier")
)

// PartError records a failed calculation for one part during a batch run.
type PartError struct {
	PartID int64  `json:"part_id" db:"part_id"`
	Error  string `json:"error" db:"error"`
}

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Invalidf wraps ErrInvalidInput with context.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}
