package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStateTransition is returned when a budget's status disallows the requested action.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrBudgetNotEditable is returned when a budget's status does not accept the change.
	ErrBudgetNotEditable = errors.New("budget not editable")

	// ErrInvalidPayload is returned when a suggestion payload cannot be decoded.
	ErrInvalidPayload = errors.New("invalid suggestion payload")

	// ErrAlreadyApplied is returned when a suggestion has already been applied.
	ErrAlreadyApplied = errors.New("suggestion already applied")

	// ErrLowConfidence is returned when a suggestion's confidence is below the apply threshold.
	ErrLowConfidence = errors.New("suggestion confidence below threshold")

	// ErrNotFound is returned for unknown ids.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity signals that category spend no longer matches posted expenses.
	// It is not recoverable in-process.
	ErrIntegrity = errors.New("ledger integrity violation")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error on field '%s': %s (got %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Invalid builds a *ValidationError.
func Invalid(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From   BudgetStatus
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s budget in status %s", e.Action, e.From)
}

// Unwrap lets errors.Is match ErrInvalidStateTransition.
func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }

// NotFound wraps ErrNotFound with the kind and id that were missing.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// parseEnum matches s against a closed set of values.
func parseEnum[T ~string](field, s string, all []T) (T, error) {
	for _, v := range all {
		if string(v) == s {
			return v, nil
		}
	}
	var zero T
	return zero, Invalid(field, "unknown value", s)
}
