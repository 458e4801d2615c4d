package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means the rate table cannot price the request (unknown
	// region, add-on, or service tier).
	ErrConfiguration = errors.New("booking: pricing configuration error")
	// ErrInvalidDraft means required draft fields are missing or unrecognized.
	ErrInvalidDraft = errors.New("booking: invalid draft")
	// ErrOutOfRange means a numeric field is outside its allowed domain.
	ErrOutOfRange = errors.New("booking: value out of range")
	// ErrPersistence wraps storage failures.
	ErrPersistence = errors.New("booking: persistence failure")
	// ErrPaymentProvider wraps failures from checkout providers.
	ErrPaymentProvider = errors.New("booking: payment provider failure")
	// ErrNotFound is returned when a booking id is unknown.
	ErrNotFound = errors.New("booking: not found")
	// ErrSnapshotLocked is returned when a pricing snapshot can no longer change.
	ErrSnapshotLocked = errors.New("booking: pricing snapshot locked")
)

// FieldError pins a validation failure to a draft field.
type FieldError struct {
	Kind   error
	Field  string
	Reason string
}

// NewFieldError builds a FieldError of the given kind.
func NewFieldError(kind error, field, reason string) *FieldError {
	return &FieldError{Kind: kind, Field: field, Reason: reason}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Field, e.Reason)
}

// Unwrap lets errors.Is match the sentinel kind.
func (e *FieldError) Unwrap() error {
	return e.Kind
}

// Fields collects every FieldError found in err.
func Fields(err error) []*FieldError {
	var out []*FieldError
	collectFields(err, &out)
	return out
}

func collectFields(err error, out *[]*FieldError) {
	if err == nil {
		return
	}
	if fe, ok := err.(*FieldError); ok {
		*out = append(*out, fe)
		return
	}
	switch wrapped := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range wrapped.Unwrap() {
			collectFields(e, out)
		}
	case interface{ Unwrap() error }:
		collectFields(wrapped.Unwrap(), out)
	}
}
