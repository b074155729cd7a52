package core

import "errors"

var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorageWrite       = errors.New("storage write failed")
	ErrStorageRead        = errors.New("storage read failed")
	ErrNotFound           = errors.New("expense not found")
	ErrDuplicate          = errors.New("expense id already stored")
	ErrValidation         = errors.New("validation failed")
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	ErrEmptyCategory   = errors.New("empty category")
	ErrCategoryTooLong = errors.New("category too long (max 100 characters)")
	ErrUnknownCategory = errors.New("unknown category")
	ErrPartialRange    = errors.New("date range needs both start and end")
	ErrInvertedRange   = errors.New("start date cannot be after end date")
)

// ValidationError reports which input field was rejected. It matches both
// ErrValidation and its cause with errors.Is.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// Invalid wraps cause as a validation failure of field.
func Invalid(field string, cause error) error {
	return &ValidationError{Field: field, Err: cause}
}
