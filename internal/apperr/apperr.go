package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds shared by every manager. Domain packages declare their own
// sentinels wrapping one of these so the HTTP layer only has to know the kind.
var (
	ErrNotFound     = errors.New("NOT_FOUND")
	ErrConflict     = errors.New("CONFLICT")
	ErrInvalidState = errors.New("INVALID_STATE")
	ErrValidation   = errors.New("VALIDATION_FAILED")
)

// New declares a domain sentinel of the given kind.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NotFound builds an ad-hoc NotFound error for the given entity and id.
func NotFound(entity string, id any) error {
	return fmt.Errorf("%s %v not found: %w", entity, id, ErrNotFound)
}

// Validation builds an ad-hoc ValidationFailed error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// FromLookup turns gorm.ErrRecordNotFound into a NotFound for entity/id and
// passes every other error through untouched.
func FromLookup(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(entity, id)
	}
	return err
}

// Kind reports which of the four kinds err belongs to, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrInvalidState, ErrValidation} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
