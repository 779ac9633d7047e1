package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Error kinds surfaced to callers. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("not permitted")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflicting update")
	ErrStore        = errors.New("store failure")
	ErrUnavailable  = errors.New("feature unavailable")
)

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

func validationFailure(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]
		return fmt.Errorf("%w: %s failed on %s", ErrValidation, first.Field(), first.Tag())
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func storeFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrStore, err)
}
