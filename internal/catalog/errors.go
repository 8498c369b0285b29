package catalog

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Match with errors.Is.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrFetchFailed         = errors.New("failed to fetch metadata")
	ErrMetadataUnavailable = errors.New("metadata not available")
	ErrNotFound            = errors.New("product not found")
	ErrWrite               = errors.New("product write failed")
	ErrValidation          = errors.New("validation failed")
	ErrNoChanges           = errors.New("no changes detected")
	ErrBusy                = errors.New("operation already in progress")
)

// ValidationError names the first required field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
