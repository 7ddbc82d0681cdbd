package models

import (
	"errors"
	"fmt"
)

// Validation errors for malformed sync payloads
var (
	// ErrValidation is wrapped by every payload validation failure
	ErrValidation = errors.New("validation error")

	// ErrUnknownModel indicates an operation addressed to an unregistered model
	ErrUnknownModel = fmt.Errorf("%w: unknown model", ErrValidation)

	// ErrUnknownField indicates an update of a field the model does not sync
	ErrUnknownField = fmt.Errorf("%w: unknown field", ErrValidation)

	// ErrInvalidRecordID indicates a record key that does not match the model key
	ErrInvalidRecordID = fmt.Errorf("%w: invalid record id", ErrValidation)
)
