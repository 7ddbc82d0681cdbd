package storage

import (
	"errors"
	"fmt"
)

// Common storage errors
var (
	// ErrStorage is wrapped by every transaction or connection failure
	ErrStorage = errors.New("storage error")

	// ErrDuplicateOperation indicates an operation id that is already logged
	ErrDuplicateOperation = fmt.Errorf("%w: duplicate operation id", ErrStorage)

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = fmt.Errorf("%w: storage is closed", ErrStorage)

	// ErrRecordNotFound indicates that a domain record was not found
	ErrRecordNotFound = errors.New("record not found")

	// ErrInstanceNotFound indicates that an instance is not registered
	ErrInstanceNotFound = errors.New("instance not found")
)
