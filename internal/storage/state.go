package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/iudanet/catalogsync/internal/models"
)

//go:generate moq -out state_mock.go . InstanceState

// InstanceState defines interface for storing the identity and clock state of
// the local instance between restarts
type InstanceState interface {
	// InstanceID returns the stable id of this instance.
	// A new id is generated and persisted on first call
	InstanceID(ctx context.Context) (uuid.UUID, error)

	// SaveClock saves the last issued timestamp
	SaveClock(ctx context.Context, ts models.Timestamp) error

	// LoadClock retrieves the last issued timestamp
	// Returns 0 if nothing was saved yet
	LoadClock(ctx context.Context) (models.Timestamp, error)
}
