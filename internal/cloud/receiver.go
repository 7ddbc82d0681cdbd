package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/iudanet/catalogsync/internal/metrics"
	"github.com/iudanet/catalogsync/internal/models"
)

// Mirror is the cloud log write side used by a Receiver
type Mirror interface {
	Mirror(ctx context.Context, ops []*models.CRDTOperation) (int, error)
}

// Admitter checks relayed timestamps against the local clock, see crdt.HLC.Admit
type Admitter interface {
	Admit(ts models.Timestamp) error
}

// Receiver accepts operations relayed from the cloud, mirrors them into the
// cloud log and wakes the bridge
type Receiver struct {
	log     Mirror
	clock   Admitter
	bridge  *Bridge
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewReceiver creates a Receiver writing to log and waking bridge.
// Timestamps clock does not admit are rejected before anything is stored
func NewReceiver(log Mirror, clock Admitter, bridge *Bridge, logger *slog.Logger, m *metrics.Metrics) *Receiver {
	return &Receiver{log: log, clock: clock, bridge: bridge, logger: logger, metrics: m}
}

// ErrEmptyBatch is returned by Receive for an empty relay batch
var ErrEmptyBatch = errors.New("empty relay batch")

// Receive validates and mirrors ops. The bridge is woken only when at least
// one operation was new
func (r *Receiver) Receive(ctx context.Context, ops []*models.CRDTOperation) (int, error) {
	if len(ops) == 0 {
		return 0, ErrEmptyBatch
	}
	for _, op := range ops {
		if op.Instance == uuid.Nil || op.Timestamp == 0 {
			return 0, fmt.Errorf("%w: relayed operation %s has no origin", models.ErrValidation, op.ID)
		}
		if _, err := models.ValidateOperation(op); err != nil {
			return 0, fmt.Errorf("relayed operation %s: %w", op.ID, err)
		}
		// Операции, которые часы не примут при ingest, в журнал не попадают
		if err := r.clock.Admit(op.Timestamp); err != nil {
			return 0, fmt.Errorf("%w: relayed operation %s: %w", models.ErrValidation, op.ID, err)
		}
	}

	n, err := r.log.Mirror(ctx, ops)
	if err != nil {
		return 0, err
	}
	r.metrics.RecordMirrored(n)

	r.logger.Debug("Mirrored cloud ops", "received", len(ops), "new", n)
	if n > 0 {
		r.bridge.Wake()
	}
	return n, nil
}
