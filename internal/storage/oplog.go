package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iudanet/catalogsync/internal/models"
)

// Mutation is the domain half of a sync write. It runs inside the same
// transaction that appends the operations; returning an error rolls both back.
type Mutation func(ctx context.Context, tx *sqlx.Tx) error

//go:generate moq -out oplog_mock.go . OpLog

// OpLog defines the append-only operation log contract shared by the local
// peer-facing log and the cloud-mirrored log
type OpLog interface {
	// Append inserts ops and runs mutate in a single transaction.
	// Either both persist or neither does.
	// Returns ErrDuplicateOperation if an operation id is already logged
	Append(ctx context.Context, ops []*models.CRDTOperation, mutate Mutation) error

	// Query returns operations newer than the watermark entry of their origin
	// instance, ordered by (timestamp, instance) and truncated at limit.
	// limit <= 0 means no limit
	Query(ctx context.Context, watermark models.Watermark, limit int) ([]*models.CRDTOperation, error)

	// Watermark returns the highest logged timestamp per instance
	Watermark(ctx context.Context) (models.Watermark, error)
}

//go:generate moq -out cloudlog_mock.go . CloudLog

// CloudLog is the cloud-mirrored log: an OpLog that also accepts operations
// relayed from the cloud
type CloudLog interface {
	OpLog

	// Mirror stores relayed operations, ignoring ids that are already present.
	// Returns the number of newly stored operations
	Mirror(ctx context.Context, ops []*models.CRDTOperation) (int, error)
}

// ApplyResult describes one ingested batch
type ApplyResult struct {
	Watermark  models.Watermark // watermark after the batch
	Applied    int              // количество примененных к доменным таблицам операций
	Superseded int              // количество операций, проигравших LWW (залогированы, но не применены)
	Skipped    int              // количество операций, уже покрытых watermark
}

//go:generate moq -out ingester_mock.go . Ingester

// Ingester applies a batch of remote operations to the local log and domain
// tables in one transaction
type Ingester interface {
	// ApplyBatch applies ops in total order. Operations already covered by
	// watermark are skipped, so re-ingesting a batch is a no-op.
	// Any error rolls back the whole batch
	ApplyBatch(ctx context.Context, ops []*models.CRDTOperation, watermark models.Watermark) (*ApplyResult, error)
}
