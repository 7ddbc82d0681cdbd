package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iudanet/catalogsync/internal/crdt"
	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/internal/storage"
)

var _ storage.Ingester = (*Storage)(nil)

// ApplyBatch applies remote operations to the domain tables and logs them in
// the local log, all in one transaction.
//
// The batch is sorted by (timestamp, instance) first. Operations covered by
// watermark or already logged are skipped. An operation that lost the
// last-write-wins race against a newer logged operation for the same record
// is logged but not applied; operations later in the same batch count as
// logged for this check.
func (s *Storage) ApplyBatch(
	ctx context.Context,
	ops []*models.CRDTOperation,
	watermark models.Watermark,
) (*storage.ApplyResult, error) {
	batch := append([]*models.CRDTOperation(nil), ops...)
	models.SortOperations(batch)

	// Все проверки формата до открытия транзакции
	encoded := make([]*encodedOp, 0, len(batch))
	schemas := make([]*models.Schema, 0, len(batch))
	inBatch := crdt.NewLWWSet()
	for _, op := range batch {
		schema, err := models.ValidateOperation(op)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", op.ID, err)
		}
		e, err := encodeOp(op)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, e)
		schemas = append(schemas, schema)
		inBatch.Add(op, e.recordID)
	}

	result := &storage.ApplyResult{Watermark: watermark.Clone()}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %w", storage.ErrStorage, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	ids := s.newInstanceIDs()
	for i, e := range encoded {
		op := e.op

		if result.Watermark.Covers(op.Instance, op.Timestamp) {
			result.Skipped++
			continue
		}

		logged, err := s.local.contains(ctx, tx, op.ID)
		if err != nil {
			return nil, err
		}
		if logged {
			result.Skipped++
			result.Watermark.Advance(op.Instance, op.Timestamp)
			continue
		}

		// Порядок применения внутри пакета не влияет на результат
		superseded := inBatch.Superseded(op, e.recordID)
		if !superseded {
			superseded, err = s.local.superseded(ctx, tx, e)
			if err != nil {
				return nil, err
			}
		}
		if superseded {
			result.Superseded++
		} else {
			if err := applyOperation(ctx, tx, schemas[i], op); err != nil {
				return nil, err
			}
			result.Applied++
		}

		if err := s.local.insert(ctx, tx, ids, e); err != nil {
			return nil, err
		}
		result.Watermark.Advance(op.Instance, op.Timestamp)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: failed to commit: %w", storage.ErrStorage, err)
	}
	ids.remember()

	return result, nil
}

// contains проверяет, залогирована ли уже операция с данным id
func (l *OpLog) contains(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + l.table + ` WHERE id = ?)`
	if err := tx.QueryRowxContext(ctx, query, id[:]).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: failed to check operation: %w", storage.ErrStorage, err)
	}
	return exists, nil
}

// supersedingKinds возвращает виды операций, которые отменяют op,
// если они новее ее по глобальному порядку
func supersedingKinds(op *models.CRDTOperation) []string {
	switch op.Data.Type {
	case models.DataUpdate:
		return []string{op.Kind(), models.KindDelete}
	case models.DataCreate:
		return []string{models.KindDelete}
	case models.DataDelete:
		return []string{models.KindCreate}
	default:
		return nil
	}
}

// superseded сообщает, есть ли в журнале более новая операция над той же
// записью, которая выигрывает у op по last-write-wins
func (l *OpLog) superseded(ctx context.Context, tx *sqlx.Tx, e *encodedOp) (bool, error) {
	kinds := supersedingKinds(e.op)
	if len(kinds) == 0 {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM ` + l.table + ` o
			JOIN instance i ON i.id = o.instance_id
			WHERE o.model = ? AND o.record_id = ? AND o.kind IN (` + placeholders(len(kinds)) + `)
			AND (o.timestamp > ? OR (o.timestamp = ? AND i.pub_id > ?))
		)
	`

	ts := int64(e.op.Timestamp)
	args := []any{e.op.Model, e.recordID}
	for _, k := range kinds {
		args = append(args, k)
	}
	args = append(args, ts, ts, e.op.Instance[:])

	var exists bool
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: failed to check newer operations: %w", storage.ErrStorage, err)
	}
	return exists, nil
}
