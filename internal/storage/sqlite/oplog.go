package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/iudanet/catalogsync/internal/codec"
	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/internal/storage"
)

// OpLog is one physical operation log table. The local and the cloud log
// share the layout and the encoding and differ only by table name
type OpLog struct {
	s     *Storage
	table string
}

var (
	_ storage.OpLog    = (*OpLog)(nil)
	_ storage.CloudLog = (*OpLog)(nil)
)

// opRow строка таблицы журнала вместе с pub_id узла-источника
type opRow struct {
	ID        []byte `db:"id"`
	Instance  []byte `db:"instance"`
	Model     string `db:"model"`
	RecordID  []byte `db:"record_id"`
	Kind      string `db:"kind"`
	Data      []byte `db:"data"`
	Timestamp int64  `db:"timestamp"`
}

// encodedOp операция, подготовленная к вставке
type encodedOp struct {
	op       *models.CRDTOperation
	recordID []byte
	data     []byte
}

func encodeOp(op *models.CRDTOperation) (*encodedOp, error) {
	recordID, err := codec.EncodeRecordID(op.RecordID)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", op.ID, err)
	}
	data, err := codec.EncodeData(op.Data)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", op.ID, err)
	}
	return &encodedOp{op: op, recordID: recordID, data: data}, nil
}

// Append inserts ops and runs mutate in a single transaction
func (l *OpLog) Append(ctx context.Context, ops []*models.CRDTOperation, mutate storage.Mutation) error {
	encoded := make([]*encodedOp, 0, len(ops))
	for _, op := range ops {
		e, err := encodeOp(op)
		if err != nil {
			return err
		}
		encoded = append(encoded, e)
	}

	tx, err := l.s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", storage.ErrStorage, err)
	}
	defer func() {
		// Rollback после Commit возвращает sql.ErrTxDone, игнорируем
		_ = tx.Rollback()
	}()

	ids := l.s.newInstanceIDs()
	for _, e := range encoded {
		if err := l.insert(ctx, tx, ids, e); err != nil {
			return err
		}
	}

	if mutate != nil {
		if err := mutate(ctx, tx); err != nil {
			return fmt.Errorf("domain mutation failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %w", storage.ErrStorage, err)
	}
	ids.remember()

	return nil
}

// insert добавляет одну операцию в журнал внутри транзакции
func (l *OpLog) insert(ctx context.Context, tx *sqlx.Tx, ids *instanceIDs, e *encodedOp) error {
	instanceID, err := ids.resolve(ctx, tx, e.op.Instance)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStorage, err)
	}

	query := `INSERT INTO ` + l.table + ` (id, instance_id, timestamp, model, record_id, kind, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, query,
		e.op.ID[:],
		instanceID,
		int64(e.op.Timestamp),
		e.op.Model,
		e.recordID,
		e.op.Kind(),
		e.data,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateOperation, e.op.ID)
		}
		return fmt.Errorf("%w: failed to insert operation: %w", storage.ErrStorage, err)
	}

	return nil
}

// Mirror stores relayed operations, ignoring ids that are already present
func (l *OpLog) Mirror(ctx context.Context, ops []*models.CRDTOperation) (int, error) {
	encoded := make([]*encodedOp, 0, len(ops))
	for _, op := range ops {
		e, err := encodeOp(op)
		if err != nil {
			return 0, err
		}
		encoded = append(encoded, e)
	}

	tx, err := l.s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %w", storage.ErrStorage, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO ` + l.table + ` (id, instance_id, timestamp, model, record_id, kind, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	ids := l.s.newInstanceIDs()
	stored := 0
	for _, e := range encoded {
		instanceID, err := ids.resolve(ctx, tx, e.op.Instance)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", storage.ErrStorage, err)
		}

		res, err := tx.ExecContext(ctx, query,
			e.op.ID[:], instanceID, int64(e.op.Timestamp), e.op.Model, e.recordID, e.op.Kind(), e.data)
		if err != nil {
			return 0, fmt.Errorf("%w: failed to mirror operation: %w", storage.ErrStorage, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%w: failed to get rows affected: %w", storage.ErrStorage, err)
		}
		stored += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: failed to commit: %w", storage.ErrStorage, err)
	}
	ids.remember()

	return stored, nil
}

// Query returns operations newer than the watermark entry of their origin
// instance in (timestamp, instance) order
func (l *OpLog) Query(ctx context.Context, watermark models.Watermark, limit int) ([]*models.CRDTOperation, error) {
	where, args := watermarkFilter(watermark)
	if limit <= 0 {
		limit = -1 // SQLite: без ограничения
	}
	args = append(args, limit)

	query := `
		SELECT o.id, i.pub_id AS instance, o.timestamp, o.model, o.record_id, o.kind, o.data
		FROM ` + l.table + ` o
		JOIN instance i ON i.id = o.instance_id
		WHERE ` + where + `
		ORDER BY o.timestamp ASC, i.pub_id ASC
		LIMIT ?
	`

	var rows []opRow
	if err := l.s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: failed to query operations: %w", storage.ErrStorage, err)
	}

	ops := make([]*models.CRDTOperation, 0, len(rows))
	for i := range rows {
		op, err := rows[i].decode()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return ops, nil
}

// Watermark returns the highest logged timestamp per instance
func (l *OpLog) Watermark(ctx context.Context) (models.Watermark, error) {
	query := `
		SELECT i.pub_id AS instance, MAX(o.timestamp) AS timestamp
		FROM ` + l.table + ` o
		JOIN instance i ON i.id = o.instance_id
		GROUP BY i.pub_id
	`

	var rows []struct {
		Instance  []byte `db:"instance"`
		Timestamp int64  `db:"timestamp"`
	}
	if err := l.s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%w: failed to compute watermark: %w", storage.ErrStorage, err)
	}

	wm := make(models.Watermark, len(rows))
	for _, r := range rows {
		inst, err := uuid.FromBytes(r.Instance)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt instance pub_id: %w", storage.ErrStorage, err)
		}
		wm[inst] = models.Timestamp(r.Timestamp)
	}

	return wm, nil
}

// watermarkFilter строит условие: для известных узлов только операции новее
// их watermark, для неизвестных узлов все операции
func watermarkFilter(watermark models.Watermark) (string, []any) {
	if len(watermark) == 0 {
		return "1 = 1", nil
	}

	entries := watermark.Entries()
	clauses := make([]string, 0, len(entries)+1)
	args := make([]any, 0, len(entries)*3)
	placeholders := make([]string, 0, len(entries))

	for _, e := range entries {
		clauses = append(clauses, "(i.pub_id = ? AND o.timestamp > ?)")
		args = append(args, e.Instance[:], int64(e.Timestamp))
	}
	for _, e := range entries {
		placeholders = append(placeholders, "?")
		args = append(args, e.Instance[:])
	}
	clauses = append(clauses, "i.pub_id NOT IN ("+strings.Join(placeholders, ", ")+")")

	return "(" + strings.Join(clauses, " OR ") + ")", args
}

// decode превращает строку журнала в операцию, проверяя согласованность kind
func (r *opRow) decode() (*models.CRDTOperation, error) {
	id, err := uuid.FromBytes(r.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: operation id: %v", models.ErrValidation, err)
	}
	instance, err := uuid.FromBytes(r.Instance)
	if err != nil {
		return nil, fmt.Errorf("%w: operation %s instance: %v", models.ErrValidation, id, err)
	}
	recordID, err := codec.DecodeRecordID(r.RecordID)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", id, err)
	}
	data, err := codec.DecodeData(r.Data)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", id, err)
	}
	if data.Kind() != r.Kind {
		return nil, fmt.Errorf("%w: operation %s kind %q does not match payload %q",
			models.ErrValidation, id, r.Kind, data.Kind())
	}

	return &models.CRDTOperation{
		ID:        id,
		Instance:  instance,
		Timestamp: models.Timestamp(r.Timestamp),
		Model:     r.Model,
		RecordID:  recordID,
		Data:      data,
	}, nil
}

// isConstraintViolation определяет нарушение PRIMARY KEY / UNIQUE
func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
