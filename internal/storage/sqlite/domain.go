package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iudanet/catalogsync/internal/codec"
	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/internal/storage"
)

// keyFilter строит "k1 = ? AND k2 = ?" по ключевым колонкам модели
func keyFilter(schema *models.Schema) string {
	parts := make([]string, 0, len(schema.Key))
	for _, col := range schema.Key {
		parts = append(parts, col+" = ?")
	}
	return strings.Join(parts, " AND ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// sqlValue приводит значение к виду, который одинаково сохраняется на
// узле-источнике и на узле, применившем операцию
func sqlValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}

// InsertRecord returns the domain mutation that creates the record addressed
// by id with the given fields. Pair it with the operations built by
// Manager.SharedCreate
func InsertRecord(id models.SyncID, fields []models.Field) storage.Mutation {
	return func(ctx context.Context, tx *sqlx.Tx) error {
		schema, err := models.LookupSchema(id.Model)
		if err != nil {
			return err
		}
		keys, err := schema.KeyValues(id.Key)
		if err != nil {
			return err
		}

		cols := append([]string(nil), schema.Key...)
		args := keys
		for _, f := range fields {
			if err := schema.CheckField(f.Name); err != nil {
				return err
			}
			cols = append(cols, f.Name)
			args = append(args, sqlValue(f.Value))
		}

		query := `INSERT INTO ` + schema.Table + ` (` + strings.Join(cols, ", ") + `) VALUES (` + placeholders(len(cols)) + `)`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: failed to insert %s: %w", storage.ErrStorage, schema.Name, err)
		}
		return nil
	}
}

// UpdateRecord returns the domain mutation that sets one field of an existing
// record. Returns ErrRecordNotFound if the record does not exist
func UpdateRecord(id models.SyncID, field models.Field) storage.Mutation {
	return func(ctx context.Context, tx *sqlx.Tx) error {
		schema, err := models.LookupSchema(id.Model)
		if err != nil {
			return err
		}
		if err := schema.CheckField(field.Name); err != nil {
			return err
		}
		keys, err := schema.KeyValues(id.Key)
		if err != nil {
			return err
		}

		query := `UPDATE ` + schema.Table + ` SET ` + field.Name + ` = ? WHERE ` + keyFilter(schema)
		args := append([]any{sqlValue(field.Value)}, keys...)
		return execAffecting(ctx, tx, schema, query, args)
	}
}

// DeleteRecord returns the domain mutation that removes a record.
// Returns ErrRecordNotFound if the record does not exist
func DeleteRecord(id models.SyncID) storage.Mutation {
	return func(ctx context.Context, tx *sqlx.Tx) error {
		schema, err := models.LookupSchema(id.Model)
		if err != nil {
			return err
		}
		keys, err := schema.KeyValues(id.Key)
		if err != nil {
			return err
		}

		query := `DELETE FROM ` + schema.Table + ` WHERE ` + keyFilter(schema)
		return execAffecting(ctx, tx, schema, query, keys)
	}
}

func execAffecting(ctx context.Context, tx *sqlx.Tx, schema *models.Schema, query string, args []any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", storage.ErrStorage, schema.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %w", storage.ErrStorage, err)
	}
	if n == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}

// applyOperation применяет удаленную операцию к доменной таблице.
// В отличие от локальных мутаций применение идемпотентно:
// повторный create ничего не делает, update создает запись при ее отсутствии.
func applyOperation(ctx context.Context, tx *sqlx.Tx, schema *models.Schema, op *models.CRDTOperation) error {
	keys, err := schema.KeyValues(op.RecordID)
	if err != nil {
		return err
	}

	var (
		query string
		args  []any
	)

	switch op.Data.Type {
	case models.DataCreate:
		query = `INSERT INTO ` + schema.Table + ` (` + strings.Join(schema.Key, ", ") + `)
			VALUES (` + placeholders(len(schema.Key)) + `)
			ON CONFLICT (` + strings.Join(schema.Key, ", ") + `) DO NOTHING`
		args = keys

	case models.DataUpdate:
		value, err := codec.DecodeValue(op.Data.Value)
		if err != nil {
			return fmt.Errorf("operation %s: %w", op.ID, err)
		}
		field := op.Data.Field
		query = `INSERT INTO ` + schema.Table + ` (` + strings.Join(schema.Key, ", ") + `, ` + field + `)
			VALUES (` + placeholders(len(schema.Key)+1) + `)
			ON CONFLICT (` + strings.Join(schema.Key, ", ") + `) DO UPDATE SET ` + field + ` = excluded.` + field
		args = append(keys, sqlValue(value))

	case models.DataDelete:
		query = `DELETE FROM ` + schema.Table + ` WHERE ` + keyFilter(schema)
		args = keys

	default:
		return fmt.Errorf("%w: operation %s has unknown payload type %d", models.ErrValidation, op.ID, op.Data.Type)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: failed to apply %s to %s: %w", storage.ErrStorage, op.Kind(), schema.Name, err)
	}
	return nil
}

// GetRecord reads the key and synced fields of a domain record.
// Returns ErrRecordNotFound if the record does not exist
func (s *Storage) GetRecord(ctx context.Context, id models.SyncID) (map[string]any, error) {
	schema, err := models.LookupSchema(id.Model)
	if err != nil {
		return nil, err
	}
	keys, err := schema.KeyValues(id.Key)
	if err != nil {
		return nil, err
	}

	cols := append(append([]string(nil), schema.Key...), schema.FieldNames()...)
	query := `SELECT ` + strings.Join(cols, ", ") + ` FROM ` + schema.Table + ` WHERE ` + keyFilter(schema)

	record := make(map[string]any, len(cols))
	if err := s.db.QueryRowxContext(ctx, query, keys...).MapScan(record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: failed to get %s: %w", storage.ErrStorage, schema.Name, err)
	}

	return record, nil
}
