package sync

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/catalogsync/internal/codec"
	"github.com/iudanet/catalogsync/internal/models"
)

// Entry pairs a field name with its value. The same entry feeds both the
// sync operation (SharedCreate, SharedUpdate) and the domain mutation.
func Entry(name string, value any) models.Field {
	return models.Field{Name: name, Value: value}
}

// SharedCreate builds the operations creating the record addressed by id:
// a create marker followed by one update per field. Timestamps are assigned
// by WriteOps.
func (m *Manager) SharedCreate(id models.SyncID, fields []models.Field) ([]*models.CRDTOperation, error) {
	schema, err := models.LookupSchema(id.Model)
	if err != nil {
		return nil, err
	}
	if _, err := schema.KeyValues(id.Key); err != nil {
		return nil, err
	}

	ops := make([]*models.CRDTOperation, 0, len(fields)+1)
	ops = append(ops, m.newOp(id, models.CreateData()))

	for _, f := range fields {
		op, err := m.updateOp(schema, id, f)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return ops, nil
}

// SharedUpdate builds the operation setting one field of the record.
func (m *Manager) SharedUpdate(id models.SyncID, field models.Field) (*models.CRDTOperation, error) {
	schema, err := models.LookupSchema(id.Model)
	if err != nil {
		return nil, err
	}
	if _, err := schema.KeyValues(id.Key); err != nil {
		return nil, err
	}
	return m.updateOp(schema, id, field)
}

// SharedDelete builds the tombstone operation for the record.
func (m *Manager) SharedDelete(id models.SyncID) (*models.CRDTOperation, error) {
	schema, err := models.LookupSchema(id.Model)
	if err != nil {
		return nil, err
	}
	if _, err := schema.KeyValues(id.Key); err != nil {
		return nil, err
	}
	return m.newOp(id, models.DeleteData()), nil
}

func (m *Manager) updateOp(schema *models.Schema, id models.SyncID, f models.Field) (*models.CRDTOperation, error) {
	if err := schema.CheckField(f.Name); err != nil {
		return nil, err
	}
	value, err := codec.EncodeValue(f.Value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	return m.newOp(id, models.UpdateData(f.Name, value)), nil
}

func (m *Manager) newOp(id models.SyncID, data models.OperationData) *models.CRDTOperation {
	return &models.CRDTOperation{
		ID:       uuid.New(),
		Instance: m.instance,
		Model:    id.Model,
		RecordID: id.Key.Clone(),
		Data:     data,
	}
}
