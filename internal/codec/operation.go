package codec

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/catalogsync/internal/models"
)

// wireOperation форма операции для передачи между узлами
type wireOperation struct {
	RecordID  []byte `msgpack:"r"`
	Data      []byte `msgpack:"d"`
	ID        []byte `msgpack:"i"`
	Instance  []byte `msgpack:"n"`
	Model     string `msgpack:"m"`
	Timestamp uint64 `msgpack:"t"`
}

// EncodeOperation encodes a whole operation for the peer wire format.
// The record id and payload reuse their storage envelopes.
func EncodeOperation(op *models.CRDTOperation) ([]byte, error) {
	recordID, err := EncodeRecordID(op.RecordID)
	if err != nil {
		return nil, err
	}
	data, err := EncodeData(op.Data)
	if err != nil {
		return nil, err
	}
	body, err := marshal(&wireOperation{
		ID:        op.ID[:],
		Instance:  op.Instance[:],
		Timestamp: uint64(op.Timestamp),
		Model:     op.Model,
		RecordID:  recordID,
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation: %w", err)
	}
	return seal(body), nil
}

// DecodeOperation decodes an operation produced by EncodeOperation.
func DecodeOperation(data []byte) (*models.CRDTOperation, error) {
	body, err := open(data)
	if err != nil {
		return nil, err
	}
	var w wireOperation
	if err := unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: operation: %v", ErrCorruptPayload, err)
	}

	id, err := uuid.FromBytes(w.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: operation id: %v", ErrCorruptPayload, err)
	}
	instance, err := uuid.FromBytes(w.Instance)
	if err != nil {
		return nil, fmt.Errorf("%w: operation instance: %v", ErrCorruptPayload, err)
	}
	recordID, err := DecodeRecordID(w.RecordID)
	if err != nil {
		return nil, err
	}
	payload, err := DecodeData(w.Data)
	if err != nil {
		return nil, err
	}

	return &models.CRDTOperation{
		ID:        id,
		Instance:  instance,
		Timestamp: models.Timestamp(w.Timestamp),
		Model:     w.Model,
		RecordID:  recordID,
		Data:      payload,
	}, nil
}

// EncodeOperations encodes a batch for the wire.
func EncodeOperations(ops []*models.CRDTOperation) ([][]byte, error) {
	out := make([][]byte, 0, len(ops))
	for _, op := range ops {
		b, err := EncodeOperation(op)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", op.ID, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// DecodeOperations decodes a wire batch.
func DecodeOperations(batch [][]byte) ([]*models.CRDTOperation, error) {
	out := make([]*models.CRDTOperation, 0, len(batch))
	for i, b := range batch {
		op, err := DecodeOperation(b)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		out = append(out, op)
	}
	return out, nil
}
