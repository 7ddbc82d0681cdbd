package models

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSchema(t *testing.T) {
	s, err := LookupSchema(ModelLocation)
	require.NoError(t, err)
	assert.Equal(t, "location", s.Table)
	assert.Equal(t, []string{"date_created", "name", "path"}, s.FieldNames())

	_, err = LookupSchema("album")
	assert.True(t, errors.Is(err, ErrUnknownModel))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSchema_KeyValues(t *testing.T) {
	s, err := LookupSchema(ModelTagOnObject)
	require.NoError(t, err)

	id := TagOnObjectID([]byte{1}, []byte{2})
	values, err := s.KeyValues(id.Key)
	require.NoError(t, err)
	assert.Equal(t, []any{[]byte{1}, []byte{2}}, values)

	tests := []struct {
		key  RecordID
		name string
	}{
		{name: "missing column", key: RecordID{"tag_pub_id": []byte{1}}},
		{name: "wrong column", key: RecordID{"tag_pub_id": []byte{1}, "pub_id": []byte{2}}},
		{name: "nil value", key: RecordID{"tag_pub_id": []byte{1}, "object_pub_id": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.KeyValues(tt.key)
			assert.ErrorIs(t, err, ErrInvalidRecordID)
		})
	}
}

func TestValidateOperation(t *testing.T) {
	valid := func() *CRDTOperation {
		return &CRDTOperation{
			ID:       uuid.New(),
			Instance: nodeA,
			Model:    ModelObject,
			RecordID: ObjectID([]byte{1}).Key,
			Data:     UpdateData("note", []byte{0xc0}),
		}
	}

	tests := []struct {
		mutate  func(op *CRDTOperation)
		wantErr error
		name    string
	}{
		{name: "valid", mutate: func(op *CRDTOperation) {}},
		{name: "unknown model", mutate: func(op *CRDTOperation) { op.Model = "album" }, wantErr: ErrUnknownModel},
		{name: "unknown field", mutate: func(op *CRDTOperation) { op.Data.Field = "owner" }, wantErr: ErrUnknownField},
		{name: "bad key", mutate: func(op *CRDTOperation) { op.RecordID = RecordID{"id": 1} }, wantErr: ErrInvalidRecordID},
		{name: "bad payload", mutate: func(op *CRDTOperation) { op.Data = OperationData{Type: DataDelete, Field: "note"} }, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := valid()
			tt.mutate(op)

			s, err := ValidateOperation(op)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ModelObject, s.Name)
		})
	}
}
