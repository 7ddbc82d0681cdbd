package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/catalogsync/internal/models"
)

func TestEncodeRecordID_Canonical(t *testing.T) {
	tag := uuid.New()
	object := uuid.New()

	a, err := EncodeRecordID(models.RecordID{"tag_pub_id": tag[:], "object_pub_id": object[:]})
	require.NoError(t, err)

	// Порядок вставки в map не должен влиять на байты
	b, err := EncodeRecordID(models.RecordID{"object_pub_id": object[:], "tag_pub_id": tag[:]})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, Version1, a[0])

	decoded, err := DecodeRecordID(a)
	require.NoError(t, err)
	assert.True(t, decoded.Equal(models.RecordID{"tag_pub_id": tag[:], "object_pub_id": object[:]}))
}

func TestEncodeRecordID_Empty(t *testing.T) {
	_, err := EncodeRecordID(models.RecordID{})
	assert.True(t, errors.Is(err, models.ErrInvalidRecordID))
}

func TestDecode_CorruptEnvelope(t *testing.T) {
	good, err := EncodeData(models.CreateData())
	require.NoError(t, err)

	flipped := append([]byte(nil), good...)
	flipped[1] ^= 0xFF

	wrongVersion := append([]byte(nil), good...)
	wrongVersion[0] = 42

	tests := []struct {
		wantErr error
		name    string
		data    []byte
	}{
		{name: "too short", data: []byte{Version1, 1}, wantErr: ErrCorruptPayload},
		{name: "checksum mismatch", data: flipped, wantErr: ErrChecksumMismatch},
		{name: "unknown version", data: wrongVersion, wantErr: ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeData(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.True(t, IsValidation(err), "codec errors must be validation errors")
		})
	}
}

func TestEncodeData_RejectsInvalid(t *testing.T) {
	_, err := EncodeData(models.OperationData{Type: models.DataUpdate})
	assert.True(t, IsValidation(err))

	_, err = EncodeData(models.OperationData{})
	assert.True(t, IsValidation(err))
}

func TestDecodeValue_Normalizes(t *testing.T) {
	now := time.Unix(1_700_000_000, 123).UTC()

	tests := []struct {
		in   any
		want any
		name string
	}{
		{name: "small int", in: 7, want: int64(7)},
		{name: "negative int", in: -300, want: int64(-300)},
		{name: "bool", in: true, want: true},
		{name: "string", in: "Documents", want: "Documents"},
		{name: "bytes", in: []byte{1, 2, 3}, want: []byte{1, 2, 3}},
		{name: "nil", in: nil, want: nil},
		{name: "float32", in: float32(1.5), want: float64(1.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeValue(tt.in)
			require.NoError(t, err)

			got, err := DecodeValue(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("time", func(t *testing.T) {
		raw, err := EncodeValue(now)
		require.NoError(t, err)
		got, err := DecodeValue(raw)
		require.NoError(t, err)
		gotTime, ok := got.(time.Time)
		require.True(t, ok)
		assert.True(t, now.Equal(gotTime))
	})
}

func TestEncodeOperation(t *testing.T) {
	pubID := uuid.New()
	value, err := EncodeValue("/Users/Documents")
	require.NoError(t, err)

	op := &models.CRDTOperation{
		ID:        uuid.New(),
		Instance:  uuid.New(),
		Timestamp: 1_700_000_000_000_000_042,
		Model:     models.ModelLocation,
		RecordID:  models.RecordID{"pub_id": pubID[:]},
		Data:      models.UpdateData("path", value),
	}

	encoded, err := EncodeOperation(op)
	require.NoError(t, err)

	decoded, err := DecodeOperation(encoded)
	require.NoError(t, err)

	assert.Equal(t, op.ID, decoded.ID)
	assert.Equal(t, op.Instance, decoded.Instance)
	assert.Equal(t, op.Timestamp, decoded.Timestamp)
	assert.Equal(t, op.Model, decoded.Model)
	assert.True(t, op.RecordID.Equal(decoded.RecordID))
	assert.Equal(t, "u:path", decoded.Kind())

	path, err := DecodeValue(decoded.Data.Value)
	require.NoError(t, err)
	assert.Equal(t, "/Users/Documents", path)
}

func TestDecodeOperations_ReportsIndex(t *testing.T) {
	op := &models.CRDTOperation{
		ID:       uuid.New(),
		Instance: uuid.New(),
		Model:    models.ModelTag,
		RecordID: models.RecordID{"pub_id": []byte{1}},
		Data:     models.DeleteData(),
	}
	batch, err := EncodeOperations([]*models.CRDTOperation{op})
	require.NoError(t, err)

	batch = append(batch, []byte{0})
	_, err = DecodeOperations(batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation 1")
	assert.True(t, IsValidation(err))
}
