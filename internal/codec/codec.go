// Package codec implements the single binary encoding shared by the local
// and the cloud-mirrored operation logs and by the peer wire format.
//
// Every encoded blob is an envelope:
//
//	version (1 byte) | msgpack body | checksum (8 bytes, BLAKE2b-256 prefix)
//
// Map keys are sorted so equal record ids always produce equal bytes, which
// lets storage compare record ids without decoding them.
package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/blake2b"

	"github.com/iudanet/catalogsync/internal/models"
)

// Version1 is the current envelope version.
const Version1 byte = 1

const checksumSize = 8

// Codec errors. All of them wrap models.ErrValidation.
var (
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported encoding version", models.ErrValidation)
	ErrChecksumMismatch   = fmt.Errorf("%w: checksum mismatch", models.ErrValidation)
	ErrCorruptPayload     = fmt.Errorf("%w: corrupt payload", models.ErrValidation)
)

// marshal кодирует значение в msgpack с детерминированным порядком ключей
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	return dec.Decode(v)
}

func checksum(versionAndBody []byte) []byte {
	sum := blake2b.Sum256(versionAndBody)
	return sum[:checksumSize]
}

// seal оборачивает тело в конверт с версией и контрольной суммой
func seal(body []byte) []byte {
	out := make([]byte, 0, 1+len(body)+checksumSize)
	out = append(out, Version1)
	out = append(out, body...)
	return append(out, checksum(out)...)
}

// open проверяет конверт и возвращает тело
func open(envelope []byte) ([]byte, error) {
	if len(envelope) < 1+checksumSize {
		return nil, fmt.Errorf("%w: envelope of %d bytes", ErrCorruptPayload, len(envelope))
	}
	if envelope[0] != Version1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, envelope[0])
	}
	split := len(envelope) - checksumSize
	if !bytes.Equal(checksum(envelope[:split]), envelope[split:]) {
		return nil, ErrChecksumMismatch
	}
	return envelope[1:split], nil
}

// EncodeRecordID encodes a record id canonically.
func EncodeRecordID(id models.RecordID) ([]byte, error) {
	if len(id) == 0 {
		return nil, fmt.Errorf("%w: empty record id", models.ErrInvalidRecordID)
	}
	body, err := marshal(map[string]any(id))
	if err != nil {
		return nil, fmt.Errorf("failed to encode record id: %w", err)
	}
	return seal(body), nil
}

// DecodeRecordID decodes a record id envelope.
func DecodeRecordID(data []byte) (models.RecordID, error) {
	body, err := open(data)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: record id: %v", ErrCorruptPayload, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty record id", models.ErrInvalidRecordID)
	}
	id := make(models.RecordID, len(raw))
	for k, v := range raw {
		id[k] = normalize(v)
	}
	return id, nil
}

// EncodeData encodes an operation payload.
func EncodeData(d models.OperationData) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	body, err := marshal(&d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation data: %w", err)
	}
	return seal(body), nil
}

// DecodeData decodes an operation payload envelope.
func DecodeData(data []byte) (models.OperationData, error) {
	var d models.OperationData
	body, err := open(data)
	if err != nil {
		return d, err
	}
	if err := unmarshal(body, &d); err != nil {
		return d, fmt.Errorf("%w: operation data: %v", ErrCorruptPayload, err)
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// EncodeValue encodes a single field value for an update payload.
func EncodeValue(v any) (msgpack.RawMessage, error) {
	body, err := marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: value of type %T: %v", models.ErrValidation, v, err)
	}
	return body, nil
}

// DecodeValue decodes an update value into a type accepted by database/sql.
func DecodeValue(raw msgpack.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: value: %v", ErrCorruptPayload, err)
	}
	return normalize(v), nil
}

// normalize приводит числовые типы msgpack к типам, которые понимает драйвер БД
func normalize(v any) any {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n <= 1<<63-1 {
			return int64(n)
		}
		return n
	case float32:
		return float64(n)
	default:
		return v
	}
}

// IsValidation reports whether err is a payload validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, models.ErrValidation)
}
