package models

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Timestamp значение гибридных логических часов (HLC).
// Старшие биты хранят физическое время в наносекундах, младшие 16 бит
// зарезервированы под логический счетчик.
type Timestamp uint64

// DataType тип полезной нагрузки CRDT операции
type DataType uint8

const (
	// DataCreate маркер создания записи (поля приходят отдельными update)
	DataCreate DataType = iota + 1
	// DataUpdate установка одного поля
	DataUpdate
	// DataDelete tombstone
	DataDelete
)

// Operation kinds as persisted in the kind column.
const (
	KindCreate       = "c"
	KindDelete       = "d"
	kindUpdatePrefix = "u:"
)

// OperationData is the payload of a CRDTOperation: create marker, single
// field update or delete tombstone.
type OperationData struct {
	Value msgpack.RawMessage `msgpack:"v,omitempty"` // Value новое значение поля (msgpack), только для DataUpdate
	Field string             `msgpack:"f,omitempty"` // Field имя поля, только для DataUpdate
	Type  DataType           `msgpack:"t"`
}

// CreateData returns a create marker payload.
func CreateData() OperationData {
	return OperationData{Type: DataCreate}
}

// UpdateData returns a single field update payload with an already encoded value.
func UpdateData(field string, value msgpack.RawMessage) OperationData {
	return OperationData{Type: DataUpdate, Field: field, Value: value}
}

// DeleteData returns a tombstone payload.
func DeleteData() OperationData {
	return OperationData{Type: DataDelete}
}

// Kind returns the operation kind: "c", "u:<field>" or "d".
func (d OperationData) Kind() string {
	switch d.Type {
	case DataCreate:
		return KindCreate
	case DataUpdate:
		return kindUpdatePrefix + d.Field
	case DataDelete:
		return KindDelete
	default:
		return ""
	}
}

// ParseKind parses a persisted kind back into its type and field name.
func ParseKind(kind string) (DataType, string, error) {
	switch {
	case kind == KindCreate:
		return DataCreate, "", nil
	case kind == KindDelete:
		return DataDelete, "", nil
	case strings.HasPrefix(kind, kindUpdatePrefix) && len(kind) > len(kindUpdatePrefix):
		return DataUpdate, strings.TrimPrefix(kind, kindUpdatePrefix), nil
	default:
		return 0, "", fmt.Errorf("%w: unknown operation kind %q", ErrValidation, kind)
	}
}

// Validate checks that the payload is internally consistent.
func (d OperationData) Validate() error {
	switch d.Type {
	case DataCreate, DataDelete:
		if d.Field != "" || len(d.Value) != 0 {
			return fmt.Errorf("%w: %s payload carries a field", ErrValidation, d.Kind())
		}
	case DataUpdate:
		if d.Field == "" {
			return fmt.Errorf("%w: update payload without field name", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown payload type %d", ErrValidation, d.Type)
	}
	return nil
}

// CRDTOperation представляет одну операцию журнала синхронизации.
// Операции неизменяемы после записи; глобальный порядок задается
// парой (Timestamp, Instance).
type CRDTOperation struct {
	RecordID  RecordID      // RecordID ключ целевой записи (поддерживает составные ключи)
	Model     string        // Model имя доменной сущности
	Data      OperationData // Data полезная нагрузка: create / update / delete
	Timestamp Timestamp     // Timestamp значение HLC на узле-источнике
	ID        uuid.UUID     // ID глобально уникальный идентификатор операции
	Instance  uuid.UUID     // Instance идентификатор узла, создавшего операцию
}

// Kind returns the persisted kind of the operation payload.
func (op *CRDTOperation) Kind() string {
	return op.Data.Kind()
}

// IsNewerThan сравнивает две операции по глобальному порядку:
// 1. Сначала сравнивается Timestamp (больший выигрывает)
// 2. При равных Timestamp сравнивается Instance (побайтово)
func (op *CRDTOperation) IsNewerThan(other *CRDTOperation) bool {
	return CompareOrder(op.Timestamp, op.Instance, other.Timestamp, other.Instance) > 0
}

// Clone создает глубокую копию операции
func (op *CRDTOperation) Clone() *CRDTOperation {
	clone := *op
	if op.Data.Value != nil {
		clone.Data.Value = append(msgpack.RawMessage(nil), op.Data.Value...)
	}
	clone.RecordID = op.RecordID.Clone()
	return &clone
}

// CompareOrder compares two (timestamp, instance) pairs in the global total
// order. It returns -1, 0 or +1.
func CompareOrder(aTs Timestamp, aInst uuid.UUID, bTs Timestamp, bInst uuid.UUID) int {
	switch {
	case aTs > bTs:
		return 1
	case aTs < bTs:
		return -1
	}
	return bytes.Compare(aInst[:], bInst[:])
}

// SortOperations sorts operations in place by the global total order.
func SortOperations(ops []*CRDTOperation) {
	sort.SliceStable(ops, func(i, j int) bool {
		return CompareOrder(ops[i].Timestamp, ops[i].Instance, ops[j].Timestamp, ops[j].Instance) < 0
	})
}

// Watermark maps an instance to the highest timestamp already applied from it.
type Watermark map[uuid.UUID]Timestamp

// Covers reports whether an operation from instance at ts is already applied.
func (w Watermark) Covers(instance uuid.UUID, ts Timestamp) bool {
	seen, ok := w[instance]
	return ok && ts <= seen
}

// Advance moves the entry for instance forward; it never moves backwards.
// Returns true if the entry changed.
func (w Watermark) Advance(instance uuid.UUID, ts Timestamp) bool {
	if seen, ok := w[instance]; ok && seen >= ts {
		return false
	}
	w[instance] = ts
	return true
}

// Clone returns an independent copy.
func (w Watermark) Clone() Watermark {
	out := make(Watermark, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// InstanceTimestamp is one watermark entry.
type InstanceTimestamp struct {
	Instance  uuid.UUID `json:"instance"`
	Timestamp Timestamp `json:"timestamp"`
}

// Entries returns the watermark as a slice sorted by instance, which is the
// form carried on the wire.
func (w Watermark) Entries() []InstanceTimestamp {
	out := make([]InstanceTimestamp, 0, len(w))
	for inst, ts := range w {
		out = append(out, InstanceTimestamp{Instance: inst, Timestamp: ts})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Instance[:], out[j].Instance[:]) < 0
	})
	return out
}

// WatermarkFromEntries builds a watermark from wire entries, keeping the
// highest timestamp for duplicated instances.
func WatermarkFromEntries(entries []InstanceTimestamp) Watermark {
	w := make(Watermark, len(entries))
	for _, e := range entries {
		w.Advance(e.Instance, e.Timestamp)
	}
	return w
}
