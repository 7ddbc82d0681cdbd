package crdt

import (
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/catalogsync/internal/models"
)

// stamp позиция операции в глобальном порядке
type stamp struct {
	ts       models.Timestamp
	instance uuid.UUID
}

func (s stamp) after(op *models.CRDTOperation) bool {
	return models.CompareOrder(s.ts, s.instance, op.Timestamp, op.Instance) > 0
}

// register последние операции каждого вида над одной записью
type register struct {
	updates map[string]stamp // по имени поля
	create  *stamp
	delete  *stamp
}

// LWWSet tracks, per record, the newest create marker, the newest tombstone
// and the newest update of every field. It answers whether an operation lost
// the last-write-wins race against an operation already added.
//
// Records are addressed by model and encoded record id; equal record ids must
// encode to equal keys.
type LWWSet struct {
	records map[string]*register // map[model + record key]register
	mu      sync.RWMutex
}

// NewLWWSet создает пустой набор.
func NewLWWSet() *LWWSet {
	return &LWWSet{
		records: make(map[string]*register),
	}
}

func recordKey(model string, key []byte) string {
	return model + "\x00" + string(key)
}

// Add remembers op for the record addressed by key.
// Returns true if op became the newest operation of its kind.
func (s *LWWSet) Add(op *models.CRDTOperation, key []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := recordKey(op.Model, key)
	r, ok := s.records[k]
	if !ok {
		r = &register{updates: make(map[string]stamp)}
		s.records[k] = r
	}

	st := stamp{ts: op.Timestamp, instance: op.Instance}
	switch op.Data.Type {
	case models.DataCreate:
		if r.create != nil && r.create.after(op) {
			return false
		}
		r.create = &st
	case models.DataDelete:
		if r.delete != nil && r.delete.after(op) {
			return false
		}
		r.delete = &st
	case models.DataUpdate:
		if prev, ok := r.updates[op.Data.Field]; ok && prev.after(op) {
			return false
		}
		r.updates[op.Data.Field] = st
	default:
		return false
	}
	return true
}

// Superseded reports whether a newer operation in the set wins over op:
// an update loses to a newer update of the same field or a newer delete,
// a create loses to a newer delete, a delete loses to a newer create.
func (s *LWWSet) Superseded(op *models.CRDTOperation, key []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[recordKey(op.Model, key)]
	if !ok {
		return false
	}

	switch op.Data.Type {
	case models.DataUpdate:
		if prev, ok := r.updates[op.Data.Field]; ok && prev.after(op) {
			return true
		}
		return r.delete != nil && r.delete.after(op)
	case models.DataCreate:
		return r.delete != nil && r.delete.after(op)
	case models.DataDelete:
		return r.create != nil && r.create.after(op)
	default:
		return false
	}
}

// Size returns the number of tracked records.
func (s *LWWSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear удаляет все записи из set.
func (s *LWWSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*register)
}
