package models

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Synced model names
const (
	ModelLocation    = "location"
	ModelObject      = "object"
	ModelTag         = "tag"
	ModelTagOnObject = "tag_on_object"
)

// Schema describes how a synced model maps onto its domain table.
type Schema struct {
	Fields mapset.Set[string] // Fields колонки, которые разрешено синхронизировать
	Name   string             // Name имя модели в журнале операций
	Table  string             // Table имя доменной таблицы
	Key    []string           // Key колонки стабильного ключа записи (в порядке индекса)
}

var schemas = map[string]*Schema{
	ModelLocation: {
		Name:   ModelLocation,
		Table:  "location",
		Key:    []string{"pub_id"},
		Fields: mapset.NewSet("name", "path", "date_created"),
	},
	ModelObject: {
		Name:   ModelObject,
		Table:  "object",
		Key:    []string{"pub_id"},
		Fields: mapset.NewSet("kind", "note", "favorite", "date_accessed"),
	},
	ModelTag: {
		Name:   ModelTag,
		Table:  "tag",
		Key:    []string{"pub_id"},
		Fields: mapset.NewSet("name", "color"),
	},
	ModelTagOnObject: {
		Name:   ModelTagOnObject,
		Table:  "tag_on_object",
		Key:    []string{"tag_pub_id", "object_pub_id"},
		Fields: mapset.NewSet("date_created"),
	},
}

// LookupSchema returns the schema registered for model.
func LookupSchema(model string) (*Schema, error) {
	s, ok := schemas[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return s, nil
}

// CheckField returns ErrUnknownField if field is not synced for this model.
func (s *Schema) CheckField(field string) error {
	if !s.Fields.Contains(field) {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Name, field)
	}
	return nil
}

// FieldNames returns the synced fields in a stable order.
func (s *Schema) FieldNames() []string {
	names := s.Fields.ToSlice()
	sort.Strings(names)
	return names
}

// KeyValues returns the record id values in key column order.
// The record id must carry exactly the key columns.
func (s *Schema) KeyValues(id RecordID) ([]any, error) {
	if len(id) != len(s.Key) {
		return nil, fmt.Errorf("%w: %s expects %d key fields, got %d", ErrInvalidRecordID, s.Name, len(s.Key), len(id))
	}
	values := make([]any, 0, len(s.Key))
	for _, col := range s.Key {
		v, ok := id[col]
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: %s missing key field %q", ErrInvalidRecordID, s.Name, col)
		}
		values = append(values, v)
	}
	return values, nil
}

// ValidateOperation checks model, record id and payload of op against the registry.
func ValidateOperation(op *CRDTOperation) (*Schema, error) {
	s, err := LookupSchema(op.Model)
	if err != nil {
		return nil, err
	}
	if _, err := s.KeyValues(op.RecordID); err != nil {
		return nil, err
	}
	if err := op.Data.Validate(); err != nil {
		return nil, err
	}
	if op.Data.Type == DataUpdate {
		if err := s.CheckField(op.Data.Field); err != nil {
			return nil, err
		}
	}
	return s, nil
}
