package models

import (
	"bytes"
	"fmt"
)

// RecordID addresses a domain record by its stable key fields, independent
// of local auto-increment primary keys. Composite keys carry several fields.
type RecordID map[string]any

// Clone returns a copy with byte slices duplicated.
func (r RecordID) Clone() RecordID {
	if r == nil {
		return nil
	}
	out := make(RecordID, len(r))
	for k, v := range r {
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		out[k] = v
	}
	return out
}

// Equal compares two record ids field by field.
func (r RecordID) Equal(other RecordID) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok {
			return false
		}
		vb, vIsBytes := v.([]byte)
		ob, oIsBytes := ov.([]byte)
		if vIsBytes || oIsBytes {
			if !vIsBytes || !oIsBytes || !bytes.Equal(vb, ob) {
				return false
			}
			continue
		}
		if fmt.Sprint(v) != fmt.Sprint(ov) {
			return false
		}
	}
	return true
}

// SyncID is the stable logical key of a domain record: the model name plus
// its record id.
type SyncID struct {
	Key   RecordID
	Model string
}

// LocationID addresses a location by its pub_id.
func LocationID(pubID []byte) SyncID {
	return SyncID{Model: ModelLocation, Key: RecordID{"pub_id": pubID}}
}

// ObjectID addresses an object by its pub_id.
func ObjectID(pubID []byte) SyncID {
	return SyncID{Model: ModelObject, Key: RecordID{"pub_id": pubID}}
}

// TagID addresses a tag by its pub_id.
func TagID(pubID []byte) SyncID {
	return SyncID{Model: ModelTag, Key: RecordID{"pub_id": pubID}}
}

// TagOnObjectID addresses the tag/object relation by both pub_ids.
func TagOnObjectID(tagPubID, objectPubID []byte) SyncID {
	return SyncID{Model: ModelTagOnObject, Key: RecordID{
		"tag_pub_id":    tagPubID,
		"object_pub_id": objectPubID,
	}}
}

// Field is one named value of a domain record, as carried by shared_create.
type Field struct {
	Value any
	Name  string
}
