package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/internal/storage"
)

const (
	keyInstanceID = "instance_id"
	keyLastClock  = "last_clock"
)

// InstanceID returns the stable id of this instance, generating it on first use
func (s *Storage) InstanceID(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketInstance)
		if bucket == nil {
			return fmt.Errorf("%w: instance bucket not found", storage.ErrStorage)
		}

		if raw := bucket.Get([]byte(keyInstanceID)); raw != nil {
			parsed, err := uuid.FromBytes(raw)
			if err != nil {
				return fmt.Errorf("%w: corrupt instance id: %w", storage.ErrStorage, err)
			}
			id = parsed
			return nil
		}

		// Первый запуск: генерируем идентификатор узла
		id = uuid.New()
		if err := bucket.Put([]byte(keyInstanceID), id[:]); err != nil {
			return fmt.Errorf("failed to save instance id: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

// SaveClock saves the last issued timestamp. Older values never overwrite
// newer ones
func (s *Storage) SaveClock(ctx context.Context, ts models.Timestamp) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketInstance)
		if bucket == nil {
			return fmt.Errorf("%w: instance bucket not found", storage.ErrStorage)
		}

		if raw := bucket.Get([]byte(keyLastClock)); len(raw) == 8 {
			if models.Timestamp(binary.BigEndian.Uint64(raw)) >= ts {
				return nil
			}
		}

		// Конвертируем timestamp в bytes
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(ts))

		if err := bucket.Put([]byte(keyLastClock), buf); err != nil {
			return fmt.Errorf("failed to save clock: %w", err)
		}
		return nil
	})
}

// LoadClock retrieves the last issued timestamp
// Returns 0 if nothing was saved yet
func (s *Storage) LoadClock(ctx context.Context) (models.Timestamp, error) {
	var ts models.Timestamp

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketInstance)
		if bucket == nil {
			return fmt.Errorf("%w: instance bucket not found", storage.ErrStorage)
		}

		raw := bucket.Get([]byte(keyLastClock))
		if raw == nil {
			return nil
		}
		if len(raw) != 8 {
			return fmt.Errorf("%w: corrupt clock value", storage.ErrStorage)
		}

		ts = models.Timestamp(binary.BigEndian.Uint64(raw))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load clock: %w", err)
	}

	return ts, nil
}
