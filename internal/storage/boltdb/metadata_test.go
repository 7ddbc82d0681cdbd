package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/internal/storage"
)

// createTestStorage создает временное BoltDB хранилище и инициализирует buckets
func createTestStorage(t *testing.T) (*Storage, func()) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "instance_test.db")

	ctx := context.Background()
	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		require.NoError(t, store.Close())
		require.NoError(t, os.RemoveAll(tmpDir))
	}

	return store, cleanup
}

func TestInstanceID_StableAcrossReopen(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "instance.db")

	store, err := New(ctx, dbPath)
	require.NoError(t, err)

	first, err := store.InstanceID(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, [16]byte(first))

	again, err := store.InstanceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	require.NoError(t, store.Close())

	// После перезапуска идентификатор сохраняется
	reopened, err := New(ctx, dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	afterRestart, err := reopened.InstanceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, afterRestart)
}

func TestSaveAndLoadClock(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	// Изначально, если часы не сохранены, ожидаем 0
	ts, err := store.LoadClock(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Timestamp(0), ts)

	tests := []struct {
		name string
		save models.Timestamp
		want models.Timestamp
	}{
		{name: "first save", save: 1_000, want: 1_000},
		{name: "newer value", save: 5_000, want: 5_000},
		{name: "older value is ignored", save: 2_000, want: 5_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.SaveClock(ctx, tt.save))

			got, err := store.LoadClock(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadClock_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	// Удаляем bucket instance напрямую
	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketInstance)
	})
	require.NoError(t, err)

	_, err = store.LoadClock(ctx)
	assert.ErrorIs(t, err, storage.ErrStorage)

	err = store.SaveClock(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrStorage)

	_, err = store.InstanceID(ctx)
	assert.ErrorIs(t, err, storage.ErrStorage)
}

func TestLoadClock_Corrupt(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketInstance).Put([]byte(keyLastClock), []byte{1, 2, 3})
	})
	require.NoError(t, err)

	_, err = store.LoadClock(ctx)
	assert.ErrorIs(t, err, storage.ErrStorage)
}
