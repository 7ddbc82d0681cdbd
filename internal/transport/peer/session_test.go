package peer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/internal/storage"
	"github.com/iudanet/catalogsync/internal/storage/sqlite"
	syncmgr "github.com/iudanet/catalogsync/internal/sync"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type node struct {
	manager *syncmgr.Manager
	store   *sqlite.Storage
}

// newNode поднимает Manager на sqlite в памяти с запущенным актором
func newNode(t *testing.T) *node {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)

	instance := uuid.New()
	m, err := syncmgr.New(ctx, syncmgr.Deps{
		Local:    store.Local(),
		Cloud:    store.Cloud(),
		Ingester: store,
		State: &storage.InstanceStateMock{
			InstanceIDFunc: func(ctx context.Context) (uuid.UUID, error) { return instance, nil },
			LoadClockFunc:  func(ctx context.Context) (models.Timestamp, error) { return 0, nil },
			SaveClockFunc:  func(ctx context.Context, ts models.Timestamp) error { return nil },
		},
	}, newTestLogger())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = m.Close()
		_ = store.Close()
	})
	return &node{manager: m, store: store}
}

// asRemote отдает журнал узла через Remote, как это делает транспорт
func asRemote(n *node) *RemoteMock {
	return &RemoteMock{
		InstanceIDFunc: n.manager.Instance,
		GetOpsFunc: func(ctx context.Context, clocks models.Watermark, count int) ([]*models.CRDTOperation, error) {
			return n.manager.GetOps(ctx, syncmgr.GetOpsArgs{Clocks: clocks, Count: count})
		},
	}
}

func writeTags(t *testing.T, n *node, names ...string) []models.SyncID {
	t.Helper()
	var ids []models.SyncID
	for _, name := range names {
		pub := uuid.New()
		id := models.TagID(pub[:])
		fields := []models.Field{syncmgr.Entry("name", name)}
		ops, err := n.manager.SharedCreate(id, fields)
		require.NoError(t, err)
		require.NoError(t, n.manager.WriteOps(context.Background(), ops, sqlite.InsertRecord(id, fields)))
		ids = append(ids, id)
	}
	return ids
}

func noRetry() backoff.BackOff {
	return &backoff.StopBackOff{}
}

func TestSession_Pull(t *testing.T) {
	ctx := context.Background()
	origin, local := newNode(t), newNode(t)
	ids := writeTags(t, origin, "inbox", "archive", "later")

	remote := asRemote(origin)
	s := NewSession(local.manager, remote, newTestLogger(), WithBatchSize(4))

	n, err := s.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	// 4 + 2: короткий пакет завершает цикл
	calls := remote.GetOpsCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, 4, calls[0].Count)
	assert.NotContains(t, calls[0].Clocks, origin.manager.Instance())
	assert.Contains(t, calls[1].Clocks, origin.manager.Instance())

	for i, id := range ids {
		rec, err := local.store.GetRecord(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"inbox", "archive", "later"}[i], rec["name"])
	}

	// Повторный pull ничего не приносит
	n, err = s.Pull(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSession_GetOpsRetry(t *testing.T) {
	ctx := context.Background()
	local := newNode(t)
	remoteID := uuid.New()
	unavailable := errors.New("connection reset")

	tests := []struct {
		err       error
		name      string
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{name: "transient failures are retried", err: unavailable, failures: 2, wantCalls: 3},
		{name: "retries exhausted", err: unavailable, failures: 10, wantCalls: 4, wantErr: true},
		{name: "validation error is permanent", err: models.ErrValidation, failures: 10, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			remote := &RemoteMock{
				InstanceIDFunc: func() uuid.UUID { return remoteID },
				GetOpsFunc: func(ctx context.Context, clocks models.Watermark, count int) ([]*models.CRDTOperation, error) {
					calls++
					if calls <= tt.failures {
						return nil, tt.err
					}
					return nil, nil
				},
			}
			s := NewSession(local.manager, remote, newTestLogger(), WithRetry(func() backoff.BackOff {
				return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
			}))

			_, err := s.Pull(ctx)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSession_RequestTimeout(t *testing.T) {
	local := newNode(t)
	remoteID := uuid.New()
	remote := &RemoteMock{
		InstanceIDFunc: func() uuid.UUID { return remoteID },
		GetOpsFunc: func(ctx context.Context, clocks models.Watermark, count int) ([]*models.CRDTOperation, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	s := NewSession(local.manager, remote, newTestLogger(),
		WithRequestTimeout(20*time.Millisecond), WithRetry(noRetry))

	start := time.Now()
	_, err := s.Pull(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)

	// Актор пережил ошибку драйвера: следующий pull проходит
	remote.GetOpsFunc = func(ctx context.Context, clocks models.Watermark, count int) ([]*models.CRDTOperation, error) {
		return nil, nil
	}
	_, err = s.Pull(context.Background())
	assert.NoError(t, err)
}

func TestSession_RunTrigger(t *testing.T) {
	origin, local := newNode(t), newNode(t)
	s := NewSession(local.manager, asRemote(origin), newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	ids := writeTags(t, origin, "fresh")
	s.Trigger()
	s.Trigger()

	require.Eventually(t, func() bool {
		_, err := local.store.GetRecord(context.Background(), ids[0])
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
