package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iudanet/catalogsync/internal/models"
)

// startActor запускает актора и возвращает функцию остановки,
// которая дожидается завершения Run
func startActor(t *testing.T, a *Actor) (func() error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
	}()
	wait := func() error {
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("actor did not stop")
			return nil
		}
	}
	return wait, cancel
}

func TestActor_Cycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	remote := uuid.New()
	log := testOps(remote, 1, 2, 3, 4, 5)

	clock := newFakeClock()
	actor := NewActor(NewMachine(uuid.New(), clock, advancingIngester(), newTestLogger()), newTestLogger())
	wait, cancel := startActor(t, actor)

	// Удаленный узел отдает по 2 операции за запрос
	var requests []models.Watermark
	fetch := func(ctx context.Context, req RequestMessages) (EventMessages, error) {
		requests = append(requests, req.Timestamps)
		var out []*models.CRDTOperation
		for _, op := range log {
			if !req.Timestamps.Covers(op.Instance, op.Timestamp) && len(out) < 2 {
				out = append(out, op)
			}
		}
		return req.Reply(remote, out, len(out) == 2), nil
	}

	ctx := context.Background()
	h, err := actor.Acquire(ctx)
	require.NoError(t, err)

	ingested := 0
	require.NoError(t, Cycle(ctx, h, fetch, func() { ingested++ }))
	h.Release()

	assert.Equal(t, 1, ingested)
	require.Len(t, requests, 3)
	assert.Empty(t, requests[0])
	assert.Equal(t, models.Timestamp(2), requests[1][remote])
	assert.Equal(t, models.Timestamp(4), requests[2][remote])
	assert.Equal(t, models.Timestamp(5), clock.Watermark()[remote])

	cancel()
	assert.ErrorIs(t, wait(), context.Canceled)
}

func TestActor_ExclusiveHandle(t *testing.T) {
	defer goleak.VerifyNone(t)

	actor := NewActor(NewMachine(uuid.New(), newFakeClock(), advancingIngester(), newTestLogger()), newTestLogger())
	wait, cancel := startActor(t, actor)

	h, err := actor.Acquire(context.Background())
	require.NoError(t, err)

	// Второй драйвер ждет, пока первый держит handle
	short, cancelShort := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelShort()
	_, err = actor.Acquire(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	h.Release()
	h.Release()
	assert.Nil(t, h.Requests())

	_, err = h.Next(context.Background())
	assert.Error(t, err)

	h2, err := actor.Acquire(context.Background())
	require.NoError(t, err)
	h2.Release()

	cancel()
	assert.ErrorIs(t, wait(), context.Canceled)
}

func TestActor_SendBackpressure(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Актор не запущен: очередь событий заполняется
	actor := NewActor(NewMachine(uuid.New(), newFakeClock(), advancingIngester(), newTestLogger()), newTestLogger())

	for i := 0; i < EventBuffer; i++ {
		require.NoError(t, actor.Send(context.Background(), EventNotification{}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := actor.Send(ctx, EventNotification{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestActor_ProtocolErrorTerminates(t *testing.T) {
	defer goleak.VerifyNone(t)

	actor := NewActor(NewMachine(uuid.New(), newFakeClock(), advancingIngester(), newTestLogger()), newTestLogger())
	wait, cancel := startActor(t, actor)
	defer cancel()

	require.NoError(t, actor.Send(context.Background(), EventMessages{Messages: testOps(uuid.New(), 1)}))

	err := wait()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocol))

	<-actor.Done()
	assert.ErrorIs(t, actor.Send(context.Background(), EventNotification{}), ErrActorStopped)

	_, err = actor.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrActorStopped)
}

func TestActor_HandleNextStopsWithActor(t *testing.T) {
	defer goleak.VerifyNone(t)

	actor := NewActor(NewMachine(uuid.New(), newFakeClock(), advancingIngester(), newTestLogger()), newTestLogger())
	wait, cancel := startActor(t, actor)

	h, err := actor.Acquire(context.Background())
	require.NoError(t, err)

	cancel()
	assert.ErrorIs(t, wait(), context.Canceled)

	_, err = h.Next(context.Background())
	assert.ErrorIs(t, err, ErrActorStopped)
	h.Release()
}

func TestCycle_FetchError(t *testing.T) {
	defer goleak.VerifyNone(t)

	actor := NewActor(NewMachine(uuid.New(), newFakeClock(), advancingIngester(), newTestLogger()), newTestLogger())
	wait, cancel := startActor(t, actor)

	h, err := actor.Acquire(context.Background())
	require.NoError(t, err)

	boom := errors.New("remote unavailable")
	err = Cycle(context.Background(), h, func(ctx context.Context, req RequestMessages) (EventMessages, error) {
		return EventMessages{}, boom
	}, nil)
	require.ErrorIs(t, err, boom)
	h.Release()

	// Следующий драйвер продолжает с нового Notification
	h, err = actor.Acquire(context.Background())
	require.NoError(t, err)
	err = Cycle(context.Background(), h, func(ctx context.Context, req RequestMessages) (EventMessages, error) {
		return req.Reply(uuid.New(), nil, false), nil
	}, nil)
	require.NoError(t, err)
	h.Release()

	cancel()
	assert.ErrorIs(t, wait(), context.Canceled)
}
