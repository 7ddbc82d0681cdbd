package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iudanet/catalogsync/internal/crdt"
	"github.com/iudanet/catalogsync/internal/metrics"
	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/internal/storage"
	"github.com/iudanet/catalogsync/internal/sync/ingest"
	"github.com/iudanet/catalogsync/internal/sync/notify"
)

const (
	tracerName = "github.com/iudanet/catalogsync/internal/sync"

	// actorPollInterval как часто Acquire проверяет, не перезапущен ли актор
	actorPollInterval = 50 * time.Millisecond

	// stableRunPeriod после такой работы актора backoff сбрасывается
	stableRunPeriod = time.Minute
)

// ErrClosed is returned by a Manager after Close
var ErrClosed = errors.New("sync manager closed")

// Deps are the storage collaborators of a Manager
type Deps struct {
	Local    storage.OpLog         // Local журнал, из которого читают пиры
	Cloud    storage.CloudLog      // Cloud журнал, зеркалируемый из облака
	Ingester storage.Ingester      // Ingester применяет удаленные пакеты
	State    storage.InstanceState // State идентификатор узла и состояние часов
}

// GetOpsArgs are the arguments of GetOps / GetCloudOps
type GetOpsArgs struct {
	Clocks models.Watermark // Clocks watermark запрашивающего узла
	Count  int              // Count максимальное число операций; <= 0 без ограничения
}

// Manager pairs sync operations with their domain mutations, serves operation
// ranges to remote instances and hosts the ingest actor.
type Manager struct {
	deps     Deps
	clock    *crdt.HLC
	bus      *notify.Bus
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	actor    atomic.Pointer[ingest.Actor]
	writes   chan struct{} // семафор: локальные записи и применение пакетов идут по одной
	done     chan struct{}
	closed   atomic.Bool
	instance uuid.UUID
	busSize  int
	clockOpt []crdt.Option
}

// Option configures a Manager
type Option func(*Manager)

// WithMetrics records write and ingest statistics
func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// WithTracer overrides the global tracer
func WithTracer(t trace.Tracer) Option {
	return func(mgr *Manager) {
		mgr.tracer = t
	}
}

// WithClockOptions passes options to the hybrid logical clock
func WithClockOptions(opts ...crdt.Option) Option {
	return func(mgr *Manager) {
		mgr.clockOpt = append(mgr.clockOpt, opts...)
	}
}

// WithNotifyBuffer sets the per-subscriber buffer of the notification bus
func WithNotifyBuffer(n int) Option {
	return func(mgr *Manager) {
		mgr.busSize = n
	}
}

// New creates a Manager. The clock is restored from the persisted state and
// from the local log, so timestamps keep increasing across restarts
func New(ctx context.Context, deps Deps, logger *slog.Logger, opts ...Option) (*Manager, error) {
	m := &Manager{
		deps:    deps,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		writes:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		busSize: notify.DefaultBuffer,
	}
	for _, opt := range opts {
		opt(m)
	}

	instance, err := deps.State.InstanceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get instance id: %w", err)
	}
	m.instance = instance
	m.clock = crdt.NewHLC(instance, m.clockOpt...)

	last, err := deps.State.LoadClock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clock: %w", err)
	}
	m.clock.Restore(last)

	// Watermark по всем узлам, включая собственный: свои операции не
	// запрашиваются обратно у пиров
	wm, err := deps.Local.Watermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load watermark: %w", err)
	}
	m.clock.AdvanceAll(wm)

	m.bus = notify.NewBus(m.busSize)

	logger.Info("Sync manager initialized",
		"instance", instance,
		"known_instances", len(wm),
		"clock", m.clock.GetTimestamp())

	return m, nil
}

// Instance returns the id of the local instance
func (m *Manager) Instance() uuid.UUID {
	return m.instance
}

// Clock returns the hybrid logical clock of the instance
func (m *Manager) Clock() *crdt.HLC {
	return m.clock
}

// Subscribe registers a notification subscriber, see notify.Bus.Subscribe
func (m *Manager) Subscribe() (<-chan notify.Kind, func()) {
	return m.bus.Subscribe()
}

// Publish announces k on the notification bus. Drivers use it to forward
// RequestIngested
func (m *Manager) Publish(k notify.Kind) {
	m.metrics.RecordDropped(k.String(), m.bus.Publish(k))
}

// WriteOp writes a single operation together with its domain mutation
func (m *Manager) WriteOp(ctx context.Context, op *models.CRDTOperation, mutate storage.Mutation) error {
	return m.WriteOps(ctx, []*models.CRDTOperation{op}, mutate)
}

// WriteOps stamps ops in place with the local instance and fresh timestamps,
// then appends them and runs mutate in one transaction. On success Created is
// published; on failure no operation is logged and the error is returned
// as is.
func (m *Manager) WriteOps(ctx context.Context, ops []*models.CRDTOperation, mutate storage.Mutation) (err error) {
	if m.closed.Load() {
		return ErrClosed
	}
	if len(ops) == 0 {
		return fmt.Errorf("%w: no operations to write", models.ErrValidation)
	}
	for _, op := range ops {
		if _, err := models.ValidateOperation(op); err != nil {
			return err
		}
	}

	ctx, span := m.tracer.Start(ctx, "sync.write_ops",
		trace.WithAttributes(attribute.Int("sync.ops", len(ops))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := m.lockWrites(ctx); err != nil {
		return err
	}
	defer m.unlockWrites()

	// Порядок коммитов совпадает с порядком timestamps
	for _, op := range ops {
		if op.ID == uuid.Nil {
			op.ID = uuid.New()
		}
		op.Instance = m.instance
		op.Timestamp = m.clock.Next()
	}
	last := ops[len(ops)-1].Timestamp

	start := time.Now()
	err = m.deps.Local.Append(ctx, ops, mutate)
	m.metrics.RecordWrite(len(ops), time.Since(start), err)
	if err != nil {
		return err
	}

	m.clock.Advance(m.instance, last)
	if err := m.deps.State.SaveClock(ctx, last); err != nil {
		// Операции уже записаны; часы восстановятся из журнала
		m.logger.Warn("Failed to persist clock", "error", err)
	}

	m.Publish(notify.Created)
	return nil
}

func (m *Manager) lockWrites(ctx context.Context) error {
	select {
	case m.writes <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) unlockWrites() {
	<-m.writes
}

// gatedIngester applies remote batches under the write gate of a Manager.
// A local write stamps and commits without a remote batch in between, so a
// newer remote value is never overwritten by an older local mutation
type gatedIngester struct {
	m *Manager
}

func (g gatedIngester) ApplyBatch(
	ctx context.Context,
	ops []*models.CRDTOperation,
	watermark models.Watermark,
) (*storage.ApplyResult, error) {
	if err := g.m.lockWrites(ctx); err != nil {
		return nil, err
	}
	defer g.m.unlockWrites()

	return g.m.deps.Ingester.ApplyBatch(ctx, ops, watermark)
}

// GetOps returns local log operations newer than args.Clocks in total order
func (m *Manager) GetOps(ctx context.Context, args GetOpsArgs) ([]*models.CRDTOperation, error) {
	m.metrics.RecordRequest("local")
	return m.deps.Local.Query(ctx, args.Clocks, args.Count)
}

// GetCloudOps returns cloud-mirrored operations newer than args.Clocks
func (m *Manager) GetCloudOps(ctx context.Context, args GetOpsArgs) ([]*models.CRDTOperation, error) {
	m.metrics.RecordRequest("cloud")
	return m.deps.Cloud.Query(ctx, args.Clocks, args.Count)
}

// Run hosts the ingest actor until ctx is cancelled. A failed actor is
// replaced by a fresh one after an exponential backoff
func (m *Manager) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	for {
		machine := ingest.NewMachine(m.instance, m.clock, gatedIngester{m: m}, m.logger,
			ingest.WithMetrics(m.metrics), ingest.WithTracer(m.tracer))
		actor := ingest.NewActor(machine, m.logger)
		m.actor.Store(actor)

		start := time.Now()
		err := actor.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(start) >= stableRunPeriod {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		m.metrics.RecordRestart()
		m.logger.Warn("Ingest actor stopped, restarting", "error", err, "backoff", wait)

		select {
		case <-ctx.Done():
			return nil
		case <-m.done:
			return nil
		case <-time.After(wait):
		}
	}
}

// Acquire takes the request handle of the running ingest actor, waiting for
// the actor to be (re)started if needed
func (m *Manager) Acquire(ctx context.Context) (*ingest.RequestHandle, error) {
	for {
		if m.closed.Load() {
			return nil, ErrClosed
		}
		if actor := m.actor.Load(); actor != nil {
			h, err := actor.Acquire(ctx)
			if !errors.Is(err, ingest.ErrActorStopped) {
				return h, err
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.done:
			return nil, ErrClosed
		case <-time.After(actorPollInterval):
		}
	}
}

// Close tears down the notification bus. Run should be stopped by
// cancelling its context
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(m.done)
	m.bus.Close()
	return nil
}
