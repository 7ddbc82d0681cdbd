// Package cloud feeds operations relayed through the cloud into the local
// ingest actor. Relayed operations are first mirrored into the cloud log by a
// Receiver; the Bridge then drives the actor against that log.
package cloud

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/catalogsync/internal/metrics"
	syncmgr "github.com/iudanet/catalogsync/internal/sync"
	"github.com/iudanet/catalogsync/internal/sync/ingest"
	"github.com/iudanet/catalogsync/internal/sync/notify"
)

// OpsPerRequest число операций облачного журнала на один RequestMessages
const OpsPerRequest = 1000

// DefaultCycleInterval минимальный интервал между циклами ingest
const DefaultCycleInterval = time.Second

// Bridge drives the ingest actor of a Manager against its cloud-mirrored log.
// Each cycle runs until the actor finishes ingesting; the next cycle starts
// after Wake.
type Bridge struct {
	manager *syncmgr.Manager
	logger  *slog.Logger
	metrics *metrics.Metrics
	limiter *rate.Limiter
	wake    chan struct{} // один слот: пробуждения до начала цикла схлопываются
	batch   int
}

// BridgeOption configures a Bridge
type BridgeOption func(*Bridge)

// WithMetrics records cycle statistics
func WithMetrics(m *metrics.Metrics) BridgeOption {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithCycleLimit limits how often cycles may start
func WithCycleLimit(every time.Duration, burst int) BridgeOption {
	return func(b *Bridge) {
		b.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// WithBatchSize overrides OpsPerRequest
func WithBatchSize(n int) BridgeOption {
	return func(b *Bridge) {
		if n > 0 {
			b.batch = n
		}
	}
}

// NewBridge creates a cloud ingest bridge for manager
func NewBridge(manager *syncmgr.Manager, logger *slog.Logger, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		manager: manager,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(DefaultCycleInterval), 1),
		wake:    make(chan struct{}, 1),
		batch:   OpsPerRequest,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Wake schedules another cycle. It never blocks; wakes received while a
// cycle is pending are coalesced into one
func (b *Bridge) Wake() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Run performs a cycle immediately and then one cycle per Wake until ctx is
// cancelled. A failed cycle is logged and retried on the next Wake
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("Starting cloud ingest bridge", "batch", b.batch)

	for {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil
		}

		n, err := b.Cycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Error("Cloud ingest cycle failed", "error", err)
		} else {
			b.logger.Debug("Cloud ingest cycle finished", "ops", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-b.wake:
		}
	}
}

// Cycle runs one ingest cycle against the cloud log and returns the number
// of operations handed to the actor
func (b *Bridge) Cycle(ctx context.Context) (int, error) {
	h, err := b.manager.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer h.Release()

	total := 0
	fetch := func(ctx context.Context, req ingest.RequestMessages) (ingest.EventMessages, error) {
		ops, err := b.manager.GetCloudOps(ctx, syncmgr.GetOpsArgs{Clocks: req.Timestamps, Count: b.batch})
		if err != nil {
			return ingest.EventMessages{}, err
		}
		b.logger.Info("Got cloud ops to ingest", "count", len(ops))
		total += len(ops)
		return req.Reply(b.manager.Instance(), ops, len(ops) == b.batch), nil
	}

	err = ingest.Cycle(ctx, h, fetch, func() { b.manager.Publish(notify.Ingested) })
	if err != nil {
		return total, err
	}
	b.metrics.RecordCloudCycle()
	return total, nil
}
