package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iudanet/catalogsync/internal/metrics"
	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/internal/storage"
)

const tracerName = "github.com/iudanet/catalogsync/internal/sync/ingest"

// State is the ingest machine state
type State uint8

const (
	StateIdle State = iota
	StateRequestingMessages
	StateApplyingBatch
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingMessages:
		return "requesting_messages"
	case StateApplyingBatch:
		return "applying_batch"
	default:
		return "unknown"
	}
}

//go:generate moq -out clock_mock.go . Clock

// Clock is the part of the hybrid logical clock the machine needs
type Clock interface {
	// Watermark returns a copy of the applied watermark
	Watermark() models.Watermark

	// Observe folds a remote timestamp into the clock
	Observe(remote models.Timestamp) error

	// AdvanceAll moves the watermark forward
	AdvanceAll(w models.Watermark)
}

// Machine is the ingest finite state machine. It is driven purely by Step
// and is not safe for concurrent use; Actor serializes access to it.
type Machine struct {
	clock    Clock
	ingester storage.Ingester
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	seq      uint64 // номер последнего выданного RequestMessages
	instance uuid.UUID
	state    State
}

// MachineOption configures a Machine
type MachineOption func(*Machine)

// WithMetrics records batch statistics
func WithMetrics(m *metrics.Metrics) MachineOption {
	return func(mc *Machine) {
		mc.metrics = m
	}
}

// WithTracer overrides the global tracer
func WithTracer(t trace.Tracer) MachineOption {
	return func(mc *Machine) {
		mc.tracer = t
	}
}

// NewMachine creates a machine in the Idle state for the local instance
func NewMachine(instance uuid.UUID, clock Clock, ingester storage.Ingester, logger *slog.Logger, opts ...MachineOption) *Machine {
	m := &Machine{
		clock:    clock,
		ingester: ingester,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		instance: instance,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Step feeds one event into the machine and returns the requests to emit in
// order. An error means the machine must not be stepped again
func (m *Machine) Step(ctx context.Context, ev Event) ([]Request, error) {
	switch ev := ev.(type) {
	case EventNotification:
		return m.onNotification()
	case EventMessages:
		return m.onMessages(ctx, ev)
	default:
		m.metrics.RecordProtocolError()
		return nil, fmt.Errorf("%w: unknown event %T", ErrProtocol, ev)
	}
}

// onNotification запрашивает операции новее текущего watermark.
// В состоянии RequestingMessages это повторный запрос: предыдущий
// драйвер мог отказаться от цикла, не дождавшись ответа.
func (m *Machine) onNotification() ([]Request, error) {
	switch m.state {
	case StateIdle, StateRequestingMessages:
		return []Request{m.request()}, nil
	default:
		m.metrics.RecordProtocolError()
		return nil, fmt.Errorf("%w: notification while %s", ErrProtocol, m.state)
	}
}

func (m *Machine) request() RequestMessages {
	m.seq++
	m.state = StateRequestingMessages
	return RequestMessages{
		InstanceID: m.instance,
		Timestamps: m.clock.Watermark(),
		Seq:        m.seq,
	}
}

func (m *Machine) onMessages(ctx context.Context, ev EventMessages) ([]Request, error) {
	if m.state != StateRequestingMessages || ev.Seq != m.seq {
		// Ответ на уже замененный запрос: безопасно игнорируем
		if ev.Seq != 0 && ev.Seq <= m.seq {
			m.logger.Debug("Dropping stale ingest response",
				"seq", ev.Seq, "current_seq", m.seq, "from", ev.InstanceID, "state", m.state.String())
			return nil, nil
		}
		m.metrics.RecordProtocolError()
		return nil, fmt.Errorf("%w: messages (seq %d) while %s", ErrProtocol, ev.Seq, m.state)
	}

	m.state = StateApplyingBatch
	if err := m.apply(ctx, ev); err != nil {
		return nil, err
	}

	if ev.HasMore && len(ev.Messages) > 0 {
		return []Request{m.request()}, nil
	}

	m.state = StateIdle
	return []Request{RequestIngested{}, RequestFinishedIngesting{}}, nil
}

// apply применяет пакет в одной транзакции и продвигает watermark часов
func (m *Machine) apply(ctx context.Context, ev EventMessages) (err error) {
	ctx, span := m.tracer.Start(ctx, "ingest.apply_batch",
		trace.WithAttributes(
			attribute.String("ingest.from", ev.InstanceID.String()),
			attribute.Int("ingest.batch_size", len(ev.Messages)),
			attribute.Bool("ingest.has_more", ev.HasMore),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if len(ev.Messages) == 0 {
		return nil
	}

	for _, op := range ev.Messages {
		if err := m.clock.Observe(op.Timestamp); err != nil {
			return fmt.Errorf("operation %s: %w", op.ID, err)
		}
	}

	start := time.Now()
	res, err := m.ingester.ApplyBatch(ctx, ev.Messages, m.clock.Watermark())
	if err != nil {
		return fmt.Errorf("failed to apply batch from %s: %w", ev.InstanceID, err)
	}
	m.clock.AdvanceAll(res.Watermark)

	m.metrics.RecordBatch(res.Applied, res.Superseded, res.Skipped, time.Since(start))
	span.SetAttributes(
		attribute.Int("ingest.applied", res.Applied),
		attribute.Int("ingest.superseded", res.Superseded),
		attribute.Int("ingest.skipped", res.Skipped),
	)
	m.logger.Debug("Applied ingest batch",
		"from", ev.InstanceID,
		"applied", res.Applied,
		"superseded", res.Superseded,
		"skipped", res.Skipped,
		"has_more", ev.HasMore)

	return nil
}
