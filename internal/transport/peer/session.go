// Package peer drives the local ingest actor against one remote instance.
package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/iudanet/catalogsync/internal/models"
	syncmgr "github.com/iudanet/catalogsync/internal/sync"
	"github.com/iudanet/catalogsync/internal/sync/ingest"
	"github.com/iudanet/catalogsync/internal/sync/notify"
)

const (
	// DefaultRequestTimeout таймаут одного запроса операций у удаленного узла
	DefaultRequestTimeout = 10 * time.Second

	// DefaultBatchSize число операций на один запрос
	DefaultBatchSize = 1000

	// defaultRetries число повторов запроса после временной ошибки
	defaultRetries = 3
)

//go:generate moq -out remote_mock.go . Remote

// Remote is the peer-facing contract of a remote instance
type Remote interface {
	// InstanceID returns the id of the remote instance
	InstanceID() uuid.UUID

	// GetOps returns operations of the remote local log newer than clocks,
	// in total order, at most count
	GetOps(ctx context.Context, clocks models.Watermark, count int) ([]*models.CRDTOperation, error)
}

// Session pulls operations from one Remote into the local Manager
type Session struct {
	manager *syncmgr.Manager
	remote  Remote
	logger  *slog.Logger
	retry   func() backoff.BackOff
	trigger chan struct{} // один слот: повторные триггеры схлопываются
	timeout time.Duration
	batch   int
}

// Option configures a Session
type Option func(*Session)

// WithRequestTimeout bounds every GetOps call
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithBatchSize sets the count passed to GetOps
func WithBatchSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.batch = n
		}
	}
}

// WithRetry overrides the retry policy of a failed GetOps
func WithRetry(policy func() backoff.BackOff) Option {
	return func(s *Session) {
		s.retry = policy
	}
}

// NewSession creates a Session between manager and remote
func NewSession(manager *syncmgr.Manager, remote Remote, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		manager: manager,
		remote:  remote,
		logger:  logger.With("remote", remote.InstanceID()),
		trigger: make(chan struct{}, 1),
		timeout: DefaultRequestTimeout,
		batch:   DefaultBatchSize,
		retry: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), defaultRetries)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger schedules a pull. It never blocks
func (s *Session) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run pulls once and then once per Trigger until ctx is cancelled
func (s *Session) Run(ctx context.Context) error {
	for {
		n, err := s.Pull(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			s.logger.Warn("Pull from remote failed", "error", err)
		default:
			s.logger.Debug("Pull from remote finished", "ops", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.trigger:
		}
	}
}

// Pull runs one ingest cycle against the remote and returns the number of
// operations received
func (s *Session) Pull(ctx context.Context) (int, error) {
	h, err := s.manager.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer h.Release()

	total := 0
	fetch := func(ctx context.Context, req ingest.RequestMessages) (ingest.EventMessages, error) {
		ops, err := s.getOps(ctx, req.Timestamps)
		if err != nil {
			return ingest.EventMessages{}, err
		}
		total += len(ops)
		return req.Reply(s.remote.InstanceID(), ops, len(ops) == s.batch), nil
	}

	err = ingest.Cycle(ctx, h, fetch, func() { s.manager.Publish(notify.Ingested) })
	return total, err
}

// getOps вызывает удаленный узел с таймаутом и повторами
func (s *Session) getOps(ctx context.Context, clocks models.Watermark) ([]*models.CRDTOperation, error) {
	var ops []*models.CRDTOperation

	call := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		var err error
		ops, err = s.remote.GetOps(reqCtx, clocks, s.batch)
		if err == nil {
			return nil
		}
		// Ошибки формата не исправятся повтором
		if errors.Is(err, models.ErrValidation) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	notifyRetry := func(err error, wait time.Duration) {
		s.logger.Debug("Retrying GetOps", "error", err, "backoff", wait)
	}

	if err := backoff.RetryNotify(call, backoff.WithContext(s.retry(), ctx), notifyRetry); err != nil {
		return nil, fmt.Errorf("get ops from %s: %w", s.remote.InstanceID(), err)
	}
	return ops, nil
}
