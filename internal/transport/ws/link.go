package ws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	syncmgr "github.com/iudanet/catalogsync/internal/sync"
	"github.com/iudanet/catalogsync/internal/transport/peer"
)

const defaultDialTimeout = 10 * time.Second

// Link keeps a pull session to one remote URL alive, reconnecting with an
// exponential backoff when the connection is lost
type Link struct {
	manager     *syncmgr.Manager
	logger      *slog.Logger
	retry       func() backoff.BackOff
	onConnect   func(ctx context.Context, remote uuid.UUID, name string) error
	url         string
	session     []peer.Option
	dialTimeout time.Duration
}

// LinkOption configures a Link
type LinkOption func(*Link)

// WithSessionOptions passes options to every peer.Session of the link
func WithSessionOptions(opts ...peer.Option) LinkOption {
	return func(l *Link) {
		l.session = append(l.session, opts...)
	}
}

// WithReconnect overrides the reconnect policy. A policy returning
// backoff.Stop makes Run give up
func WithReconnect(policy func() backoff.BackOff) LinkOption {
	return func(l *Link) {
		l.retry = policy
	}
}

// WithOnConnect registers a callback run after every successful handshake
func WithOnConnect(fn func(ctx context.Context, remote uuid.UUID, name string) error) LinkOption {
	return func(l *Link) {
		l.onConnect = fn
	}
}

// NewLink creates a link from manager to the websocket endpoint at url
func NewLink(url string, manager *syncmgr.Manager, logger *slog.Logger, opts ...LinkOption) *Link {
	l := &Link{
		manager:     manager,
		logger:      logger.With("peer_url", url),
		url:         url,
		dialTimeout: defaultDialTimeout,
		retry: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 0
			bo.MaxInterval = time.Minute
			return bo
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run connects and pulls until ctx is cancelled
func (l *Link) Run(ctx context.Context) error {
	bo := l.retry()
	for {
		err := l.connect(ctx, bo)
		if ctx.Err() != nil {
			return nil
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("peer %s: %w", l.url, err)
		}
		l.logger.Warn("Peer link lost", "error", err, "retry_in", wait)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// connect держит одно соединение: pull при подключении и на каждый created
func (l *Link) connect(ctx context.Context, bo backoff.BackOff) error {
	created := make(chan struct{}, 1)
	dialCtx, cancel := context.WithTimeout(ctx, l.dialTimeout)
	client, err := Dial(dialCtx, l.url, l.logger, WithOnCreated(func() {
		select {
		case created <- struct{}{}:
		default:
		}
	}))
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	bo.Reset()
	l.logger.Info("Peer link established", "remote", client.InstanceID())

	if l.onConnect != nil {
		if err := l.onConnect(ctx, client.InstanceID(), client.Name()); err != nil {
			l.logger.Warn("Peer connect hook failed", "error", err)
		}
	}

	sess := peer.NewSession(l.manager, client, l.logger, l.session...)
	sessCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sess.Run(sessCtx)
	}()
	defer func() {
		stop()
		<-done
	}()

	for {
		select {
		case <-created:
			sess.Trigger()
		case <-client.Done():
			return client.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
