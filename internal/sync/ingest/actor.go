package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// EventBuffer размер очереди входящих событий актора
const EventBuffer = 64

// ErrActorStopped is returned to drivers once the actor loop has exited
var ErrActorStopped = errors.New("ingest actor stopped")

// Actor runs a Machine. Events are queued on a bounded channel; requests are
// delivered to the single driver holding the RequestHandle.
type Actor struct {
	machine  *Machine
	logger   *slog.Logger
	events   chan Event
	requests chan Request
	handles  chan struct{} // один слот: владелец слота читает запросы
	done     chan struct{}
}

// NewActor wraps machine into an actor. Run must be called to start it
func NewActor(machine *Machine, logger *slog.Logger) *Actor {
	a := &Actor{
		machine:  machine,
		logger:   logger,
		events:   make(chan Event, EventBuffer),
		requests: make(chan Request),
		handles:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	a.handles <- struct{}{}
	return a
}

// Send enqueues an event. It blocks while the queue is full and returns early
// if ctx is cancelled or the actor has stopped
func (a *Actor) Send(ctx context.Context, ev Event) error {
	select {
	case <-a.done:
		return ErrActorStopped
	default:
	}

	select {
	case a.events <- ev:
		return nil
	case <-a.done:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Run processes events until ctx is cancelled or the machine fails.
// A failed actor is not restarted here; the host creates a new one
func (a *Actor) Run(ctx context.Context) error {
	defer close(a.done)

	a.logger.Debug("Ingest actor started")

	for {
		var ev Event
		select {
		case <-ctx.Done():
			a.logger.Debug("Ingest actor stopped")
			return ctx.Err()
		case ev = <-a.events:
		}

		requests, err := a.machine.Step(ctx, ev)
		if err != nil {
			a.logger.Error("Ingest actor failed", "error", err, "state", a.machine.State().String())
			return fmt.Errorf("ingest actor: %w", err)
		}

		for _, req := range requests {
			select {
			case a.requests <- req:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Acquire waits until the request handle is free and takes it. Exactly one
// driver holds the handle at a time; it must call Release when done
func (a *Actor) Acquire(ctx context.Context) (*RequestHandle, error) {
	select {
	case <-a.handles:
		return &RequestHandle{actor: a, requests: a.requests}, nil
	case <-a.done:
		return nil, ErrActorStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RequestHandle is the exclusive right to consume an actor's requests.
// It is owned by one goroutine and must not be shared
type RequestHandle struct {
	actor    *Actor
	requests chan Request
}

// Requests returns the request stream. A released handle returns nil
func (h *RequestHandle) Requests() <-chan Request {
	return h.requests
}

// Send forwards an event to the actor
func (h *RequestHandle) Send(ctx context.Context, ev Event) error {
	if h.requests == nil {
		return errors.New("request handle released")
	}
	return h.actor.Send(ctx, ev)
}

// Next waits for the next request. It returns ErrActorStopped if the actor
// exits while waiting
func (h *RequestHandle) Next(ctx context.Context) (Request, error) {
	if h.requests == nil {
		return nil, errors.New("request handle released")
	}
	select {
	case req := <-h.requests:
		return req, nil
	case <-h.actor.done:
		return nil, ErrActorStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns the handle to the actor. Calling it twice is a no-op
func (h *RequestHandle) Release() {
	if h.requests == nil {
		return
	}
	h.requests = nil
	h.actor.handles <- struct{}{}
}
