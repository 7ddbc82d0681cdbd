package ingest

import (
	"context"
	"fmt"
)

// Fetcher answers one RequestMessages on behalf of a driver: a peer session
// calls the remote instance, the cloud bridge reads the mirrored log
type Fetcher func(ctx context.Context, req RequestMessages) (EventMessages, error)

// Cycle runs one ingest cycle on an acquired handle: it injects a
// Notification, answers every RequestMessages with fetch and returns after
// RequestFinishedIngesting. onIngested is called for each RequestIngested.
// The caller keeps ownership of h and releases it
func Cycle(ctx context.Context, h *RequestHandle, fetch Fetcher, onIngested func()) error {
	if err := h.Send(ctx, EventNotification{}); err != nil {
		return fmt.Errorf("failed to notify ingest actor: %w", err)
	}

	for {
		req, err := h.Next(ctx)
		if err != nil {
			return err
		}

		switch req := req.(type) {
		case RequestMessages:
			ev, err := fetch(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to fetch operations: %w", err)
			}
			if err := h.Send(ctx, ev); err != nil {
				return fmt.Errorf("failed to deliver operations: %w", err)
			}
		case RequestIngested:
			if onIngested != nil {
				onIngested()
			}
		case RequestFinishedIngesting:
			return nil
		}
	}
}
