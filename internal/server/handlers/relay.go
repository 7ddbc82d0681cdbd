package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iudanet/catalogsync/internal/cloud"
	"github.com/iudanet/catalogsync/internal/codec"
	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/pkg/api"
)

// Relay принимает операции, пересланные облаком
type Relay interface {
	Receive(ctx context.Context, ops []*models.CRDTOperation) (int, error)
}

// RelayHandler handles pushes from the cloud relay
type RelayHandler struct {
	logger *slog.Logger
	relay  Relay
}

// NewRelayHandler creates a relay handler
func NewRelayHandler(logger *slog.Logger, relay Relay) *RelayHandler {
	return &RelayHandler{
		logger: logger,
		relay:  relay,
	}
}

// Push обрабатывает POST /api/v1/cloud/ops
func (h *RelayHandler) Push(w http.ResponseWriter, r *http.Request) {
	var req api.RelayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode relay request", "error", err)
		sendError(h.logger, w, err)
		return
	}

	ops, err := codec.DecodeOperations(req.Ops)
	if err != nil {
		h.logger.Warn("Failed to decode relayed ops", "error", err)
		sendError(h.logger, w, err)
		return
	}

	stored, err := h.relay.Receive(r.Context(), ops)
	if err != nil {
		if errors.Is(err, cloud.ErrEmptyBatch) {
			err = fmt.Errorf("%w: %w", models.ErrValidation, err)
		}
		if errors.Is(err, models.ErrValidation) {
			h.logger.Warn("Rejected relay batch", "error", err)
		} else {
			h.logger.Error("Failed to mirror relay batch", "error", err)
		}
		sendError(h.logger, w, err)
		return
	}

	h.logger.Info("Relay batch mirrored", "received", len(ops), "stored", stored)
	sendJSON(h.logger, w, api.RelayResponse{Stored: stored}, http.StatusOK)
}
