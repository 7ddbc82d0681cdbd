package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/iudanet/catalogsync/internal/codec"
	"github.com/iudanet/catalogsync/internal/models"
	syncmgr "github.com/iudanet/catalogsync/internal/sync"
	"github.com/iudanet/catalogsync/pkg/api"
)

// DefaultMaxCount верхняя граница count в одном запросе
const DefaultMaxCount = 1000

// OpsSource отдает диапазоны журнала операций
type OpsSource interface {
	Instance() uuid.UUID
	GetOps(ctx context.Context, args syncmgr.GetOpsArgs) ([]*models.CRDTOperation, error)
}

// OpsHandler отдает операции локального журнала по HTTP
type OpsHandler struct {
	logger   *slog.Logger
	source   OpsSource
	maxCount int
}

// NewOpsHandler creates a handler serving source
func NewOpsHandler(logger *slog.Logger, source OpsSource, maxCount int) *OpsHandler {
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}
	return &OpsHandler{
		logger:   logger,
		source:   source,
		maxCount: maxCount,
	}
}

// GetOps обрабатывает POST /api/v1/ops
// Принимает watermark запрашивающего узла и возвращает следующие операции
func (h *OpsHandler) GetOps(w http.ResponseWriter, r *http.Request) {
	var req api.GetOpsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode get ops request", "error", err)
		sendError(h.logger, w, err)
		return
	}

	for _, e := range req.Clocks {
		if e.Instance == uuid.Nil {
			sendError(h.logger, w, fmt.Errorf("%w: nil instance in clocks", models.ErrValidation))
			return
		}
	}

	count := req.Count
	if count <= 0 || count > h.maxCount {
		count = h.maxCount
	}

	ops, err := h.source.GetOps(r.Context(), syncmgr.GetOpsArgs{
		Clocks: models.WatermarkFromEntries(req.Clocks),
		Count:  count,
	})
	if err != nil {
		h.logger.Error("Failed to get ops", "error", err)
		sendError(h.logger, w, err)
		return
	}

	encoded, err := codec.EncodeOperations(ops)
	if err != nil {
		h.logger.Error("Failed to encode ops", "error", err)
		sendError(h.logger, w, err)
		return
	}

	h.logger.Debug("Served ops", "count", len(ops), "requested", req.Count)
	sendJSON(h.logger, w, api.OpsResponse{Ops: encoded, Instance: h.source.Instance().String()}, http.StatusOK)
}
