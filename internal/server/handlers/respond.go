// Package handlers implements the HTTP endpoints of an instance.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/pkg/api"
)

// maxBodySize ограничение тела запроса
const maxBodySize = 32 << 20

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой. Ошибки валидации отдаются
// как 400, остальные скрываются за 500
func sendError(logger *slog.Logger, w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrValidation) {
		sendJSON(logger, w, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation}, http.StatusBadRequest)
		return
	}
	sendJSON(logger, w, api.ErrorResponse{Error: "internal server error", Code: api.CodeInternal}, http.StatusInternalServerError)
}

// decodeJSON читает тело запроса в v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(models.ErrValidation, err)
	}
	return nil
}
