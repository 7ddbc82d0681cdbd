package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Health(t *testing.T) {
	instance := uuid.New()

	tests := []struct {
		pingErr        error
		name           string
		expectedStatus string
		expectedCode   int
	}{
		{name: "database available", expectedStatus: "ok", expectedCode: http.StatusOK},
		{name: "database unavailable", pingErr: errors.New("disk I/O error"), expectedStatus: "unavailable", expectedCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := pingerFunc(func(ctx context.Context) error { return tt.pingErr })
			handler := NewHealthHandler(setupTestLogger(), db, instance, "v1.2.3")

			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			w := httptest.NewRecorder()

			handler.Health(w, req)

			resp := w.Result()
			defer func() {
				assert.NoError(t, resp.Body.Close())
			}()

			assert.Equal(t, tt.expectedCode, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			var healthResp HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&healthResp))
			assert.Equal(t, tt.expectedStatus, healthResp.Status)
			assert.Equal(t, "v1.2.3", healthResp.Version)
			assert.Equal(t, instance.String(), healthResp.Instance)
		})
	}
}
