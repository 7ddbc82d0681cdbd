package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/catalogsync/internal/cloud"
	"github.com/iudanet/catalogsync/internal/codec"
	"github.com/iudanet/catalogsync/internal/models"
	"github.com/iudanet/catalogsync/pkg/api"
)

type mockRelay struct {
	err      error
	received []*models.CRDTOperation
	stored   int
}

func (m *mockRelay) Receive(ctx context.Context, ops []*models.CRDTOperation) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.received = append(m.received, ops...)
	return m.stored, nil
}

func TestRelayHandler_Push(t *testing.T) {
	ops := testOps(uuid.New(), 3)
	encoded, err := codec.EncodeOperations(ops)
	require.NoError(t, err)

	relay := &mockRelay{stored: 2}
	handler := NewRelayHandler(setupTestLogger(), relay)

	w := httptest.NewRecorder()
	handler.Push(w, postJSON(t, "/api/v1/cloud/ops", api.RelayRequest{Ops: encoded}))

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.RelayResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Stored)

	require.Len(t, relay.received, 3)
	for i := range ops {
		assert.Equal(t, ops[i].ID, relay.received[i].ID)
		assert.Equal(t, ops[i].Timestamp, relay.received[i].Timestamp)
	}
}

func TestRelayHandler_Push_Errors(t *testing.T) {
	valid, err := codec.EncodeOperations(testOps(uuid.New(), 1))
	require.NoError(t, err)

	corrupted := bytes.Clone(valid[0])
	corrupted[len(corrupted)-1] ^= 0xff

	tests := []struct {
		relayErr     error
		name         string
		request      api.RelayRequest
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "corrupted envelope",
			request:      api.RelayRequest{Ops: [][]byte{corrupted}},
			expectedCode: http.StatusBadRequest,
			expectedErr:  api.CodeValidation,
		},
		{
			name:         "empty batch",
			request:      api.RelayRequest{},
			relayErr:     cloud.ErrEmptyBatch,
			expectedCode: http.StatusBadRequest,
			expectedErr:  api.CodeValidation,
		},
		{
			name:         "invalid operation",
			request:      api.RelayRequest{Ops: valid},
			relayErr:     fmt.Errorf("relayed operation: %w", models.ErrUnknownModel),
			expectedCode: http.StatusBadRequest,
			expectedErr:  api.CodeValidation,
		},
		{
			name:         "mirror failure",
			request:      api.RelayRequest{Ops: valid},
			relayErr:     errors.New("disk full"),
			expectedCode: http.StatusInternalServerError,
			expectedErr:  api.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRelayHandler(setupTestLogger(), &mockRelay{err: tt.relayErr})

			w := httptest.NewRecorder()
			handler.Push(w, postJSON(t, "/api/v1/cloud/ops", tt.request))

			assert.Equal(t, tt.expectedCode, w.Code)

			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.expectedErr, resp.Code)
		})
	}
}
