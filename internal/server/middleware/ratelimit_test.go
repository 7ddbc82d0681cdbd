package middleware

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNewRateLimiter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	limiter := NewRateLimiter(10, time.Minute, logger)

	assert.NotNil(t, limiter)
	assert.Equal(t, 10, limiter.burst)
	assert.Equal(t, rate.Every(6*time.Second), limiter.limit)
	assert.Zero(t, limiter.Len())
}

func TestRateLimiter_Allow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("First requests within limit are allowed", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute, logger)
		key := "192.168.1.1"

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow(key), fmt.Sprintf("request %d should be allowed", i+1))
		}
	})

	t.Run("Requests over limit are denied", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute, logger)
		key := "192.168.1.2"

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow(key))
		}
		assert.False(t, limiter.Allow(key), "request over limit should be denied")
	})

	t.Run("Different keys are tracked separately", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute, logger)

		assert.True(t, limiter.Allow("192.168.1.1"))
		assert.True(t, limiter.Allow("192.168.1.1"))
		assert.False(t, limiter.Allow("192.168.1.1"), "key1 over limit")

		assert.True(t, limiter.Allow("192.168.1.2"))
		assert.True(t, limiter.Allow("192.168.1.2"))
		assert.False(t, limiter.Allow("192.168.1.2"), "key2 over limit")

		assert.Equal(t, 2, limiter.Len())
	})

	t.Run("Tokens refill over time", func(t *testing.T) {
		limiter := NewRateLimiter(2, 50*time.Millisecond, logger)
		key := "192.168.1.3"

		assert.True(t, limiter.Allow(key))
		assert.True(t, limiter.Allow(key))
		assert.False(t, limiter.Allow(key), "should be rate limited")

		time.Sleep(60 * time.Millisecond)

		assert.True(t, limiter.Allow(key), "tokens should be refilled")
		assert.True(t, limiter.Allow(key), "tokens should be refilled")
	})
}

func TestRateLimiter_EvictsLeastRecent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := NewRateLimiter(1, time.Minute, logger)

	for i := 0; i < DefaultLimiterCacheSize+10; i++ {
		limiter.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	assert.Equal(t, DefaultLimiterCacheSize, limiter.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})

	t.Run("Requests within limit pass through", func(t *testing.T) {
		handler := RateLimitMiddleware(5, time.Minute, logger)(ok)

		for i := 0; i < 5; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ops", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code, fmt.Sprintf("request %d should pass", i+1))
			assert.Equal(t, "success", w.Body.String())
		}
	})

	t.Run("Requests over limit are blocked with 429", func(t *testing.T) {
		handler := RateLimitMiddleware(3, time.Minute, logger)(ok)

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cloud/ops", nil)
			req.RemoteAddr = "192.168.1.2:12345"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/cloud/ops", nil)
		req.RemoteAddr = "192.168.1.2:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "rate limit exceeded")
	})

	t.Run("Ports of one host share the limit", func(t *testing.T) {
		handler := RateLimitMiddleware(1, time.Minute, logger)(ok)

		req1 := httptest.NewRequest(http.MethodGet, "/api/v1/ops", nil)
		req1.RemoteAddr = "192.168.1.5:1111"
		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, req1)
		assert.Equal(t, http.StatusOK, w1.Code)

		req2 := httptest.NewRequest(http.MethodGet, "/api/v1/ops", nil)
		req2.RemoteAddr = "192.168.1.5:2222"
		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, req2)
		assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	})
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		expectedIP string
	}{
		{
			name:       "X-Forwarded-For with single IP",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "X-Forwarded-For with multiple IPs",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1, 10.0.0.2, 10.0.0.3",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "X-Real-IP when X-Forwarded-For is empty",
			remoteAddr: "10.0.0.1:12345",
			xRealIP:    "192.168.2.1",
			expectedIP: "192.168.2.1",
		},
		{
			name:       "RemoteAddr host when headers are empty",
			remoteAddr: "192.168.3.1:54321",
			expectedIP: "192.168.3.1",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "192.168.3.2",
			expectedIP: "192.168.3.2",
		},
		{
			name:       "X-Forwarded-For takes precedence over X-Real-IP",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1",
			xRealIP:    "192.168.2.1",
			expectedIP: "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.expectedIP, getClientIP(req))
		})
	}
}

func TestRateLimitMiddleware_LogsExceededRequests(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	handler := RateLimitMiddleware(1, time.Minute, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req1 := httptest.NewRequest(http.MethodPost, "/api/v1/cloud/ops", nil)
	req1.RemoteAddr = "192.168.1.1:12345"
	handler.ServeHTTP(httptest.NewRecorder(), req1)

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/cloud/ops", nil)
	req2.RemoteAddr = "192.168.1.1:12345"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)

	assert.Equal(t, http.StatusTooManyRequests, w2.Code)

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "Rate limit exceeded")
	assert.Contains(t, logOutput, "192.168.1.1")
	assert.Contains(t, logOutput, "/api/v1/cloud/ops")
	assert.Contains(t, logOutput, "POST")
}
