package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// DefaultLimiterCacheSize сколько клиентов помнит RateLimiter
const DefaultLimiterCacheSize = 4096

// RateLimiter ограничивает частоту запросов по ключу клиента (обычно IP адрес).
// Каждому ключу соответствует свой token bucket
type RateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	logger   *slog.Logger
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
}

// NewRateLimiter создает новый rate limiter
// rate - максимальное количество запросов за window, оно же размер bucket
func NewRateLimiter(requests int, window time.Duration, logger *slog.Logger) *RateLimiter {
	// Ошибка возможна только при size <= 0
	cache, _ := lru.New[string, *rate.Limiter](DefaultLimiterCacheSize)
	return &RateLimiter{
		limiters: cache,
		logger:   logger,
		limit:    rate.Every(window / time.Duration(max(requests, 1))),
		burst:    requests,
	}
}

// Allow проверяет, разрешен ли запрос для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	l, ok := rl.limiters.Get(key)
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters.Add(key, l)
	}
	rl.mu.Unlock()

	return l.Allow()
}

// Len возвращает число отслеживаемых клиентов
func (rl *RateLimiter) Len() int {
	return rl.limiters.Len()
}

// Middleware отвечает 429, если ключ клиента исчерпал лимит
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getClientIP(r)

		if !rl.Allow(key) {
			rl.logger.Warn("Rate limit exceeded",
				"ip", key,
				"method", r.Method,
				"path", r.URL.Path,
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded, please try again later"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware создает middleware для ограничения частоты запросов
func RateLimitMiddleware(requests int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return NewRateLimiter(requests, window, logger).Middleware
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Первый адрес в списке - реальный клиент
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
