// Package server assembles the HTTP surface of an instance.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/catalogsync/internal/server/handlers"
	"github.com/iudanet/catalogsync/internal/server/middleware"
)

// Routes of the instance endpoint
const (
	PathHealth    = "/api/v1/health"
	PathOps       = "/api/v1/ops"
	PathCloudOps  = "/api/v1/cloud/ops"
	PathPeers     = "/ws"
	PathMetrics   = "/metrics"
	rateLimitSpan = time.Minute
)

// Routes are the handlers mounted by NewRouter
type Routes struct {
	Health  *handlers.HealthHandler
	Ops     *handlers.OpsHandler
	Relay   *handlers.RelayHandler // nil отключает прием из облака
	Peers   http.Handler           // websocket сессии пиров
	Metrics http.Handler           // nil отключает /metrics
}

// NewRouter mounts routes. rateLimit is the number of API requests per
// minute per client, zero disables limiting
func NewRouter(routes Routes, logger *slog.Logger, rateLimit int) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingWithSkip(logger, []string{PathHealth, PathMetrics}))

	r.HandleFunc(PathHealth, routes.Health.Health).Methods(http.MethodGet)
	r.Handle(PathPeers, routes.Peers).Methods(http.MethodGet)
	if routes.Metrics != nil {
		r.Handle(PathMetrics, routes.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	if rateLimit > 0 {
		api.Use(middleware.RateLimitMiddleware(rateLimit, rateLimitSpan, logger))
	}
	api.HandleFunc("/ops", routes.Ops.GetOps).Methods(http.MethodPost)
	if routes.Relay != nil {
		api.HandleFunc("/cloud/ops", routes.Relay.Push).Methods(http.MethodPost)
	}

	return r
}
