// Package api assembles the HTTP surface: the client_interface query
// switcher (internal/api/handlers) plus health probes, wrapped in the
// same correlation/logging middleware stack the teacher uses.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	apihandlers "github.com/bmlt-enabled/tomato/internal/api/handlers"
	"github.com/bmlt-enabled/tomato/internal/api/middleware"
	"github.com/bmlt-enabled/tomato/internal/metrics"
)

// NewRouter builds the top-level handler: client_interface's format/
// switcher dispatch, health probes, and the correlation -> logging ->
// metrics -> tracing -> language middleware stack (spec §6.1, §6.2).
// m/reg/tracer may be nil to run without prometheus/otel wiring (e.g.
// in handler-level tests). mcpHandler, when non-nil, is mounted at
// /mcp so `tomato serve` exposes the same search as both HTTP and MCP
// (spec C13's "HTTP+MCP query surface").
func NewRouter(h *apihandlers.Handlers, logger zerolog.Logger, m *metrics.Metrics, reg *prometheus.Registry, tracer trace.Tracer, mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", healthz())
	if reg != nil {
		mux.Handle("/metrics", metrics.Handler(reg))
	}
	mux.Handle("/client_interface/{format}/", h)
	mux.Handle("/client_interface/{format}", h)
	if mcpHandler != nil {
		mux.Handle("/mcp", mcpHandler)
		mux.Handle("/mcp/", mcpHandler)
	}

	handler := middleware.CorrelationID(logger)(mux)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.Metrics(m)(handler)
	if tracer != nil {
		handler = middleware.Tracing(tracer)(handler)
	}
	handler = middleware.Language()(handler)
	return handler
}
