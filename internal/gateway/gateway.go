// Package gateway exposes the engine over HTTP: a JSON webhook for
// channel adapters (voice platforms, messaging bridges) and a websocket
// endpoint for web chat. The gateway is a thin translation layer; every
// conversational decision lives in the engine.
package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lastminutejob75/standardiste/internal/engine"
	"github.com/lastminutejob75/standardiste/internal/health"
	"github.com/lastminutejob75/standardiste/internal/observe"
)

// Server bundles the HTTP surface of the application.
type Server struct {
	engine  *engine.Engine
	health  *health.Handler
	metrics *observe.Metrics
}

// New creates a gateway server around the engine.
func New(eng *engine.Engine, h *health.Handler, m *observe.Metrics) *Server {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Server{engine: eng, health: h, metrics: m}
}

// Handler builds the full route table. The websocket route is registered
// outside the metrics middleware because connection hijacking does not mix
// with response-wrapping middlewares.
func (s *Server) Handler() http.Handler {
	instrumented := http.NewServeMux()
	instrumented.HandleFunc("POST /v1/conversations", s.handleOpen)
	instrumented.HandleFunc("POST /v1/messages", s.handleMessage)
	instrumented.Handle("GET /metrics", promhttp.Handler())
	if s.health != nil {
		s.health.Register(instrumented)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /v1/chat", s.handleChat)
	root.Handle("/", observe.Middleware(s.metrics)(instrumented))
	return root
}
