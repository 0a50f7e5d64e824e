// Package admin exposes the runtime's operational surface: a fasthttp
// /status and /metrics endpoint, plus a read-only diagnostic WebSocket
// stream of netcore connection lifecycle events. Grounded on pkg/web's
// direct use of valyala/fasthttp and pkg/core/eventbus_ws.go's
// gorilla/websocket bridge, both reduced to this package's narrower scope.
package admin

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/echo"
	"github.com/coactor/machine/pkg/logging"
	"github.com/coactor/machine/pkg/metrics"
)

// StatusSnapshot is the /status JSON body.
type StatusSnapshot struct {
	ServiceState    string                               `json:"service_state"`
	Connections     int                                  `json:"connections"`
	Drained         bool                                 `json:"drained"`
	ExecutorStats   map[string]concurrency.ExecutorStats `json:"executor_stats"`
	BytesReceived   int64                                `json:"bytes_received"`
	BytesSent       int64                                `json:"bytes_sent"`
}

// Server serves the admin HTTP surface over fasthttp.
type Server struct {
	addr    string
	svc     *echo.Service
	pool    *concurrency.ExecutorPool
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	logger  logging.Logger
	fast    *fasthttp.Server
}

// NewServer constructs an admin Server bound to svc's status and pool's
// executor stats, publishing against its own isolated Prometheus registry.
func NewServer(addr string, svc *echo.Service, pool *concurrency.ExecutorPool, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		addr:    addr,
		svc:     svc,
		pool:    pool,
		reg:     reg,
		metrics: metrics.NewMetrics(reg),
		logger:  logger,
	}
	s.fast = &fasthttp.Server{Handler: s.handle}
	return s
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/status":
		s.handleStatus(ctx)
	case "/metrics":
		s.handleMetrics(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	s.sampleMetrics()

	recv, sent := s.svc.TrafficStats()
	snapshot := StatusSnapshot{
		ServiceState:  s.svc.State().String(),
		Connections:   s.svc.ConnCount(),
		Drained:       s.svc.IsDrained(),
		ExecutorStats: s.pool.AllStats(),
		BytesReceived: recv,
		BytesSent:     sent,
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func (s *Server) handleMetrics(ctx *fasthttp.RequestCtx) {
	s.sampleMetrics()
	handler := promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})
	fasthttpadaptor.NewFastHTTPHandler(handler)(ctx)
}

// sampleMetrics pushes the latest executor stats into the Prometheus
// gauges just before /status or /metrics is served, instead of running a
// background ticker -- this surface has no other consumer of freshness
// between requests.
func (s *Server) sampleMetrics() {
	for name, stats := range s.pool.AllStats() {
		s.metrics.ObserveExecutor(name, stats)
	}
}

// ListenAndServe blocks serving the admin HTTP surface.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("admin surface listening on %s", s.addr)
	return s.fast.ListenAndServe(s.addr)
}

// Shutdown gracefully stops the HTTP surface.
func (s *Server) Shutdown() error {
	return s.fast.Shutdown()
}
