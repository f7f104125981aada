// Package api serves the events REST API.
package api

import (
	"context"
	"net/http"

	"github.com/eventhawk/eventhawk/analytics"
	"github.com/eventhawk/eventhawk/events"
	"github.com/rs/zerolog"
)

const (
	Title   = "EventHawk API"
	Version = "1.0.0"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures request handling
type Options struct {
	PageSize    int
	MaxPageSize int
	CORSOrigins []string
}

// Server holds the dependencies of the HTTP handlers
type Server struct {
	events    *events.Service
	analytics *analytics.Analyzer
	pinger    Pinger
	opts      Options
	logger    zerolog.Logger
}

// New creates a Server. pinger may be nil, in which case health checks only
// report that the process is running. Event writes through svc invalidate
// the analyzer's cache.
func New(svc *events.Service, analyzer *analytics.Analyzer, pinger Pinger, opts Options, logger zerolog.Logger) *Server {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	if opts.PageSize <= 0 || opts.PageSize > opts.MaxPageSize {
		opts.PageSize = min(20, opts.MaxPageSize)
	}
	if analyzer != nil {
		svc.OnChange(analyzer.Invalidate)
	}
	return &Server{
		events:    svc,
		analytics: analyzer,
		pinger:    pinger,
		opts:      opts,
		logger:    logger,
	}
}

// Handler returns the HTTP handler for all routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	mux.HandleFunc("GET /api/events/status/{status}", s.handleEventsByStatus)
	mux.HandleFunc("GET /api/events/tag/{tag}", s.handleEventsByTag)
	mux.HandleFunc("GET /api/events/stats/counts", s.handleEventCounts)

	mux.HandleFunc("GET /api/events/analytics/bar-features", s.handleBarFeatures)
	mux.HandleFunc("GET /api/events/analytics/bar-data", s.handleBarData)
	mux.HandleFunc("GET /api/events/analytics/timeseries", s.handleTimeSeries)
	mux.HandleFunc("POST /api/events/analytics/cache/clear", s.handleClearCache)
	mux.HandleFunc("GET /api/events/analytics/cache/status", s.handleCacheStatus)

	var handler http.Handler = mux
	handler = s.cors(handler)
	handler = s.accessLog(handler)
	handler = s.requestID(handler)
	return handler
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": Title,
		"version": Version,
		"health":  "/api/health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "API is running"})
}
