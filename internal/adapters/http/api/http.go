// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/beacon/internal/domain/event"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ingest validates a decoded payload and admits it to the buffer.
	Ingest(ctx context.Context, raw map[string]any) (event.Event, error)

	// Running reports whether the flush scheduler is alive.
	Running() bool
}

// Server wires HTTP routes for the ingestion API.
type Server struct {
	healthHandler *HealthHandler
	eventsHandler *EventsHandler
	maxBodyBytes  int64
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxBodyBytes int64) *Server {
	return &Server{
		healthHandler: NewHealthHandler(deps),
		eventsHandler: NewEventsHandler(deps),
		maxBodyBytes:  maxBodyBytes,
	}
}

// Register attaches all HTTP routes to mux. The ingestion handler is
// mounted at the root as a catch-all so clients may POST to any path;
// ad-blockers keying on a fixed analytics path then have nothing to match.
// The healthcheck stays outside the ingestion middleware chain.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/", MetricsMiddleware(
		ContentTypeMiddleware(BodyLimitMiddleware(s.eventsHandler.HandlePostEvent, s.maxBodyBytes)),
		"events",
	))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
