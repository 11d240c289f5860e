// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/beacon/internal/domain/event"
)

// EventsHandler handles event ingestion requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST requests carrying one event JSON object.
// A client always learns synchronously whether its event was accepted for
// buffering; it never learns whether the event was later durably exported.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", ErrPayloadTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, event.Reason(event.ErrMalformedPayload),
			event.ErrMalformedPayload)
		return
	}

	if _, err := h.deps.Ingest(r.Context(), raw); err != nil {
		writeError(w, http.StatusBadRequest, event.Reason(err), err)
		return
	}

	// Empty 2xx; beacons discard the response body anyway.
	w.WriteHeader(http.StatusAccepted)
}
