// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/beacon/pkg/metrics"
)

// Body cap default; a telemetry event is a handful of short strings.
const defaultMaxBodyBytes = 1024

// Content types beacons are allowed to send. navigator.sendBeacon posts
// text/plain, regular fetch posts application/json.
var allowedContentTypes = []string{"application/json", "text/plain"}

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Capture the status code for labeling.
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)
	}
}

// ContentTypeMiddleware rejects POST bodies whose Content-Type is missing
// or not an allowed type.
func ContentTypeMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			ct := r.Header.Get("Content-Type")
			if ct == "" {
				writeError(w, http.StatusBadRequest, "bad_content_type", ErrMissingContentType)
				return
			}
			ok := false
			for _, allowed := range allowedContentTypes {
				if strings.Contains(ct, allowed) {
					ok = true
					break
				}
			}
			if !ok {
				writeError(w, http.StatusBadRequest, "bad_content_type", ErrInvalidContentType)
				return
			}
		}
		next.ServeHTTP(w, r)
	}
}

// BodyLimitMiddleware caps the request body. Oversized requests announcing
// their length are refused outright; chunked bodies are cut off by
// MaxBytesReader and fail during decode.
func BodyLimitMiddleware(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", ErrPayloadTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
