package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	errx "github.com/askaquestion-genai/server/internal/core/error"
	logx "github.com/askaquestion-genai/server/pkg/logger"
	"github.com/askaquestion-genai/server/pkg/metrics"
)

// maxBodyBytes caps request bodies; a schema plus one utterance is small.
const maxBodyBytes = 1 << 20

// RouterConfig configures the HTTP router.
type RouterConfig struct {
	// RequestTimeout bounds each request, including model calls. Zero disables it.
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP handler serving turns, transcripts, health and metrics.
func NewRouter(svc *Service, m *metrics.Metrics, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Order: request id -> real ip -> logging -> metrics -> recoverer -> timeout
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware(m))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(deadlineMiddleware(cfg.RequestTimeout))
	}

	turn := turnHandler(svc)
	// Root path keeps parity with the lambda endpoint.
	r.Post("/", turn)
	r.Post("/v1/turns", turn)

	r.Route("/v1/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/turns", func(w http.ResponseWriter, r *http.Request) {
			status, payload := svc.HandleTranscript(r.Context(), chi.URLParam(r, "sessionID"))
			writeJSON(w, status, payload)
		})
		r.Delete("/turns", func(w http.ResponseWriter, r *http.Request) {
			status, payload := svc.HandleClearTranscript(r.Context(), chi.URLParam(r, "sessionID"))
			writeJSON(w, status, payload)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	return r
}

func turnHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			status, payload := errorPayload(errx.Validation("body too large or unreadable"))
			writeJSON(w, status, payload)
			return
		}
		status, payload := svc.HandleTurn(r.Context(), body)
		writeJSON(w, status, payload)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(encode(payload))
}

// ================ Middleware ================

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		logx.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Int("size", wrapped.size).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)
			m.ObserveHTTPRequest(r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
		})
	}
}

// deadlineMiddleware only bounds the request context. A model call cut short by
// the deadline degrades the turn, which still gets its normal response.
func deadlineMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// routePattern returns the matched chi pattern so metrics stay low-cardinality.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}
