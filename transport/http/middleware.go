package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"
	"github.com/barterloop/matchingengine/infrastructure/logging"
	"github.com/barterloop/matchingengine/infrastructure/metrics"
)

// requestIDHeader carries a per-request correlation id a caller can quote
// back when reporting an issue.
const requestIDHeader = "X-Request-Id"

// responseWriter wraps http.ResponseWriter to capture the status code for
// logging and metrics middleware, mirroring infrastructure/middleware's
// wrapper.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// LoggingMiddleware logs one structured line per request at the logger's
// component scope.
func LoggingMiddleware(log *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()
			w.Header().Set(requestIDHeader, requestID)
			if log == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			log.WithComponent().WithFields(map[string]interface{}{
				"requestId":  requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     wrapped.statusCode,
				"durationMs": time.Since(start).Milliseconds(),
			}).Info("handled request")
		})
	}
}

// RecoveryMiddleware isolates a panicking handler to a single request,
// converting it into an INTERNAL response instead of crashing the process.
func RecoveryMiddleware(log *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if log != nil {
						log.WithComponent().WithField("panic", rec).Error("handler panicked; isolated")
					}
					writeError(w, engineerrors.Internal("internal fault", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsMiddleware records request metrics for each handled request,
// using the route's path template rather than the raw path so cardinality
// stays bounded across owner/tenant ids.
func MetricsMiddleware(serviceName string, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			m.IncrementInFlight()
			defer m.DecrementInFlight()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			status := strconv.Itoa(wrapped.statusCode)
			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}
			m.RecordHTTPRequest(serviceName, r.Method, path, status, duration)
		})
	}
}
