package middleware

import (
	"net/http"
	"time"

	"github.com/tradon-app/tradon/pkg/logger"
)

// RequestLogMiddleware logs each request with method, path, status and
// elapsed time.
type RequestLogMiddleware struct {
	log *logger.Logger
}

// NewRequestLogMiddleware creates a new request logging middleware
func NewRequestLogMiddleware(log *logger.Logger) *RequestLogMiddleware {
	return &RequestLogMiddleware{log: log}
}

// Handler returns the request logging middleware handler
func (m *RequestLogMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", rec.status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request completed")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
