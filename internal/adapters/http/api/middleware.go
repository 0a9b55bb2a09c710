package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/connecthub/internal/auth"
	"github.com/okian/connecthub/pkg/metrics"
	"golang.org/x/time/rate"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)
	}
}

// RateLimitMiddleware rejects requests with 429 once limiter runs dry. A nil
// limiter lets everything through.
func RateLimitMiddleware(next http.HandlerFunc, endpoint string, limiter *rate.Limiter) http.HandlerFunc {
	if limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			metrics.RecordRateLimited(endpoint)
			w.Header().Set("Retry-After", "1")
			writeFailure(w, NewKind("api."+endpoint, ErrRateLimited))
			return
		}
		next(w, r)
	}
}

// Authenticator validates bearer tokens.
type Authenticator interface {
	AuthEnabled() bool
	Authenticate(token string) (*auth.Claims, error)
}

// AuthMiddleware requires a valid bearer token on every method except GET and
// HEAD. It is a pass-through while authentication is disabled.
func AuthMiddleware(next http.HandlerFunc, authn Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authn.AuthEnabled() || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next(w, r)
			return
		}

		const op = "api.auth"
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			metrics.RecordAuthFailure("missing_token")
			writeFailure(w, NewKind(op, ErrUnauthorized))
			return
		}
		if _, err := authn.Authenticate(strings.TrimSpace(token)); err != nil {
			metrics.RecordAuthFailure("invalid_token")
			writeFailure(w, WrapKind(op, ErrUnauthorized, err))
			return
		}
		next(w, r)
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
