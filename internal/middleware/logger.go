// Package middleware provides reusable HTTP middleware for the API server.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestObserver receives one observation per served request.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, d time.Duration)
}

// wrappedWriter captures the status code written by downstream handlers.
type wrappedWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *wrappedWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logger attaches a request-scoped zerolog logger to the context, then logs
// method, path, status code, and duration for every request. Requests are
// also reported to obs when it is non-nil.
//
// It expects chi's RequestID middleware to run first.
func Logger(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger := log.With().
				Str("request_id", chiMiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_ip", r.RemoteAddr).
				Logger()
			r = r.WithContext(logger.WithContext(r.Context()))

			ww := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)
			duration := time.Since(start)

			if obs != nil {
				obs.ObserveRequest(routePattern(r), r.Method, ww.statusCode, duration)
			}

			var ev *zerolog.Event
			switch {
			case ww.statusCode >= 500:
				ev = logger.Error()
			case ww.statusCode >= 400:
				ev = logger.Warn()
			default:
				ev = logger.Info()
			}
			ev.Int("status", ww.statusCode).Dur("duration", duration).Msg("http request served")
		})
	}
}

// routePattern returns the matched chi pattern so that path parameters do
// not explode metric cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
