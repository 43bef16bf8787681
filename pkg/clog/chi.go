package clog

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ChiOption func(*chiConfig)

type chiConfig struct {
	skipPaths []string
}

// WithChiSkipPaths handles requests to the exact paths given without writing
// an access log line. Attributes are still collected for handler logs.
func WithChiSkipPaths(paths ...string) ChiOption {
	return func(cfg *chiConfig) {
		cfg.skipPaths = append(cfg.skipPaths, paths...)
	}
}

// SlogChiMiddleware writes one access log line per request, at a level
// derived from the status, tagged with the chi route pattern when one matched.
func SlogChiMiddleware(opts ...ChiOption) func(http.Handler) http.Handler {
	var cfg chiConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := ContextWithSlog(r.Context())
			AddAttributes(ctx, map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"request_id": middleware.GetReqID(ctx),
			})

			next.ServeHTTP(ww, r.WithContext(ctx))

			if slices.Contains(cfg.skipPaths, r.URL.Path) {
				return
			}
			attrs := map[string]any{
				"status":        ww.Status(),
				"bytes_written": ww.BytesWritten(),
				"duration":      time.Since(start),
			}
			if rc := chi.RouteContext(ctx); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					attrs["route"] = pattern
				}
			}
			AddAttributes(ctx, attrs)
			slog.Log(ctx, HTTPStatusToLevel(ww.Status()).Slog(), http.StatusText(ww.Status()))
		})
	}
}
