package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/prior-it/cepcache/config"
)

// Routes that are polled by health checks and only logged once per quietPeriod.
var (
	quietRoutes = []string{"/ping"}
	quietPeriod = 10 * time.Second
)

// Debug logs every request that passes through h at debug level.
// With dumpRequest set the whole *http.Request is logged instead of its method and path.
func Debug(dumpRequest bool, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if dumpRequest {
			slog.DebugContext(ctx, "Incoming request", "request", r)
		} else {
			slog.DebugContext(
				ctx,
				"Incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(ctx),
			)
		}
		h.ServeHTTP(w, r)
	})
}

// HTTPLogger writes one log line per request. Handlers add fields to that line with
// [Exchange.LogField], e.g. the postal code being looked up.
func HTTPLogger(cfg *config.Config) func(http.Handler) http.Handler {
	verbose := cfg.Log.Verbose
	opts := httplog.Options{
		LogLevel:        cfg.Log.Level.ToSlog(),
		JSON:            cfg.Log.Format == config.LogFormatJSON,
		Concise:         !verbose,
		RequestHeaders:  verbose,
		ResponseHeaders: verbose,
		QuietDownRoutes: quietRoutes,
		QuietDownPeriod: quietPeriod,
		Tags: map[string]string{
			"version": cfg.App.Version,
			"env":     string(cfg.App.Env),
		},
	}
	if verbose || cfg.App.Debug {
		opts.SourceFieldName = "source"
	}
	return httplog.RequestLogger(httplog.NewLogger(cfg.App.Name, opts))
}
