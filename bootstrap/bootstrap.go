// Package bootstrap builds a ready-to-run address server from the configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
	"github.com/prior-it/cepcache/addresses"
	"github.com/prior-it/cepcache/api"
	"github.com/prior-it/cepcache/config"
	"github.com/prior-it/cepcache/postgres"
	"github.com/prior-it/cepcache/server"
	"github.com/prior-it/cepcache/viacep"
)

// Logger creates the application logger from the configuration and sets it as the slog default.
func Logger(cfg *config.Config) *slog.Logger {
	var logger *slog.Logger
	switch cfg.Log.Format {
	case config.LogFormatPlaintext:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      cfg.Log.Level.ToSlog(),
			AddSource:  cfg.Log.Verbose && cfg.App.Debug,
			TimeFormat: time.TimeOnly,
		}))
	default:
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     cfg.Log.Level.ToSlog(),
			AddSource: cfg.Log.Verbose && cfg.App.Debug,
		}))
	}
	slog.SetDefault(logger)
	return logger
}

// Database connects to the configured database, creates its schema and runs all pending migrations.
func Database(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	opts := []postgres.Option{postgres.WithSchema(cfg.Database.Schema)}
	if cfg.Database.MaxConns > 0 {
		opts = append(opts, postgres.WithMaxConns(cfg.Database.MaxConns))
	}
	db, err := postgres.NewDB(ctx, cfg.Database.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not initialize database: %w", err)
	}
	if err := db.CreateSchema(ctx, cfg.Database.Schema); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Server creates the address server with all default middleware and routes attached.
// The returned server owns the database connection and releases it on shutdown.
func Server(ctx context.Context, cfg *config.Config) (*server.Server[*api.State], error) {
	if cfg == nil {
		panic("You need to supply a config.Config value to bootstrap a new server")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := Logger(cfg)

	if cfg.Sentry.Enabled {
		initSentry(logger, cfg)
	}

	db, err := Database(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := viacep.NewClient(viacep.Config{
		URL:     cfg.Resolver.URL,
		Timeout: cfg.Resolver.TimeoutDuration(),
		MissTTL: cfg.Resolver.MissTTLDuration(),
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	service := addresses.NewService(
		postgres.NewAddressStore(db),
		client,
		addresses.WithReturnExisting(cfg.Cache.ReturnExisting),
	)
	state := api.NewState(service, client.Close, db.Close)

	s := api.NewServer(state, cfg).WithLogger(logger)
	s.AttachDefaultMiddleware()

	if cfg.Sentry.Enabled {
		sentryHandler := sentryhttp.New(sentryhttp.Options{
			Repanic:         true,
			WaitForDelivery: true,
			Timeout:         5 * time.Second, //nolint:mnd
		})
		s.UseStd(sentryHandler.Handle)
	}

	if cfg.App.Debug {
		s.UseStd(middleware.NoCache)
		s.UseStd(func(next http.Handler) http.Handler {
			return server.Debug(cfg.Log.Verbose, next)
		})
	}

	api.Routes(s)

	return s, nil
}

func initSentry(logger *slog.Logger, cfg *config.Config) {
	logger.Debug("Trying to initialise Sentry")
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Debug:            cfg.App.Debug,
		AttachStacktrace: true,
		SampleRate:       cfg.Sentry.SampleRate,
		EnableTracing:    cfg.Sentry.TracesRate > 0,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			if ctx.Span.Name == "GET /ping" {
				return 0.0
			}
			return cfg.Sentry.TracesRate
		}),
		ServerName:  cfg.App.Name,
		Release:     cfg.App.Version,
		Environment: string(cfg.App.Env),
	}); err != nil {
		logger.Error("Sentry initialization failed", "error", err)
	} else {
		logger.Debug("Sentry initialised")
	}
}
