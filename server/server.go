package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prior-it/cepcache/config"
)

type (
	ErrorHandler    func(ex *Exchange, err error)
	NotFoundHandler func(ex *Exchange)
)

type State interface {
	Close(ctx context.Context)
}

type Server[state State] struct {
	mux          *chi.Mux
	state        state
	logger       *slog.Logger
	errorHandler ErrorHandler
	cfg          *config.Config
}

type (
	Handler[state any]    func(ex *Exchange, state state) error
	Middleware[state any] func(ex *Exchange, state state) (context.Context, error)
)

// New creates a new server with the specified state object and configuration.
func New[state State](s state, cfg *config.Config) *Server[state] {
	server := &Server[state]{
		mux:          chi.NewMux(),
		state:        s,
		logger:       slog.Default(),
		errorHandler: DefaultErrorHandler,
		cfg:          cfg,
	}

	// Attach default not found handler
	server.WithNotFoundHandler(
		func(ex *Exchange) {
			ex.JSON(http.StatusNotFound, Message{
				Message: fmt.Sprintf("Route %q not found", ex.Path()),
			})
		},
	)

	return server
}

func (server *Server[state]) WithErrorHandler(errorHandler ErrorHandler) *Server[state] {
	server.errorHandler = errorHandler
	return server
}

func (server *Server[state]) WithNotFoundHandler(notFoundHandler NotFoundHandler) *Server[state] {
	server.mux.NotFound(server.handle(func(ex *Exchange, _ state) error {
		notFoundHandler(ex)
		return nil
	}))
	return server
}

func (server *Server[state]) WithLogger(logger *slog.Logger) *Server[state] {
	server.logger = logger
	return server
}

func (server *Server[state]) NewExchange(w http.ResponseWriter, r *http.Request) *Exchange {
	return &Exchange{
		Writer:  w,
		Request: r,
		logger:  server.logger,
		Cfg:     server.cfg,
	}
}

func (server *Server[state]) handle(handler Handler[state]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ex := server.NewExchange(w, r)
		err := handler(ex, server.state)
		if err != nil {
			server.errorHandler(ex, err)
		}
		_ = r.Body.Close()
	}
}

// Utility function that converts server middleware to a http handler
func (server *Server[state]) HandlerMiddleware(
	middleware Middleware[state],
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ex := server.NewExchange(w, r)
			ctx, err := middleware(ex, server.state)
			if err != nil {
				server.errorHandler(ex, err)
			} else {
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

func (server *Server[state]) AttachDefaultMiddleware() {
	server.UseStd(
		middleware.Recoverer,
		middleware.RealIP,
		middleware.RequestID,
		HTTPLogger(server.cfg),
		middleware.Timeout(
			time.Duration(server.cfg.App.RequestTimeout)*time.Second,
		),
	)
}

// Start runs the server until the context is cancelled or the process receives SIGINT or SIGTERM.
// If no listener is provided, a new TCP listener will be created on the configured host and port.
func (server *Server[state]) Start(ctx context.Context, listener net.Listener) error {
	// Handle OS signals to cancel the context
	ctxServer, stopSignal := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignal()

	httpServer := &http.Server{
		Addr:              server.cfg.Address(),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd
	}

	errorCh := make(chan error, 1)
	// Run the actual server
	go func() {
		var err error
		if listener != nil {
			slog.Info("Starting server", "host", listener.Addr().String())
			err = httpServer.Serve(listener)
		} else {
			slog.Info("Starting server", "host", httpServer.Addr)
			err = httpServer.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorCh <- err
		}
		close(errorCh)
	}()

	var errServer error
	select {
	case err := <-errorCh:
		errServer = err
	case <-ctxServer.Done():
		slog.Info("Server interrupt received")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(
		context.WithoutCancel(ctx),
		time.Duration(server.cfg.App.ShutdownTimeout)*time.Second,
	)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		slog.Error("Could not shut down the http server gracefully", "error", err)
	}
	server.Shutdown(ctxShutdown)

	return errServer
}

// Shutdown will gracefully release all server resources. You generally don't need to call this manually.
func (server *Server[state]) Shutdown(ctx context.Context) {
	sentryTimeout := max(0, time.Duration(server.cfg.App.ShutdownTimeout-1))
	sentry.Flush(sentryTimeout * time.Second)
	server.state.Close(ctx)
}

// ServeHTTP implements [net/http.Handler].
func (server *Server[state]) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	server.mux.ServeHTTP(writer, request)
}

// UseStd appends a stdlib middleware handler to the middleware stack.
//
// The middleware stack for any server will execute before searching for a matching
// route to a specific handler, which provides opportunity to respond early,
// change the course of the request execution, or set request-scoped values for
// the next Handler.
func (server *Server[state]) UseStd(middlewares ...func(http.Handler) http.Handler) *Server[state] {
	server.mux.Use(middlewares...)
	return server
}

// Use appends a server middleware handler to the middleware stack.
func (server *Server[state]) Use(
	middlewares ...Middleware[state],
) *Server[state] {
	for _, mi := range middlewares {
		server.mux.Use(server.HandlerMiddleware(mi))
	}
	return server
}

// Route mounts a sub-router along the `pattern` and calls fn to register its routes.
// Middleware attached inside fn only applies to that sub-router.
func (server *Server[state]) Route(pattern string, fn func(srv *Server[state])) *Server[state] {
	srv := *server
	srv.mux = chi.NewMux()
	fn(&srv)
	server.mux.Mount(pattern, srv.mux)
	return server
}

// Get adds the route `pattern` that matches a GET http method to execute the `handlerFn` HandlerFunc.
func (server *Server[state]) Get(
	pattern string,
	handlerFn func(ex *Exchange, state state) error,
) *Server[state] {
	server.mux.Get(pattern, server.handle(handlerFn))
	return server
}

// Post adds the route `pattern` that matches a POST http method to execute the `handlerFn` HandlerFunc.
func (server *Server[state]) Post(
	pattern string,
	handlerFn func(ex *Exchange, state state) error,
) *Server[state] {
	server.mux.Post(pattern, server.handle(handlerFn))
	return server
}

// Put adds the route `pattern` that matches a PUT http method to execute the `handlerFn` HandlerFunc.
func (server *Server[state]) Put(
	pattern string,
	handlerFn func(ex *Exchange, state state) error,
) *Server[state] {
	server.mux.Put(pattern, server.handle(handlerFn))
	return server
}

// Delete adds the route `pattern` that matches a DELETE http method to execute the `handlerFn` HandlerFunc.
func (server *Server[state]) Delete(
	pattern string,
	handlerFn func(ex *Exchange, state state) error,
) *Server[state] {
	server.mux.Delete(pattern, server.handle(handlerFn))
	return server
}
