// Package api exposes the address service over HTTP.
package api

import (
	"context"
	"embed"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/prior-it/cepcache/addresses"
	"github.com/prior-it/cepcache/config"
	"github.com/prior-it/cepcache/server"
)

//go:embed locales/*.yaml
var Locales embed.FS

// State holds the dependencies shared by every request.
type State struct {
	Addresses *addresses.Service
	closers   []func()
}

// NewState creates the request state. The closers are called in order when the server shuts down.
func NewState(service *addresses.Service, closers ...func()) *State {
	return &State{Addresses: service, closers: closers}
}

// Close implements server.State.
func (s *State) Close(_ context.Context) {
	for _, closer := range s.closers {
		closer()
	}
	slog.Info("Released server state")
}

// NewServer creates a server that reports errors the way the address API does.
// Attach global middleware to the result before calling [Routes].
func NewServer(state *State, cfg *config.Config) *server.Server[*State] {
	return server.New(state, cfg).
		WithErrorHandler(ErrorHandler).
		WithNotFoundHandler(func(ex *server.Exchange) {
			ex.JSON(http.StatusNotFound, server.Message{
				Message: localize(ex.Context(), keyRouteNotFound),
			})
		}).
		WithI18n(Locales)
}

// Routes registers the address API on the server.
func Routes(srv *server.Server[*State]) {
	srv.Use(server.DetectLanguage[*State])

	srv.Get("/ping", func(ex *server.Exchange, _ *State) error {
		render.PlainText(ex.Writer, ex.Request, "pong")
		return nil
	})

	srv.Route("/address", func(r *server.Server[*State]) {
		r.Get("/", ListAddresses).
			Post("/", CreateAddress).
			Get("/{code}", GetAddress).
			Put("/{code}", UpdateAddress).
			Delete("/{code}", DeleteAddress)
	})
}
