/*
Package server provides a JSON HTTP server on top of chi.
Handlers take an application-specific state object (used for dependency injection)
and an [Exchange] which wraps the request and response with some utility functions.

Basic example:

	type State struct {
		Addresses *addresses.Service
	}

	func (s *State) Close(_ context.Context) {}

	func main() {
		srv := server.New(&State{...}, cfg)
		srv.AttachDefaultMiddleware()
		srv.Get("/address/{code}", GetAddress)
		log.Fatal(srv.Start(context.Background(), nil))
	}

	func GetAddress(ex *server.Exchange, state *State) error {
		address, err := state.Addresses.GetByCode(ex.Context(), ex.GetPath("code"))
		if err != nil {
			return err
		}
		ex.JSON(http.StatusOK, address)
		return nil
	}

Errors returned by handlers and middleware are passed to the configured [ErrorHandler];
[DefaultErrorHandler] maps the core errors to their status codes.
*/
package server
