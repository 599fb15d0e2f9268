package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/invopop/ctxi18n/i18n"
	"github.com/prior-it/cepcache/core"
	"github.com/prior-it/cepcache/server"
)

const (
	keyNotFound      = "errors.not_found"
	keyConflict      = "errors.conflict"
	keyInvalid       = "errors.invalid"
	keyInternal      = "errors.internal"
	keyRouteNotFound = "errors.route_not_found"
)

// Used when no language bundle is active for the request.
var fallbackMessages = map[string]string{
	keyNotFound:      "Cep não encontrado",
	keyConflict:      "Cep já existe",
	keyInvalid:       "Dados inválidos",
	keyInternal:      "Erro interno",
	keyRouteNotFound: "Rota não encontrada",
}

type errorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func localize(ctx context.Context, key string) string {
	if len(server.Language(ctx)) == 0 {
		return fallbackMessages[key]
	}
	return i18n.T(ctx, key)
}

// ErrorHandler translates service errors into localized JSON responses.
func ErrorHandler(ex *server.Exchange, err error) {
	ctx := ex.Context()
	code := server.StatusForError(err)
	res := errorResponse{}
	switch code {
	case http.StatusNotFound:
		res.Message = localize(ctx, keyNotFound)
	case http.StatusConflict:
		res.Message = localize(ctx, keyConflict)
	case http.StatusUnprocessableEntity:
		res.Message = localize(ctx, keyInvalid)
		res.Detail = validationDetail(err)
	default:
		ex.Error("Server error", "error", err, "path", ex.Path())
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.CaptureException(err)
		}
		res.Message = localize(ctx, keyInternal)
	}
	ex.JSON(code, res)
}

// validationDetail returns the message of the error that was joined with core.ErrInvalidInput.
func validationDetail(err error) string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			if !errors.Is(e, core.ErrInvalidInput) {
				return e.Error()
			}
		}
	}
	return err.Error()
}
