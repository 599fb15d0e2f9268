package server

import (
	"errors"
	"net/http"

	"github.com/prior-it/cepcache/core"
)

// StatusForError maps core errors to their HTTP status code.
// Unknown errors map to 500.
func StatusForError(err error) int {
	switch {
	// Payload errors wrap validation errors but are caused by the upstream service, not the client.
	case errors.Is(err, core.ErrInvalidPayload):
		return http.StatusInternalServerError
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func DefaultErrorHandler(ex *Exchange, err error) {
	code := StatusForError(err)
	if code >= http.StatusInternalServerError {
		ex.Error("Server error", "error", err)
	} else {
		ex.Debug("Request failed", "error", err, "status", code)
	}
	ex.JSON(code, Message{Message: http.StatusText(code)})
}
