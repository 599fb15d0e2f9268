package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/gorilla/schema"
	"github.com/prior-it/cepcache/config"
	"github.com/prior-it/cepcache/core"
)

var queryDecoder = func() *schema.Decoder {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return decoder
}()

// Exchange wraps a single request/response pair and is passed to every handler and middleware.
type Exchange struct {
	Writer  http.ResponseWriter
	Request *http.Request
	Cfg     *config.Config
	logger  *slog.Logger
}

// Message is the body of every error response.
type Message struct {
	Message string `json:"message"`
}

func (ex *Exchange) StatusCode(code int) {
	ex.Writer.WriteHeader(code)
}

// Log the specified error message. args is a list of structured fields to add to the error message.
// The arguments should alternate between a field's name (string) and its value (any).
// This behaves the same as [log/slog.Error]
//
// # Example
//
//	ex.Error("Something went wrong", "error", err, "postal_code", code)
func (ex *Exchange) Error(msg string, args ...any) {
	ex.logger.ErrorContext(ex.Context(), msg, args...)
}

// Log the specified debug message, see [Exchange.Error].
func (ex *Exchange) Debug(msg string, args ...any) {
	ex.logger.DebugContext(ex.Context(), msg, args...)
}

// LogString will add the specified field and its value to the current request's log entry
func (ex *Exchange) LogString(field string, value string) {
	ex.LogField(field, slog.StringValue(value))
}

// LogField will add the specified field and its value to the current request's log entry
//
// # Example
//
//	ex.LogField("results", slog.IntValue(len(addresses)))
func (ex *Exchange) LogField(field string, value slog.Value) {
	httplog.LogEntrySetField(ex.Context(), field, value)
}

// Context returns the request's context.
func (ex *Exchange) Context() context.Context {
	return ex.Request.Context()
}

// Path returns the full path of the request.
func (ex *Exchange) Path() string {
	return ex.Request.URL.Path
}

// GetPath returns the value for the named path wildcard in the router pattern
// that matched the request.
// It returns the empty string if there is no such wildcard in the pattern.
//
// E.g.: A route defined as `/address/{code}` can call `GetPath("code")`.
func (ex *Exchange) GetPath(key string) string {
	return chi.URLParam(ex.Request, key)
}

// HasQuery reports whether the request url sets the given query parameter, even to an empty value.
func (ex *Exchange) HasQuery(param string) bool {
	return ex.Request.URL.Query().Has(param)
}

// ParseQuery decodes the query string into a struct using `schema` tags.
// Decoding failures are reported as core.ErrInvalidInput.
func (ex *Exchange) ParseQuery(v any) error {
	if err := queryDecoder.Decode(v, ex.Request.URL.Query()); err != nil {
		return errors.Join(core.ErrInvalidInput, fmt.Errorf("cannot parse query: %w", err))
	}
	return nil
}

// ParseBody decodes the JSON request body into v.
// Decoding failures are reported as core.ErrInvalidInput.
func (ex *Exchange) ParseBody(v any) error {
	if err := render.DecodeJSON(ex.Request.Body, v); err != nil {
		return errors.Join(core.ErrInvalidInput, fmt.Errorf("cannot parse body: %w", err))
	}
	return nil
}

// GetHeader returns the first value associated with the given header in the request.
func (ex *Exchange) GetHeader(header string) string {
	return ex.Request.Header.Get(header)
}

// JSON writes v as the JSON response body with the specified status code.
func (ex *Exchange) JSON(status int, v any) {
	render.Status(ex.Request, status)
	render.JSON(ex.Writer, ex.Request, v)
}

// NoContent finishes the response with a 204 status and no body.
func (ex *Exchange) NoContent() {
	render.NoContent(ex.Writer, ex.Request)
}
