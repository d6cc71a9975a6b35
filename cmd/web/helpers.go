package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/investigation"
)

// maxBodyBytes caps request bodies. Chat requests carry the conversation history, so this is generous.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.NewSentinel("malformed request")

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps engine errors to HTTP statuses. The returned message is safe to show to clients.
func statusFor(err error) (int, string) {
	classes := []struct {
		target error
		status int
	}{
		{investigation.ErrUnknownCase, http.StatusNotFound},
		{investigation.ErrUnknownSession, http.StatusNotFound},
		{investigation.ErrUnknownPersona, http.StatusNotFound},
		{investigation.ErrEmptyMessage, http.StatusBadRequest},
		{errBadRequest, http.StatusBadRequest},
		{investigation.ErrSessionAlreadyResolved, http.StatusConflict},
		{investigation.ErrGenerationValidation, http.StatusUnprocessableEntity},
		{investigation.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
	}
	for _, c := range classes {
		if errors.Is(err, c.target) {
			return c.status, c.target.Error()
		}
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// engineError responds to a failed engine call.
func (app *application) engineError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		app.serverError(w, r, err)
		return
	}
	level := slog.LevelDebug
	if status == http.StatusServiceUnavailable {
		level = slog.LevelWarn
	}
	app.logger.LogAttrs(r.Context(), level, http.StatusText(status),
		slog.String("method", r.Method), slog.String("uri", r.URL.RequestURI()), errors.SlogError(err))
	app.writeJSON(w, r, status, errorResponse{Error: msg})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError,
		errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "not found",
		slog.String("method", r.Method), slog.String("uri", r.URL.RequestURI()))
	app.writeJSON(w, r, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "marshal response", errors.SlogError(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// readJSON decodes the request body into dst. An empty body leaves dst untouched.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(errors.Join(errBadRequest, err), "decode request body")
	}
	return nil
}
