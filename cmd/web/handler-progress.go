package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/errors"
)

const keepaliveInterval = 15 * time.Second

// streamProgress streams the updates of one scenario generation as server-sent events. The stream ends after the
// complete or error stage.
func (app *application) streamProgress(w http.ResponseWriter, r *http.Request) {
	progressID := r.PathValue("progressID")
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		app.serverError(w, r, errors.Wrap(err, "flush stream headers"))
		return
	}
	// The stream lives as long as the generation, well beyond the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	updates, unsubscribe := app.progress.Subscribe(progressID)
	defer unsubscribe()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(update)
			if err != nil {
				app.logger.LogAttrs(ctx, slog.LevelError, "marshal progress update", errors.SlogError(err))
				return
			}
			if _, err = fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
