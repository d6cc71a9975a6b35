// Package pprofserver exposes the runtime profiles on the loopback interface so that they are not open to the world.
package pprofserver

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/errors"
)

// Handle registers the pprof handlers on mux.
func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

// Launch starts a pprof server on the IPv6 loopback address with the given port, e.g. ":6060". It stops when ctx is
// cancelled. Failures are logged and never bring down the caller.
func Launch(ctx context.Context, port string, logger *slog.Logger) {
	mux := http.NewServeMux()
	Handle(mux)
	addr := "[::1]" + port
	srv := &http.Server{ //nolint:exhaustruct // this is better for readability
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		logger.LogAttrs(ctx, slog.LevelInfo, "starting pprof server", slog.String("pprof_addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server stopped", errors.SlogError(err))
		}
	}()
}
