// Package e2etest runs the web service in-process and drives it over HTTP the way a client would.
package e2etest

import (
	"context"
	"io"
	"log/slog"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/logging"
)

// LogAddrKey is the attribute under which the web service logs its bound listener address, e.g.
// `msg="starting server" addr=127.0.0.1:53117`. StartServer relies on it to learn the port picked for
// SHEERLUCK_ADDR=localhost:0.
const LogAddrKey = "addr"

// healthPath answers 200 once the routes are mounted.
const healthPath = "/api/healthy"

// RunFunc is the shape of the web service's run: it serves until ctx is cancelled.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// Server is a web service started by StartServer.
type Server struct {
	url    string
	client *Client
}

// addrCapturingLogger returns a logger writing to logSink and a channel that receives the first value logged under
// LogAddrKey. Later values are dropped so that logging never blocks the service.
func addrCapturingLogger(logSink io.Writer) (*slog.Logger, <-chan string) {
	addrs := make(chan string, 1)
	capture := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == LogAddrKey {
			select {
			case addrs <- a.Value.String():
			default:
			}
		}
		return a
	}
	handler := slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: capture,
	})
	return slog.New(logging.NewContextHandler(handler)), addrs
}

// StartServer launches run in a goroutine with lookupEnv as its environment and returns once the service answers on
// its health route.
//
// The service must bind to a free port and log the resulting address under LogAddrKey; the returned Server talks to
// that address with a cookie-keeping Client. Service logs go to logSink, usually [io.Discard]. Cancelling ctx shuts
// the service down. If run returns an error before the address shows up, that error is returned.
func StartServer(
	ctx context.Context,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	run RunFunc,
) (*Server, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	logger, addrs := addrCapturingLogger(logSink)

	go func() {
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()

	var addr string
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(context.Cause(ctx), "server stopped before it was ready")
	case addr = <-addrs:
	}

	serverURL := "http://" + addr
	client, err := NewClient(serverURL)
	if err != nil {
		return nil, errors.Wrap(err, "new client", slog.String("url", serverURL))
	}
	if err = client.WaitForReady(ctx, healthPath); err != nil {
		return nil, errors.Wrap(err, "wait for ready", slog.String("url", serverURL))
	}
	return &Server{url: serverURL, client: client}, nil
}

// Client returns the client bound to the server. It keeps the session cookie across calls.
func (s *Server) Client() *Client {
	return s.client
}

func (s *Server) URL() string {
	return s.url
}
