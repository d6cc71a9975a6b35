package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/e2etest"
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/logging"
)

var errSmokeTest = errors.NewSentinel("smoke test failed")

// testInvestigation plays the quick-start case without talking to anyone, so it never spends backend tokens.
func testInvestigation(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	summary, sessionID, err := client.QuickStart(ctx)
	if err != nil {
		return errors.Wrap(err, "quick-start")
	}
	if len(summary.Personas) < 4 { //nolint:mnd // every case has at least four suspects
		return errors.Wrap(errSmokeTest, "too few personas", slog.Int("personas", len(summary.Personas)))
	}
	verdict, err := client.Accuse(ctx, sessionID, summary.Personas[0].ID)
	if err != nil {
		return errors.Wrap(err, "accuse")
	}
	if verdict.Message == "" {
		return errors.Wrap(errSmokeTest, "empty verdict")
	}
	return nil
}

func main() {
	logger := logging.New(os.Stdout, slog.LevelDebug)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready", errors.SlogError(err))
		os.Exit(1)
	}
	if err = testInvestigation(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing investigation", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
