// Package progress streams advisory status updates of long-running scenario generations to observers.
package progress

import (
	"context"
	"log/slog"

	"github.com/myrjola/sheerluck-engine/internal/broker"
	"github.com/myrjola/sheerluck-engine/internal/models"
)

const subscriberBuffer = 16

// Reporter receives progress updates. Implementations must not block.
type Reporter interface {
	Report(update models.ProgressUpdate)
}

// Discard is a Reporter that drops every update.
type Discard struct{}

func (Discard) Report(models.ProgressUpdate) {}

// Tracker publishes updates keyed by progress id through a ChannelBroker.
type Tracker struct {
	broker *broker.ChannelBroker[string, models.ProgressUpdate]
	logger *slog.Logger
}

func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		broker: broker.NewChannelBroker[string, models.ProgressUpdate](subscriberBuffer),
		logger: logger.With(slog.String("source", "progress.Tracker")),
	}
}

// Start runs the broker until ctx is done. It blocks, so call it in a goroutine.
func (t *Tracker) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		t.broker.Stop()
	}()
	t.broker.Start()
}

// Report publishes update under its progress id. Updates without an id are dropped. A complete or error stage ends
// the stream for that id.
func (t *Tracker) Report(update models.ProgressUpdate) {
	if update.ProgressID == "" {
		return
	}
	t.broker.Publish(update.ProgressID, update)
	t.logger.LogAttrs(context.Background(), slog.LevelDebug, "progress",
		slog.String("progress_id", update.ProgressID),
		slog.String("stage", string(update.Stage)),
		slog.Int("percent", update.Percent))
	if update.Stage == models.ProgressStageComplete || update.Stage == models.ProgressStageError {
		t.broker.Finish(update.ProgressID)
	}
}

// Subscribe returns the updates for progressID and a function to stop receiving them.
func (t *Tracker) Subscribe(progressID string) (<-chan models.ProgressUpdate, func()) {
	return t.broker.Subscribe(progressID)
}

// For returns a Reporter that stamps progressID on every update. An empty id yields Discard.
func For(r Reporter, progressID string) Reporter {
	if r == nil || progressID == "" {
		return Discard{}
	}
	return stamped{reporter: r, progressID: progressID}
}

type stamped struct {
	reporter   Reporter
	progressID string
}

func (s stamped) Report(update models.ProgressUpdate) {
	update.ProgressID = s.progressID
	s.reporter.Report(update)
}
