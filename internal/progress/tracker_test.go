package progress_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/myrjola/sheerluck-engine/internal/progress"
	"github.com/myrjola/sheerluck-engine/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	tracker := progress.NewTracker(testhelpers.NewLogger(io.Discard))
	go tracker.Start(ctx)

	updates, unsubscribe := tracker.Subscribe("p1")
	t.Cleanup(unsubscribe)

	reporter := progress.For(tracker, "p1")
	reporter.Report(models.ProgressUpdate{Stage: models.ProgressStageStarted, Percent: 0, Message: "starting"})
	reporter.Report(models.ProgressUpdate{Stage: models.ProgressStageComplete, Percent: 100, Message: "done"})
	// Other ids and unstamped updates do not show up.
	progress.For(tracker, "p2").Report(models.ProgressUpdate{Stage: models.ProgressStageStarted})
	tracker.Report(models.ProgressUpdate{Stage: models.ProgressStageStarted})

	var received []models.ProgressUpdate
	timeout := time.After(time.Second)
	for done := false; !done; {
		select {
		case update, ok := <-updates:
			if !ok {
				done = true
				break
			}
			received = append(received, update)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}

	require.Len(t, received, 2)
	require.Equal(t, "p1", received[0].ProgressID)
	require.Equal(t, models.ProgressStageStarted, received[0].Stage)
	require.Equal(t, models.ProgressStageComplete, received[1].Stage)
	require.Equal(t, 100, received[1].Percent)
}

func TestFor_withoutID(t *testing.T) {
	require.Equal(t, progress.Discard{}, progress.For(nil, "p"))
	require.Equal(t, progress.Discard{}, progress.For(progress.Discard{}, ""))
}
