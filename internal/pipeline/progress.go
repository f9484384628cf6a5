package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ikbir-singh-unisys/DRM-Worker/internal/notify"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

// Progress checkpoints, in order.
const (
	ProgressFetching   = 10
	ProgressFetched    = 30
	ProgressTranscoded = 60
	ProgressPublished  = 90
	ProgressDone       = 100
)

// tracker forwards progress and status to the sink. Progress never regresses and
// a terminal status is sent at most once.
type tracker struct {
	logger zerolog.Logger
	sink   notify.Sink
	jobID  string

	mu       sync.Mutex
	last     int
	terminal bool
}

func newTracker(logger zerolog.Logger, sink notify.Sink, jobID string) *tracker {
	return &tracker{
		logger: logger,
		sink:   sink,
		jobID:  jobID,
		last:   -1,
	}
}

func (t *tracker) checkpoint(ctx context.Context, percent int, duration *float64) {
	t.mu.Lock()
	if percent < t.last || t.terminal {
		t.mu.Unlock()
		t.logger.Warn().Int("progress", percent).Int("last", t.last).Msg("refusing to report progress")
		return
	}
	t.last = percent
	t.mu.Unlock()

	t.sink.UpdateProgress(ctx, t.jobID, percent, duration)
}

func (t *tracker) status(ctx context.Context, status job.Status) {
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		t.logger.Warn().Str("status", string(status)).Msg("job already reached a terminal status")
		return
	}
	t.terminal = status.Terminal()
	t.mu.Unlock()

	t.sink.UpdateStatus(ctx, t.jobID, status)
}
