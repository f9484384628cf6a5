package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ikbir-singh-unisys/DRM-Worker/internal/metrics"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/notify"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

var (
	ErrQueueFull  = errors.New("job queue is full")
	ErrPoolClosed = errors.New("worker pool is closed")
)

type JobRunner interface {
	Run(ctx context.Context, desc job.Descriptor) error
}

type PoolConfig struct {
	Workers   int
	QueueSize int
}

func (c PoolConfig) withDefaultValues() PoolConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	return c
}

type queued struct {
	desc job.Descriptor
	// closed once the queued status went out, so processing never overtakes it
	reported chan struct{}
}

// PoolCtx runs accepted jobs on a fixed number of workers. Accepted jobs are never
// cancelled, Shutdown waits for them.
type PoolCtx struct {
	logger zerolog.Logger
	config PoolConfig
	runner JobRunner
	sink   notify.Sink

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	wg     sync.WaitGroup
}

func NewPool(config PoolConfig, runner JobRunner, sink notify.Sink) *PoolCtx {
	config = config.withDefaultValues()
	if sink == nil {
		sink = notify.Noop{}
	}

	p := &PoolCtx{
		logger: log.With().Str("module", "pool").Logger(),
		config: config,
		runner: runner,
		sink:   sink,
		queue:  make(chan queued, config.QueueSize),
	}

	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}

	p.logger.Info().Int("workers", config.Workers).Int("queue", config.QueueSize).Msg("worker pool started")
	return p
}

// Submit enqueues a job without blocking. The queued status is reported in the
// background, always before the job starts.
func (p *PoolCtx) Submit(desc job.Descriptor) error {
	item := queued{desc: desc, reported: make(chan struct{})}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		metrics.JobRejected()
		return ErrPoolClosed
	}

	select {
	case p.queue <- item:
	default:
		p.mu.RUnlock()
		metrics.JobRejected()
		return ErrQueueFull
	}
	p.mu.RUnlock()

	metrics.JobQueued()
	p.logger.Info().Str("job", desc.JobID).Msg("job queued")

	// the caller is acknowledged without waiting on the controller
	go func() {
		p.sink.UpdateStatus(context.Background(), desc.JobID, job.StatusQueued)
		close(item.reported)
	}()

	return nil
}

func (p *PoolCtx) work(id int) {
	defer p.wg.Done()

	logger := p.logger.With().Int("worker", id).Logger()
	for item := range p.queue {
		<-item.reported
		p.run(logger, item.desc)
	}
	logger.Debug().Msg("worker stopped")
}

func (p *PoolCtx) run(logger zerolog.Logger, desc job.Descriptor) {
	metrics.JobStarted()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
			logger.Error().Str("job", desc.JobID).Interface("panic", r).Msg("job panicked")
			p.sink.UpdateStatus(context.Background(), desc.JobID, job.StatusFailed)
		}
		metrics.JobFinished(desc.Mode(), err)
	}()

	// jobs are not cancelled once accepted
	err = p.runner.Run(context.Background(), desc)
	if err != nil {
		logger.Debug().Err(err).Str("job", desc.JobID).Msg("job returned an error")
	}
}

// Shutdown stops intake and waits for queued and running jobs.
func (p *PoolCtx) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info().Msg("worker pool drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}
