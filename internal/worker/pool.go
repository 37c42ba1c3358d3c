package worker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/queue"
)

// Pool claims and processes jobs with bounded concurrency. Every claim must
// pass the token-bucket rate limiter first; the limiter caps job starts per
// window independently of how many workers are idle.
type Pool struct {
	consumer     queue.Consumer
	processor    *Processor
	logger       *slog.Logger
	concurrency  int
	pollInterval time.Duration
	limiter      *rate.Limiter
}

func NewPool(consumer queue.Consumer, processor *Processor, cfg common.QueueConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	perWindow := cfg.RatePerWindow
	window := cfg.RateWindow
	if perWindow < 1 {
		perWindow = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	limiter := rate.NewLimiter(rate.Limit(float64(perWindow)/window.Seconds()), perWindow)

	return &Pool{
		consumer:     consumer,
		processor:    processor,
		logger:       logger,
		concurrency:  concurrency,
		pollInterval: poll,
		limiter:      limiter,
	}
}

// Run blocks until ctx is cancelled, then drains: workers finish their current
// job before returning. The error is ctx's cancellation cause.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	p.logger.Info("worker pool starting", "concurrency", p.concurrency)

	for i := 0; i < p.concurrency; i++ {
		worker := i
		g.Go(func() error {
			return p.runWorker(ctx, worker)
		})
	}

	err := g.Wait()
	p.logger.Info("worker pool stopped")
	return err
}

func (p *Pool) runWorker(ctx context.Context, id int) error {
	log := p.logger.With("worker", id)
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		job, err := p.consumer.Claim(ctx)
		if err != nil {
			log.Error("claim failed", "error", err)
			if sleepErr := sleep(ctx, p.pollInterval); sleepErr != nil {
				return ctx.Err()
			}
			continue
		}
		if job == nil {
			if err := sleep(ctx, p.pollInterval); err != nil {
				return ctx.Err()
			}
			continue
		}

		p.handle(ctx, log, job)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (p *Pool) handle(ctx context.Context, log *slog.Logger, job *queue.Job) {
	// Acks run against a fresh context so a shutdown mid-job still records
	// the outcome.
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	requeue, err := p.processor.Process(ctx, job)
	if err != nil {
		if requeue {
			if failErr := p.consumer.Fail(ackCtx, job.ID, err.Error(), true); failErr != nil {
				log.Error("failed to requeue job", "job_id", job.ID, "error", failErr)
			}
			return
		}
		if failErr := p.consumer.Fail(ackCtx, job.ID, err.Error(), false); failErr != nil {
			log.Error("failed to mark job failed", "job_id", job.ID, "error", failErr)
		}
		return
	}

	if ackErr := p.consumer.Complete(ackCtx, job.ID); ackErr != nil {
		log.Error("failed to complete job", "job_id", job.ID, "error", ackErr)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
