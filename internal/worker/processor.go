// Package worker runs OCR jobs: a bounded pool claims work from the queue and
// a processor drives each job through fetch, extraction, and status writes.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fumikura/novelmatch/internal/entity"
	"github.com/fumikura/novelmatch/internal/extract"
	"github.com/fumikura/novelmatch/internal/pdfpage"
	"github.com/fumikura/novelmatch/internal/queue"
	"github.com/fumikura/novelmatch/internal/storage"
)

// Lifecycle is the slice of the manuscript service a worker needs.
type Lifecycle interface {
	BeginProcessing(ctx context.Context, id uuid.UUID) error
	CompleteExtraction(ctx context.Context, id uuid.UUID, fp *entity.Fingerprint) error
	HandleExtractionFailure(ctx context.Context, id uuid.UUID, cause error) (bool, error)
}

// Processor executes one claimed job end to end.
type Processor struct {
	svc           Lifecycle
	store         storage.ObjectStore
	engine        *extract.Engine
	detectTimeout time.Duration
	logger        *slog.Logger

	pageImage func(pdf []byte) ([]byte, error)
}

func NewProcessor(
	svc Lifecycle,
	store storage.ObjectStore,
	engine *extract.Engine,
	detectTimeout time.Duration,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if detectTimeout <= 0 {
		detectTimeout = 60 * time.Second
	}
	return &Processor{
		svc:           svc,
		store:         store,
		engine:        engine,
		detectTimeout: detectTimeout,
		logger:        logger,
		pageImage:     pdfpage.FirstPageImage,
	}
}

// Process runs the extraction for one job. The PROCESSING write happens before
// any terminal write; on error the returned requeue flag tells the pool
// whether the queue should redeliver.
func (p *Processor) Process(ctx context.Context, job *queue.Job) (bool, error) {
	start := time.Now()
	p.logger.Info("job started", "job_id", job.ID, "manuscript_id", job.ManuscriptID)

	if err := p.svc.BeginProcessing(ctx, job.ManuscriptID); err != nil {
		return p.fail(ctx, job, err)
	}

	pdf, err := p.store.Get(ctx, job.StoragePath)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	image, err := p.pageImage(pdf)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	detectCtx, cancel := context.WithTimeout(ctx, p.detectTimeout)
	fp, err := p.engine.Extract(detectCtx, image, job.OrientationHint)
	cancel()
	if err != nil {
		return p.fail(ctx, job, err)
	}

	if err := p.svc.CompleteExtraction(ctx, job.ManuscriptID, fp); err != nil {
		return p.fail(ctx, job, err)
	}

	p.logger.Info("job finished",
		"job_id", job.ID,
		"manuscript_id", job.ManuscriptID,
		"confidence", fp.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return false, nil
}

// fail records the failed attempt on the manuscript and propagates the
// original cause so the pool can write it to the job row. When the status
// write itself fails, redelivery is the safe answer.
func (p *Processor) fail(ctx context.Context, job *queue.Job, cause error) (bool, error) {
	requeue, err := p.svc.HandleExtractionFailure(ctx, job.ManuscriptID, cause)
	if err != nil {
		p.logger.Error("failure bookkeeping failed",
			"job_id", job.ID, "manuscript_id", job.ManuscriptID, "error", err)
		return true, cause
	}
	return requeue, cause
}
