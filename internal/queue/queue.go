// Package queue provides durable, at-least-once delivery of OCR work items.
// Job ids are derived from manuscript identity, so enqueueing is idempotent
// per manuscript: there is at most one logical job slot per manuscript, which
// replaces a distributed lock for "one in-flight job per manuscript".
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fumikura/novelmatch/constants"
)

// Job is the queue's unit of work, keyed 1:1 with a manuscript.
type Job struct {
	ID              string
	ManuscriptID    uuid.UUID
	StoragePath     string
	Language        string
	OrientationHint constants.Orientation
}

// JobID derives the deterministic job id for a manuscript.
func JobID(manuscriptID uuid.UUID) string {
	return "ocr-" + manuscriptID.String()
}

// JobStatus is a point-in-time view of one job row. Attempts counts queue
// deliveries and is advisory; the manuscript's retry counter is what decides
// giving up.
type JobStatus struct {
	State      constants.JobState
	Attempts   int
	LastError  string
	EnqueuedAt time.Time
	UpdatedAt  time.Time
	RunAt      time.Time
}

// Metrics are aggregate counts per job state.
type Metrics struct {
	Waiting   int64
	Active    int64
	Delayed   int64
	Completed int64
	Failed    int64
}

// Queue is the producer-side contract.
type Queue interface {
	// Enqueue creates or resets the manuscript's job slot and returns its id.
	Enqueue(ctx context.Context, job Job) (string, error)
	Status(ctx context.Context, jobID string) (*JobStatus, error)
	// Retry puts a failed job back into the waiting state.
	Retry(ctx context.Context, jobID string) error
	// Remove cancels a job that has not been claimed; an active job runs to
	// completion.
	Remove(ctx context.Context, jobID string) error
	Metrics(ctx context.Context) (*Metrics, error)
}

// Consumer is the worker-side contract.
type Consumer interface {
	// Claim atomically takes the oldest runnable job, or returns nil when
	// none is due.
	Claim(ctx context.Context) (*Job, error)
	// Complete marks the job done.
	Complete(ctx context.Context, jobID string) error
	// Fail records the error; with requeue the job is redelivered after a
	// backoff delay, otherwise it lands in the failed state.
	Fail(ctx context.Context, jobID string, errMsg string, requeue bool) error
}

// Backoff returns the redelivery delay before the given attempt, growing
// exponentially from base and capped at max. Attempt counting starts at 1.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
