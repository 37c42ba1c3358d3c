package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fumikura/novelmatch/constants"
	"github.com/fumikura/novelmatch/internal/common"
)

// PostgresQueue implements Queue and Consumer on an ocr_jobs table. Claiming
// uses FOR UPDATE SKIP LOCKED so concurrent workers never take the same row,
// and a crashed worker's row is redelivered once its claim expires.
type PostgresQueue struct {
	pool        *pgxpool.Pool
	logger      *slog.Logger
	backoffBase time.Duration
	backoffMax  time.Duration
	// An active row older than this is considered abandoned by a crashed
	// worker and becomes claimable again.
	claimTimeout time.Duration
}

type Option func(*PostgresQueue)

func WithBackoff(base, max time.Duration) Option {
	return func(q *PostgresQueue) {
		if base > 0 {
			q.backoffBase = base
		}
		if max > 0 {
			q.backoffMax = max
		}
	}
}

func WithClaimTimeout(d time.Duration) Option {
	return func(q *PostgresQueue) {
		if d > 0 {
			q.claimTimeout = d
		}
	}
}

func NewPostgresQueue(pool *pgxpool.Pool, logger *slog.Logger, opts ...Option) *PostgresQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &PostgresQueue{
		pool:         pool,
		logger:       logger,
		backoffBase:  5 * time.Second,
		backoffMax:   10 * time.Minute,
		claimTimeout: 15 * time.Minute,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

func (q *PostgresQueue) Enqueue(ctx context.Context, job Job) (string, error) {
	if job.ID == "" {
		job.ID = JobID(job.ManuscriptID)
	}
	_, err := q.pool.Exec(ctx, `
		INSERT INTO ocr_jobs (id, manuscript_id, storage_path, language, orientation_hint,
		                      state, attempts, run_at, enqueued_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'waiting', 0, now(), now(), now())
		ON CONFLICT (id) DO UPDATE SET
			storage_path     = EXCLUDED.storage_path,
			language         = EXCLUDED.language,
			orientation_hint = EXCLUDED.orientation_hint,
			state            = 'waiting',
			attempts         = 0,
			last_error       = NULL,
			run_at           = now(),
			updated_at       = now()`,
		job.ID, job.ManuscriptID, job.StoragePath, job.Language, string(job.OrientationHint))
	if err != nil {
		q.logger.Error("enqueue failed", "job_id", job.ID, "error", err)
		return "", common.NewAppError(common.CodeQueueError, "failed to enqueue job", err)
	}
	q.logger.Info("job enqueued", "job_id", job.ID, "manuscript_id", job.ManuscriptID)
	return job.ID, nil
}

func (q *PostgresQueue) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	var (
		st        JobStatus
		state     string
		lastError *string
	)
	err := q.pool.QueryRow(ctx, `
		SELECT state, attempts, last_error, enqueued_at, updated_at, run_at
		FROM ocr_jobs WHERE id = $1`, jobID).
		Scan(&state, &st.Attempts, &lastError, &st.EnqueuedAt, &st.UpdatedAt, &st.RunAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError(common.CodeNotFound, "job not found", err)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeQueueError, "failed to read job status", err)
	}
	st.State = constants.JobState(state)
	if lastError != nil {
		st.LastError = *lastError
	}
	return &st, nil
}

func (q *PostgresQueue) Retry(ctx context.Context, jobID string) error {
	tag, err := q.pool.Exec(ctx, `
		UPDATE ocr_jobs
		SET state = 'waiting', run_at = now(), updated_at = now()
		WHERE id = $1 AND state IN ('failed', 'delayed')`, jobID)
	if err != nil {
		return common.NewAppError(common.CodeQueueError, "failed to retry job", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError(common.CodeNotFound, "no retryable job with this id", nil)
	}
	return nil
}

func (q *PostgresQueue) Remove(ctx context.Context, jobID string) error {
	_, err := q.pool.Exec(ctx, `
		DELETE FROM ocr_jobs WHERE id = $1 AND state <> 'active'`, jobID)
	if err != nil {
		return common.NewAppError(common.CodeQueueError, "failed to remove job", err)
	}
	return nil
}

func (q *PostgresQueue) Metrics(ctx context.Context) (*Metrics, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT state, count(*) FROM ocr_jobs GROUP BY state`)
	if err != nil {
		return nil, common.NewAppError(common.CodeQueueError, "failed to read metrics", err)
	}
	defer rows.Close()

	var m Metrics
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, common.NewAppError(common.CodeQueueError, "failed to scan metrics row", err)
		}
		switch constants.JobState(state) {
		case constants.JobStateWaiting:
			m.Waiting = count
		case constants.JobStateActive:
			m.Active = count
		case constants.JobStateDelayed:
			m.Delayed = count
		case constants.JobStateCompleted:
			m.Completed = count
		case constants.JobStateFailed:
			m.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeQueueError, "failed to read metrics", err)
	}
	return &m, nil
}

// Claim takes the oldest runnable job. Runnable means waiting or delayed with
// run_at due, or active but abandoned past the claim timeout (at-least-once
// delivery after a worker crash).
func (q *PostgresQueue) Claim(ctx context.Context) (*Job, error) {
	var (
		job   Job
		hint  string
		stale = time.Now().Add(-q.claimTimeout)
	)
	err := q.pool.QueryRow(ctx, `
		UPDATE ocr_jobs SET state = 'active', attempts = attempts + 1, updated_at = now()
		WHERE id = (
			SELECT id FROM ocr_jobs
			WHERE (state IN ('waiting', 'delayed') AND run_at <= now())
			   OR (state = 'active' AND updated_at < $1)
			ORDER BY run_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, manuscript_id, storage_path, language, orientation_hint`, stale).
		Scan(&job.ID, &job.ManuscriptID, &job.StoragePath, &job.Language, &hint)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeQueueError, "failed to claim job", err)
	}
	job.OrientationHint = constants.Orientation(hint)
	return &job, nil
}

func (q *PostgresQueue) Complete(ctx context.Context, jobID string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE ocr_jobs SET state = 'completed', updated_at = now()
		WHERE id = $1`, jobID)
	if err != nil {
		return common.NewAppError(common.CodeQueueError, "failed to complete job", err)
	}
	return nil
}

func (q *PostgresQueue) Fail(ctx context.Context, jobID string, errMsg string, requeue bool) error {
	if requeue {
		var attempts int
		err := q.pool.QueryRow(ctx, `
			UPDATE ocr_jobs
			SET state = 'delayed', last_error = $2, updated_at = now(),
			    run_at = now() + ($3 * interval '1 millisecond')
			WHERE id = $1
			RETURNING attempts`,
			jobID, errMsg, q.backoffForNext(ctx, jobID).Milliseconds()).Scan(&attempts)
		if err != nil {
			return common.NewAppError(common.CodeQueueError, "failed to delay job", err)
		}
		q.logger.Warn("job delayed for retry", "job_id", jobID, "attempts", attempts, "error", errMsg)
		return nil
	}

	_, err := q.pool.Exec(ctx, `
		UPDATE ocr_jobs SET state = 'failed', last_error = $2, updated_at = now()
		WHERE id = $1`, jobID, errMsg)
	if err != nil {
		return common.NewAppError(common.CodeQueueError, "failed to mark job failed", err)
	}
	q.logger.Error("job failed permanently", "job_id", jobID, "error", errMsg)
	return nil
}

func (q *PostgresQueue) backoffForNext(ctx context.Context, jobID string) time.Duration {
	var attempts int
	if err := q.pool.QueryRow(ctx, `SELECT attempts FROM ocr_jobs WHERE id = $1`, jobID).
		Scan(&attempts); err != nil {
		attempts = 1
	}
	return Backoff(q.backoffBase, q.backoffMax, attempts)
}

// PruneCompleted removes completed rows older than the retention window.
func (q *PostgresQueue) PruneCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := q.pool.Exec(ctx, `
		DELETE FROM ocr_jobs WHERE state = 'completed' AND updated_at < $1`,
		time.Now().Add(-olderThan))
	if err != nil {
		return 0, common.NewAppError(common.CodeQueueError, "failed to prune completed jobs", err)
	}
	return tag.RowsAffected(), nil
}

// PruneFailed removes failed rows older than the (longer) retention window.
func (q *PostgresQueue) PruneFailed(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := q.pool.Exec(ctx, `
		DELETE FROM ocr_jobs WHERE state = 'failed' AND updated_at < $1`,
		time.Now().Add(-olderThan))
	if err != nil {
		return 0, common.NewAppError(common.CodeQueueError, "failed to prune failed jobs", err)
	}
	return tag.RowsAffected(), nil
}
