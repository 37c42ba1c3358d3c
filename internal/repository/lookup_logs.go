package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/entity"
)

type LookupLogRepository interface {
	Insert(ctx context.Context, l *entity.LookupLog) error
	// RecentFailures returns the newest unmatched lookups, for tuning the
	// fingerprint corpus.
	RecentFailures(ctx context.Context, limit int) ([]*entity.LookupLog, error)
}

type lookupLogRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewLookupLogRepository(pool *pgxpool.Pool, log *slog.Logger) LookupLogRepository {
	if log == nil {
		log = slog.Default()
	}
	return &lookupLogRepo{pool: pool, log: log}
}

func (r *lookupLogRepo) Insert(ctx context.Context, l *entity.LookupLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lookup_logs (id, line1, line2, line3, matched_novel_id, success, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.Line1, l.Line2, l.Line3, l.MatchedNovelID, l.Success, l.DurationMS, l.CreatedAt)
	if err != nil {
		r.log.Error("lookup log insert failed", "error", err)
		return common.NewAppError(common.CodeDatabaseError, "failed to record lookup", err)
	}
	return nil
}

func (r *lookupLogRepo) RecentFailures(ctx context.Context, limit int) ([]*entity.LookupLog, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, line1, line2, line3, matched_novel_id, success, duration_ms, created_at
		FROM lookup_logs
		WHERE NOT success
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, common.NewAppError(common.CodeDatabaseError, "failed to list lookup failures", err)
	}
	defer rows.Close()

	var out []*entity.LookupLog
	for rows.Next() {
		var l entity.LookupLog
		if err := rows.Scan(&l.ID, &l.Line1, &l.Line2, &l.Line3, &l.MatchedNovelID,
			&l.Success, &l.DurationMS, &l.CreatedAt); err != nil {
			return nil, common.NewAppError(common.CodeDatabaseError, "failed to scan lookup log", err)
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeDatabaseError, "failed to list lookup failures", err)
	}
	return out, nil
}
