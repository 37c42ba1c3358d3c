package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/entity"
)

const novelColumns = `id, title, isbn, line1, line2, line3, raw_line1, raw_line2, raw_line3,
	target_url, language, chapter_id, page_number, unlock_content_id, metadata,
	source_manuscript_id, created_at, updated_at`

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

type NovelRepository interface {
	// Create inserts the novel; a duplicate (line1, line2, line3, language)
	// key comes back as DUPLICATE_NOVEL.
	Create(ctx context.Context, n *entity.Novel) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Novel, error)
	// FindByLines returns the novel with this exact normalized triple, or nil
	// when there is no match.
	FindByLines(ctx context.Context, line1, line2, line3 string) (*entity.Novel, error)
	// FindSuggestions returns novels whose triples agree with the query on at
	// least two of the three lines, best matches first, capped at limit.
	FindSuggestions(ctx context.Context, line1, line2, line3 string, limit int) ([]*entity.Novel, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type novelRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewNovelRepository(pool *pgxpool.Pool, log *slog.Logger) NovelRepository {
	if log == nil {
		log = slog.Default()
	}
	return &novelRepo{pool: pool, log: log}
}

func (r *novelRepo) Create(ctx context.Context, n *entity.Novel) error {
	now := time.Now().UTC()
	n.CreatedAt, n.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO novels (`+novelColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		n.ID, n.Title, n.ISBN, n.Line1, n.Line2, n.Line3, n.RawLine1, n.RawLine2, n.RawLine3,
		n.TargetURL, n.Language, n.ChapterID, n.PageNumber, n.UnlockContentID, []byte(n.Metadata),
		n.SourceManuscriptID, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.NewAppError(common.CodeDuplicateNovel,
				"a novel with this opening fingerprint already exists", err)
		}
		r.log.Error("novel insert failed", "novel_id", n.ID, "error", err)
		return common.NewAppError(common.CodeDatabaseError, "failed to create novel", err)
	}
	return nil
}

func (r *novelRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Novel, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+novelColumns+` FROM novels WHERE id = $1`, id)
	n, err := scanNovel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError(common.CodeNotFound,
			fmt.Sprintf("novel %s not found", id), err)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeDatabaseError, "failed to load novel", err)
	}
	return n, nil
}

func (r *novelRepo) FindByLines(ctx context.Context, line1, line2, line3 string) (*entity.Novel, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+novelColumns+` FROM novels
		WHERE line1 = $1 AND line2 = $2 AND line3 = $3
		LIMIT 1`, line1, line2, line3)
	n, err := scanNovel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeDatabaseError, "failed to look up novel", err)
	}
	return n, nil
}

func (r *novelRepo) FindSuggestions(ctx context.Context, line1, line2, line3 string, limit int) ([]*entity.Novel, error) {
	if limit < 1 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+novelColumns+`,
		       (line1 = $1)::int + (line2 = $2)::int + (line3 = $3)::int AS hits
		FROM novels
		WHERE (line1 = $1)::int + (line2 = $2)::int + (line3 = $3)::int >= 2
		ORDER BY hits DESC, created_at
		LIMIT $4`, line1, line2, line3, limit)
	if err != nil {
		return nil, common.NewAppError(common.CodeDatabaseError, "failed to query suggestions", err)
	}
	defer rows.Close()

	var out []*entity.Novel
	for rows.Next() {
		n, err := scanNovelWithHits(rows)
		if err != nil {
			return nil, common.NewAppError(common.CodeDatabaseError, "failed to scan suggestion", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeDatabaseError, "failed to query suggestions", err)
	}
	return out, nil
}

func (r *novelRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM novels WHERE id = $1`, id)
	if err != nil {
		return common.NewAppError(common.CodeDatabaseError, "failed to delete novel", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError(common.CodeNotFound,
			fmt.Sprintf("novel %s not found", id), nil)
	}
	return nil
}

func scanNovel(row pgx.Row) (*entity.Novel, error) {
	var (
		n        entity.Novel
		metadata []byte
	)
	err := row.Scan(&n.ID, &n.Title, &n.ISBN, &n.Line1, &n.Line2, &n.Line3,
		&n.RawLine1, &n.RawLine2, &n.RawLine3, &n.TargetURL, &n.Language,
		&n.ChapterID, &n.PageNumber, &n.UnlockContentID, &metadata,
		&n.SourceManuscriptID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.Metadata = metadata
	return &n, nil
}

func scanNovelWithHits(row pgx.Row) (*entity.Novel, error) {
	var (
		n        entity.Novel
		metadata []byte
		hits     int
	)
	err := row.Scan(&n.ID, &n.Title, &n.ISBN, &n.Line1, &n.Line2, &n.Line3,
		&n.RawLine1, &n.RawLine2, &n.RawLine3, &n.TargetURL, &n.Language,
		&n.ChapterID, &n.PageNumber, &n.UnlockContentID, &metadata,
		&n.SourceManuscriptID, &n.CreatedAt, &n.UpdatedAt, &hits)
	if err != nil {
		return nil, err
	}
	n.Metadata = metadata
	return &n, nil
}
