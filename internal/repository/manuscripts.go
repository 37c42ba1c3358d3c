package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fumikura/novelmatch/constants"
	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/entity"
)

const manuscriptColumns = `id, title, author, language, orientation_hint, storage_path, storage_url,
	file_size, mime_type, ocr_status, ocr_confidence, detected_orientation, error_message,
	retry_count, fingerprint, manually_edited, edited_by, edited_at, converted_to_novel_id,
	job_id, created_at, updated_at`

// ManuscriptFilter narrows List results.
type ManuscriptFilter struct {
	Status         constants.OCRStatus
	Language       string
	ManuallyEdited *bool
}

type ManuscriptRepository interface {
	Create(ctx context.Context, m *entity.Manuscript) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Manuscript, error)
	List(ctx context.Context, filter ManuscriptFilter, page, limit int) ([]*entity.Manuscript, int64, error)
	// Update overwrites the mutable fields of an existing row.
	Update(ctx context.Context, m *entity.Manuscript) error
	// SetConverted records the novel back-reference if and only if none is
	// set yet; it reports whether this call won the claim.
	SetConverted(ctx context.Context, id, novelID uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type manuscriptRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewManuscriptRepository(pool *pgxpool.Pool, log *slog.Logger) ManuscriptRepository {
	if log == nil {
		log = slog.Default()
	}
	return &manuscriptRepo{pool: pool, log: log}
}

func (r *manuscriptRepo) Create(ctx context.Context, m *entity.Manuscript) error {
	fp, err := marshalFingerprint(m.Fingerprint)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now

	_, err = r.pool.Exec(ctx, `
		INSERT INTO manuscripts (`+manuscriptColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		m.ID, m.Title, m.Author, m.Language, string(m.OrientationHint), m.StoragePath, m.StorageURL,
		m.FileSize, m.MimeType, string(m.OCRStatus), m.OCRConfidence, orientationPtr(m.DetectedOrientation),
		m.ErrorMessage, m.RetryCount, fp, m.ManuallyEdited, m.EditedBy, m.EditedAt,
		m.ConvertedToNovelID, m.JobID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		r.log.Error("manuscript insert failed", "manuscript_id", m.ID, "error", err)
		return common.NewAppError(common.CodeDatabaseError, "failed to create manuscript", err)
	}
	return nil
}

func (r *manuscriptRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Manuscript, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+manuscriptColumns+` FROM manuscripts WHERE id = $1`, id)
	m, err := scanManuscript(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError(common.CodeNotFound,
			fmt.Sprintf("manuscript %s not found", id), err)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeDatabaseError, "failed to load manuscript", err)
	}
	return m, nil
}

func (r *manuscriptRepo) List(ctx context.Context, filter ManuscriptFilter, page, limit int) ([]*entity.Manuscript, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		conds = append(conds, "ocr_status = "+arg(string(filter.Status)))
	}
	if filter.Language != "" {
		conds = append(conds, "language = "+arg(filter.Language))
	}
	if filter.ManuallyEdited != nil {
		conds = append(conds, "manually_edited = "+arg(*filter.ManuallyEdited))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM manuscripts"+where, args...).Scan(&total); err != nil {
		return nil, 0, common.NewAppError(common.CodeDatabaseError, "failed to count manuscripts", err)
	}

	query := "SELECT " + manuscriptColumns + " FROM manuscripts" + where +
		" ORDER BY created_at DESC LIMIT " + arg(limit) + " OFFSET " + arg((page-1)*limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, common.NewAppError(common.CodeDatabaseError, "failed to list manuscripts", err)
	}
	defer rows.Close()

	var out []*entity.Manuscript
	for rows.Next() {
		m, err := scanManuscript(rows)
		if err != nil {
			return nil, 0, common.NewAppError(common.CodeDatabaseError, "failed to scan manuscript", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, common.NewAppError(common.CodeDatabaseError, "failed to list manuscripts", err)
	}
	return out, total, nil
}

func (r *manuscriptRepo) Update(ctx context.Context, m *entity.Manuscript) error {
	fp, err := marshalFingerprint(m.Fingerprint)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()

	tag, err := r.pool.Exec(ctx, `
		UPDATE manuscripts SET
			title = $2, author = $3, language = $4, orientation_hint = $5,
			storage_path = $6, storage_url = $7, file_size = $8, mime_type = $9,
			ocr_status = $10, ocr_confidence = $11, detected_orientation = $12,
			error_message = $13, retry_count = $14, fingerprint = $15,
			manually_edited = $16, edited_by = $17, edited_at = $18,
			job_id = $19, updated_at = $20
		WHERE id = $1`,
		m.ID, m.Title, m.Author, m.Language, string(m.OrientationHint),
		m.StoragePath, m.StorageURL, m.FileSize, m.MimeType,
		string(m.OCRStatus), m.OCRConfidence, orientationPtr(m.DetectedOrientation),
		m.ErrorMessage, m.RetryCount, fp,
		m.ManuallyEdited, m.EditedBy, m.EditedAt,
		m.JobID, m.UpdatedAt)
	if err != nil {
		r.log.Error("manuscript update failed", "manuscript_id", m.ID, "error", err)
		return common.NewAppError(common.CodeDatabaseError, "failed to update manuscript", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError(common.CodeNotFound,
			fmt.Sprintf("manuscript %s not found", m.ID), nil)
	}
	return nil
}

func (r *manuscriptRepo) SetConverted(ctx context.Context, id, novelID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE manuscripts SET converted_to_novel_id = $2, updated_at = now()
		WHERE id = $1 AND converted_to_novel_id IS NULL`, id, novelID)
	if err != nil {
		return false, common.NewAppError(common.CodeDatabaseError, "failed to record conversion", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *manuscriptRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM manuscripts WHERE id = $1`, id)
	if err != nil {
		return common.NewAppError(common.CodeDatabaseError, "failed to delete manuscript", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError(common.CodeNotFound,
			fmt.Sprintf("manuscript %s not found", id), nil)
	}
	return nil
}

func scanManuscript(row pgx.Row) (*entity.Manuscript, error) {
	var (
		m           entity.Manuscript
		hint        string
		status      string
		detected    *string
		fingerprint []byte
	)
	err := row.Scan(&m.ID, &m.Title, &m.Author, &m.Language, &hint, &m.StoragePath, &m.StorageURL,
		&m.FileSize, &m.MimeType, &status, &m.OCRConfidence, &detected, &m.ErrorMessage,
		&m.RetryCount, &fingerprint, &m.ManuallyEdited, &m.EditedBy, &m.EditedAt,
		&m.ConvertedToNovelID, &m.JobID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.OrientationHint = constants.Orientation(hint)
	m.OCRStatus = constants.OCRStatus(status)
	if detected != nil {
		o := constants.Orientation(*detected)
		m.DetectedOrientation = &o
	}
	if len(fingerprint) > 0 {
		var fp entity.Fingerprint
		if err := json.Unmarshal(fingerprint, &fp); err != nil {
			return nil, err
		}
		m.Fingerprint = &fp
	}
	return &m, nil
}

func marshalFingerprint(fp *entity.Fingerprint) ([]byte, error) {
	if fp == nil {
		return nil, nil
	}
	data, err := json.Marshal(fp)
	if err != nil {
		return nil, common.NewAppError(common.CodeDatabaseError, "failed to encode fingerprint", err)
	}
	return data, nil
}

func orientationPtr(o *constants.Orientation) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}
