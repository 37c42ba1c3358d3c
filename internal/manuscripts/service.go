// Package manuscripts drives the lifecycle of admitted PDFs through the OCR
// state machine, from upload to fingerprint to optional novel conversion.
package manuscripts

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/fumikura/novelmatch/constants"
	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/entity"
	"github.com/fumikura/novelmatch/internal/novels"
	"github.com/fumikura/novelmatch/internal/queue"
	"github.com/fumikura/novelmatch/internal/repository"
	"github.com/fumikura/novelmatch/internal/storage"
	"github.com/fumikura/novelmatch/internal/validation"
)

const (
	maxWordsPerLine = 10
	maxWordLength   = 100
	languageCodeMin = 2
	languageCodeMax = 3
)

// CreateManuscriptInput is one upload submission.
type CreateManuscriptInput struct {
	Title           string
	Author          string
	Language        string
	OrientationHint constants.Orientation
	Filename        string
	Data            []byte
}

// ConvertInput carries the operator-supplied fields for novel conversion.
// The fingerprint lines come from the manuscript itself.
type ConvertInput struct {
	Title           string // defaults to the manuscript title
	ISBN            *string
	TargetURL       string
	ChapterID       *string
	PageNumber      *int
	UnlockContentID *string
	Metadata        []byte
}

// StatusUpdate carries the optional extraction data attached to a status write.
type StatusUpdate struct {
	Confidence   *float64
	Orientation  *constants.Orientation
	ErrorMessage *string
}

type Service struct {
	repo      repository.ManuscriptRepository
	novels    *novels.Service
	store     storage.ObjectStore
	queue     queue.Queue
	validator *validation.Validator
	logger    *slog.Logger

	pathPrefix          string
	signedURLTTL        time.Duration
	confidenceThreshold float64
	maxRetries          int
}

func NewService(
	repo repository.ManuscriptRepository,
	novelSvc *novels.Service,
	store storage.ObjectStore,
	q queue.Queue,
	validator *validation.Validator,
	cfg *common.Config,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:                repo,
		novels:              novelSvc,
		store:               store,
		queue:               q,
		validator:           validator,
		logger:              logger,
		pathPrefix:          cfg.Storage.PathPrefix,
		signedURLTTL:        cfg.Storage.SignedURLTTL,
		confidenceThreshold: cfg.OCR.ConfidenceThreshold,
		maxRetries:          cfg.OCR.MaxRetries,
	}
}

// CreateManuscript admits an upload: validates the bytes, stores them, creates
// the PENDING record, and enqueues the OCR job. Nothing is persisted for a
// rejected file.
func (s *Service) CreateManuscript(ctx context.Context, in CreateManuscriptInput) (*entity.Manuscript, string, error) {
	if in.Title == "" {
		return nil, "", common.NewAppError(common.CodeInvalidInput, "title is required", nil)
	}
	if n := len(in.Language); n < languageCodeMin || n > languageCodeMax {
		return nil, "", common.NewAppError(common.CodeInvalidInput, "language must be a 2-3 letter code", nil)
	}
	if !constants.ValidOrientation(in.OrientationHint) {
		return nil, "", common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("unknown orientation hint %q", in.OrientationHint), nil)
	}

	result := s.validator.ValidatePDFFile(ctx, in.Data, in.Filename)
	if !result.Valid {
		return nil, "", common.NewAppError(result.ErrorCode, result.Message, nil)
	}

	id := uuid.New()
	filename := validation.SanitizeFilename(in.Filename)
	path := fmt.Sprintf("%s/%s/%s", s.pathPrefix, id, filename)

	url, err := s.store.Put(ctx, path, in.Data, map[string]string{
		"manuscript-id": id.String(),
		"title":         in.Title,
		"language":      in.Language,
	})
	if err != nil {
		return nil, "", err
	}

	m := &entity.Manuscript{
		ID:              id,
		Title:           in.Title,
		Author:          in.Author,
		Language:        in.Language,
		OrientationHint: in.OrientationHint,
		StoragePath:     path,
		StorageURL:      url,
		FileSize:        result.Size,
		MimeType:        result.MimeType,
		OCRStatus:       constants.StatusPending,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		// The record is authoritative; without it the stored object is an
		// orphan, so clean it up.
		if delErr := s.store.Delete(ctx, path); delErr != nil {
			s.logger.Warn("orphaned object cleanup failed", "path", path, "error", delErr)
		}
		return nil, "", err
	}

	jobID, err := s.queue.Enqueue(ctx, queue.Job{
		ManuscriptID:    m.ID,
		StoragePath:     m.StoragePath,
		Language:        m.Language,
		OrientationHint: m.OrientationHint,
	})
	if err != nil {
		return nil, "", err
	}
	m.JobID = jobID
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, "", err
	}

	s.logger.Info("manuscript created",
		"manuscript_id", m.ID, "job_id", jobID, "size", m.FileSize, "language", m.Language)
	return m, jobID, nil
}

func (s *Service) GetManuscriptByID(ctx context.Context, id uuid.UUID) (*entity.Manuscript, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListManuscripts(ctx context.Context, filter repository.ManuscriptFilter, page, limit int) ([]*entity.Manuscript, int64, error) {
	return s.repo.List(ctx, filter, page, limit)
}

// GetDownloadURL issues a time-limited signed read URL for the stored PDF.
func (s *Service) GetDownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.store.SignedURL(ctx, m.StoragePath, s.signedURLTTL)
}

// UpdateOCRStatus writes a status transition with optional extraction data.
func (s *Service) UpdateOCRStatus(ctx context.Context, id uuid.UUID, status constants.OCRStatus, data *StatusUpdate) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m.OCRStatus = status
	if data != nil {
		if data.Confidence != nil {
			m.OCRConfidence = data.Confidence
		}
		if data.Orientation != nil {
			m.DetectedOrientation = data.Orientation
		}
		m.ErrorMessage = data.ErrorMessage
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return err
	}
	s.logger.Info("status updated", "manuscript_id", id, "status", status)
	return nil
}

// BeginProcessing marks the manuscript claimed by a worker.
func (s *Service) BeginProcessing(ctx context.Context, id uuid.UUID) error {
	return s.UpdateOCRStatus(ctx, id, constants.StatusProcessing, nil)
}

// CompleteExtraction persists a successful extraction. Confidence at or above
// the threshold lands in COMPLETED, below it in LOW_CONFIDENCE; both keep the
// fingerprint.
func (s *Service) CompleteExtraction(ctx context.Context, id uuid.UUID, fp *entity.Fingerprint) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	status := constants.StatusCompleted
	if fp.Confidence < s.confidenceThreshold {
		status = constants.StatusLowConfidence
	}

	m.OCRStatus = status
	m.Fingerprint = fp
	m.OCRConfidence = &fp.Confidence
	orientation := fp.Orientation
	m.DetectedOrientation = &orientation
	m.ErrorMessage = nil

	if err := s.repo.Update(ctx, m); err != nil {
		return err
	}
	s.logger.Info("extraction complete",
		"manuscript_id", id, "status", status, "confidence", fp.Confidence, "orientation", fp.Orientation)
	return nil
}

// HandleExtractionFailure records a failed attempt and reports whether the job
// should be redelivered. Below the retry limit the status is left untouched
// and the queue's backoff takes over; at the limit the manuscript goes FAILED.
func (s *Service) HandleExtractionFailure(ctx context.Context, id uuid.UUID, cause error) (bool, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	m.RetryCount++
	if m.RetryCount < s.maxRetries {
		if err := s.repo.Update(ctx, m); err != nil {
			return false, err
		}
		s.logger.Warn("extraction failed, will retry",
			"manuscript_id", id, "attempt", m.RetryCount, "error", cause)
		return true, nil
	}

	msg := cause.Error()
	m.OCRStatus = constants.StatusFailed
	m.ErrorMessage = &msg
	if err := s.repo.Update(ctx, m); err != nil {
		return false, err
	}
	s.logger.Error("extraction failed permanently",
		"manuscript_id", id, "attempts", m.RetryCount, "error", cause)
	return false, nil
}

// UpdateExtractedWords lets an operator overwrite the fingerprint word lists.
// OCR status is untouched; the edit is flagged with editor identity and time.
func (s *Service) UpdateExtractedWords(ctx context.Context, id uuid.UUID, lines [3][]string, editor string) (*entity.Manuscript, error) {
	if editor == "" {
		return nil, common.NewAppError(common.CodeInvalidInput, "editor identity is required", nil)
	}
	for i, words := range lines {
		if len(words) == 0 {
			return nil, common.NewAppError(common.CodeInvalidInput,
				fmt.Sprintf("line %d has no words", i+1), nil)
		}
		if len(words) > maxWordsPerLine {
			return nil, common.NewAppError(common.CodeInvalidInput,
				fmt.Sprintf("line %d exceeds %d words", i+1, maxWordsPerLine), nil)
		}
		for _, w := range words {
			if w == "" || utf8.RuneCountInString(w) > maxWordLength {
				return nil, common.NewAppError(common.CodeInvalidInput,
					fmt.Sprintf("line %d contains an empty or oversized word", i+1), nil)
			}
		}
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if m.Fingerprint == nil {
		m.Fingerprint = &entity.Fingerprint{}
	}
	m.Fingerprint.Line1Words = lines[0]
	m.Fingerprint.Line2Words = lines[1]
	m.Fingerprint.Line3Words = lines[2]

	now := time.Now().UTC()
	m.ManuallyEdited = true
	m.EditedBy = &editor
	m.EditedAt = &now

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("fingerprint manually edited", "manuscript_id", id, "editor", editor)
	return m, nil
}

// ConvertToNovel creates the Novel record for an extracted manuscript. The
// back-reference is written at most once: a lost race deletes the freshly
// created novel and reports ALREADY_CONVERTED.
func (s *Service) ConvertToNovel(ctx context.Context, id uuid.UUID, in ConvertInput, actor string) (*entity.Novel, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !m.OCRStatus.IsSuccess() {
		return nil, common.NewAppError(common.CodeOCRNotCompleted,
			fmt.Sprintf("manuscript is %s, needs a completed extraction", m.OCRStatus), nil)
	}
	if m.Fingerprint == nil {
		return nil, common.NewAppError(common.CodeOCRNotCompleted, "manuscript has no fingerprint", nil)
	}
	if m.ConvertedToNovelID != nil {
		return nil, common.NewAppError(common.CodeAlreadyConverted,
			fmt.Sprintf("already converted to novel %s", *m.ConvertedToNovelID), nil)
	}

	title := in.Title
	if title == "" {
		title = m.Title
	}
	manuscriptID := m.ID
	novel, err := s.novels.Create(ctx, novels.CreateNovelInput{
		Title:              title,
		ISBN:               in.ISBN,
		Line1Words:         m.Fingerprint.Line1Words,
		Line2Words:         m.Fingerprint.Line2Words,
		Line3Words:         m.Fingerprint.Line3Words,
		TargetURL:          in.TargetURL,
		Language:           m.Language,
		ChapterID:          in.ChapterID,
		PageNumber:         in.PageNumber,
		UnlockContentID:    in.UnlockContentID,
		Metadata:           in.Metadata,
		SourceManuscriptID: &manuscriptID,
	})
	if err != nil {
		return nil, err
	}

	won, err := s.repo.SetConverted(ctx, m.ID, novel.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		if delErr := s.novels.Delete(ctx, novel.ID); delErr != nil {
			s.logger.Error("failed to undo novel from lost conversion race",
				"novel_id", novel.ID, "error", delErr)
		}
		return nil, common.NewAppError(common.CodeAlreadyConverted,
			"another conversion won the race", nil)
	}

	s.logger.Info("manuscript converted to novel",
		"manuscript_id", m.ID, "novel_id", novel.ID, "actor", actor)
	return novel, nil
}

// ReprocessManuscript re-runs OCR for a manuscript in a terminal state. The
// stored object must still exist; the job is re-enqueued under the same
// deterministic id with a fresh retry budget.
func (s *Service) ReprocessManuscript(ctx context.Context, id uuid.UUID) (string, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !m.OCRStatus.IsTerminal() {
		return "", common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("manuscript is %s, reprocess needs a terminal state", m.OCRStatus), nil)
	}

	exists, err := s.store.Exists(ctx, m.StoragePath)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", common.NewAppError(common.CodeGCSError,
			fmt.Sprintf("stored object %s no longer exists", m.StoragePath), nil)
	}

	m.OCRStatus = constants.StatusPending
	m.ErrorMessage = nil
	m.RetryCount = 0
	if err := s.repo.Update(ctx, m); err != nil {
		return "", err
	}

	jobID, err := s.queue.Enqueue(ctx, queue.Job{
		ID:              queue.JobID(m.ID),
		ManuscriptID:    m.ID,
		StoragePath:     m.StoragePath,
		Language:        m.Language,
		OrientationHint: m.OrientationHint,
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("manuscript reprocess enqueued", "manuscript_id", m.ID, "job_id", jobID)
	return jobID, nil
}

// DeleteManuscript removes the manuscript. Object and job cleanup are best
// effort; the database delete is what counts.
func (s *Service) DeleteManuscript(ctx context.Context, id uuid.UUID) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, m.StoragePath); err != nil {
		s.logger.Warn("stored object cleanup failed", "manuscript_id", id, "path", m.StoragePath, "error", err)
	}
	if m.JobID != "" {
		if err := s.queue.Remove(ctx, m.JobID); err != nil {
			s.logger.Warn("queued job cleanup failed", "manuscript_id", id, "job_id", m.JobID, "error", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("manuscript deleted", "manuscript_id", id)
	return nil
}

// GetJobStatus reads the queue-side view of the manuscript's job.
func (s *Service) GetJobStatus(ctx context.Context, id uuid.UUID) (*queue.JobStatus, error) {
	return s.queue.Status(ctx, queue.JobID(id))
}
