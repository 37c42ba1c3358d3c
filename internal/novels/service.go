// Package novels manages the canonical match targets of the lookup engine.
package novels

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/entity"
	"github.com/fumikura/novelmatch/internal/repository"
)

// metadataSchema bounds the free-form metadata blob: a flat-ish object of
// publisher facts, no nested surprises past one level.
const metadataSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"publisher":        {"type": "string", "maxLength": 200},
		"published_year":   {"type": "integer", "minimum": 1000, "maximum": 2100},
		"edition":          {"type": "string", "maxLength": 100},
		"series":           {"type": "string", "maxLength": 200},
		"volume":           {"type": "integer", "minimum": 0},
		"tags":             {"type": "array", "items": {"type": "string", "maxLength": 50}, "maxItems": 20},
		"notes":            {"type": "string", "maxLength": 2000}
	},
	"additionalProperties": false
}`

var compiledMetadataSchema = jsonschema.MustCompileString("novel-metadata.json", metadataSchema)

// CreateNovelInput carries an operator-supplied novel registration. Lines are
// word lists; normalization to the lookup key happens here.
type CreateNovelInput struct {
	Title string
	ISBN  *string

	Line1Words []string
	Line2Words []string
	Line3Words []string

	TargetURL string
	Language  string

	ChapterID       *string
	PageNumber      *int
	UnlockContentID *string

	Metadata json.RawMessage

	SourceManuscriptID *uuid.UUID
}

type Service struct {
	repo   repository.NovelRepository
	logger *slog.Logger
}

func NewService(repo repository.NovelRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Create validates and registers a novel. The normalized triple is the unique
// key; a second novel with the same opening lines in the same language is
// rejected with DUPLICATE_NOVEL.
func (s *Service) Create(ctx context.Context, in CreateNovelInput) (*entity.Novel, error) {
	if in.Title == "" {
		return nil, common.NewAppError(common.CodeInvalidInput, "title is required", nil)
	}
	if in.Language == "" {
		return nil, common.NewAppError(common.CodeInvalidInput, "language is required", nil)
	}
	if err := validateTargetURL(in.TargetURL); err != nil {
		return nil, err
	}
	if len(in.Line1Words) == 0 || len(in.Line2Words) == 0 || len(in.Line3Words) == 0 {
		return nil, common.NewAppError(common.CodeInvalidInput, "all three fingerprint lines are required", nil)
	}
	if err := ValidateMetadata(in.Metadata); err != nil {
		return nil, err
	}

	raw1 := entity.JoinWords(in.Line1Words)
	raw2 := entity.JoinWords(in.Line2Words)
	raw3 := entity.JoinWords(in.Line3Words)

	n := &entity.Novel{
		ID:                 uuid.New(),
		Title:              in.Title,
		ISBN:               in.ISBN,
		Line1:              entity.NormalizeLine(in.Line1Words),
		Line2:              entity.NormalizeLine(in.Line2Words),
		Line3:              entity.NormalizeLine(in.Line3Words),
		RawLine1:           &raw1,
		RawLine2:           &raw2,
		RawLine3:           &raw3,
		TargetURL:          in.TargetURL,
		Language:           in.Language,
		ChapterID:          in.ChapterID,
		PageNumber:         in.PageNumber,
		UnlockContentID:    in.UnlockContentID,
		Metadata:           in.Metadata,
		SourceManuscriptID: in.SourceManuscriptID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	s.logger.Info("novel created", "novel_id", n.ID, "language", n.Language)
	return n, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.Novel, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("novel deleted", "novel_id", id)
	return nil
}

// ValidateMetadata checks the optional metadata blob against the schema.
// A nil or empty blob is fine.
func ValidateMetadata(metadata json.RawMessage) error {
	if len(metadata) == 0 {
		return nil
	}
	var decoded any
	dec := json.NewDecoder(bytes.NewReader(metadata))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return common.NewAppError(common.CodeInvalidInput, "metadata is not valid JSON", err)
	}
	if err := compiledMetadataSchema.Validate(decoded); err != nil {
		return common.NewAppError(common.CodeInvalidInput, "metadata does not match schema", err)
	}
	return nil
}

func validateTargetURL(raw string) error {
	if raw == "" {
		return common.NewAppError(common.CodeInvalidInput, "target URL is required", nil)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return common.NewAppError(common.CodeInvalidInput, "target URL must be an absolute http(s) URL", err)
	}
	return nil
}
