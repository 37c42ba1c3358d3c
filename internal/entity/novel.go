package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Novel is the canonical match target. Line1-3 hold the normalized lookup key
// (lower-cased, space-joined first words); RawLine1-3 keep the original casing
// for human reference.
type Novel struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	ISBN  *string   `json:"isbn,omitempty"`

	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
	Line3 string `json:"line3"`

	RawLine1 *string `json:"raw_line1,omitempty"`
	RawLine2 *string `json:"raw_line2,omitempty"`
	RawLine3 *string `json:"raw_line3,omitempty"`

	TargetURL string `json:"target_url"`
	Language  string `json:"language"`

	ChapterID       *string `json:"chapter_id,omitempty"`
	PageNumber      *int    `json:"page_number,omitempty"`
	UnlockContentID *string `json:"unlock_content_id,omitempty"`

	Metadata json.RawMessage `json:"metadata,omitempty"`

	SourceManuscriptID *uuid.UUID `json:"source_manuscript_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
