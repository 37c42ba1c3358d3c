package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/fumikura/novelmatch/constants"
)

// Manuscript is one unit of OCR work: a scanned novel PDF admitted into the
// pipeline, tracked through the status state machine until it yields a
// fingerprint (or fails).
type Manuscript struct {
	ID              uuid.UUID             `json:"id"`
	Title           string                `json:"title"`
	Author          string                `json:"author"`
	Language        string                `json:"language"` // 2-3 letter code
	OrientationHint constants.Orientation `json:"orientation_hint,omitempty"`

	StoragePath string `json:"storage_path"`
	StorageURL  string `json:"storage_url,omitempty"`
	FileSize    int64  `json:"file_size"`
	MimeType    string `json:"mime_type"`

	OCRStatus           constants.OCRStatus    `json:"ocr_status"`
	OCRConfidence       *float64               `json:"ocr_confidence,omitempty"`
	DetectedOrientation *constants.Orientation `json:"detected_orientation,omitempty"`
	ErrorMessage        *string                `json:"error_message,omitempty"`
	RetryCount          int                    `json:"retry_count"`

	Fingerprint *Fingerprint `json:"fingerprint,omitempty"`

	ManuallyEdited bool       `json:"manually_edited"`
	EditedBy       *string    `json:"edited_by,omitempty"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`

	ConvertedToNovelID *uuid.UUID `json:"converted_to_novel_id,omitempty"`
	JobID              string     `json:"job_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fingerprint is the extraction result for one manuscript: the first three
// words of the first three content lines, plus the raw recognized text and
// provider metadata.
type Fingerprint struct {
	Line1Words []string `json:"line1_words"`
	Line2Words []string `json:"line2_words"`
	Line3Words []string `json:"line3_words"`

	RawText     string                `json:"raw_text"`
	Confidence  float64               `json:"confidence"` // 0-100
	Orientation constants.Orientation `json:"orientation"`

	DetectedLanguage string `json:"detected_language,omitempty"`
	BlockCount       int    `json:"block_count"`
	ProcessingMS     int64  `json:"processing_ms"`
}

// Lines returns the three word lists in order.
func (f *Fingerprint) Lines() [3][]string {
	return [3][]string{f.Line1Words, f.Line2Words, f.Line3Words}
}
