package entity

import (
	"time"

	"github.com/google/uuid"
)

// LookupLog is one immutable audit record per lookup call, hit or miss.
// This is the only accuracy trail the matcher has; writing it is not optional.
type LookupLog struct {
	ID             uuid.UUID  `json:"id"`
	Line1          string     `json:"line1"`
	Line2          string     `json:"line2"`
	Line3          string     `json:"line3"`
	MatchedNovelID *uuid.UUID `json:"matched_novel_id,omitempty"`
	Success        bool       `json:"success"`
	DurationMS     int64      `json:"duration_ms"`
	CreatedAt      time.Time  `json:"created_at"`
}
