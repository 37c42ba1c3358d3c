package constants

// OCRStatus is the canonical status for rows in manuscripts.
type OCRStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending       OCRStatus = "PENDING"        // admitted, waiting for a worker
	StatusProcessing    OCRStatus = "PROCESSING"     // claimed by a worker
	StatusCompleted     OCRStatus = "COMPLETED"      // fingerprint extracted at or above threshold
	StatusLowConfidence OCRStatus = "LOW_CONFIDENCE" // fingerprint extracted below threshold, needs review
	StatusFailed        OCRStatus = "FAILED"         // terminal failure after retries
)

// IsTerminal reports whether the status is one of the end states.
func (s OCRStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusLowConfidence || s == StatusFailed
}

// IsSuccess reports whether the status carries a usable fingerprint.
// LOW_CONFIDENCE is a success state; the fingerprint is flagged, not discarded.
func (s OCRStatus) IsSuccess() bool {
	return s == StatusCompleted || s == StatusLowConfidence
}

// JobState is the queue-side lifecycle of an OCR job row.
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateDelayed   JobState = "delayed" // scheduled for redelivery after a failure
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)
