package common

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced across the core boundary. Callers switch on these,
// never on message text.
const (
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeInvalidFileType   = "INVALID_FILE_TYPE"
	CodeInvalidPDF        = "INVALID_PDF"
	CodeEncryptedPDF      = "ENCRYPTED_PDF"
	CodeCorruptedFile     = "CORRUPTED_FILE"
	CodeMalwareDetected   = "MALWARE_DETECTED"
	CodeNoTextExtracted   = "NO_TEXT_EXTRACTED"
	CodeLowConfidence     = "LOW_CONFIDENCE"
	CodeProcessingTimeout = "PROCESSING_TIMEOUT"
	CodeUploadFailed      = "UPLOAD_FAILED"
	CodeGCSError          = "GCS_ERROR"
	CodeVisionAPIError    = "VISION_API_ERROR"
	CodeQueueError        = "QUEUE_ERROR"

	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyConverted = "ALREADY_CONVERTED"
	CodeOCRNotCompleted  = "OCR_NOT_COMPLETED"
	CodeDuplicateNovel   = "DUPLICATE_NOVEL"
	CodeConfigError      = "CONFIG_ERROR"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorCode extracts the stable code from err, or "" if err carries none.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given stable code.
func HasCode(err error, code string) bool {
	return ErrorCode(err) == code
}
