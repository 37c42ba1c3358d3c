package validation

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fumikura/novelmatch/internal/common"
)

const pdfMIMEType = "application/pdf"

var (
	pdfHeader     = []byte("%PDF-")
	pdfEOFMarker  = []byte("%%EOF")
	pdfXrefMarker = []byte("xref")
	pdfTrailer    = []byte("trailer")
	pdfEncrypt    = []byte("/Encrypt")
)

// Result is the outcome of admitting an uploaded file. When Valid is false,
// ErrorCode carries one of the stable codes from the common package.
type Result struct {
	Valid     bool
	ErrorCode string
	Message   string
	MimeType  string
	Size      int64
}

// MalwareScanner checks a byte buffer against a scanning daemon.
// Implementations report (infected, signature, error).
type MalwareScanner interface {
	Scan(ctx context.Context, data []byte) (bool, string, error)
}

// Validator runs the ordered admission checks over uploaded bytes. It holds no
// mutable state and is safe for concurrent use.
type Validator struct {
	maxFileSize int64
	scanner     MalwareScanner // nil disables the malware check
	logger      *slog.Logger
}

func NewValidator(maxFileSize int64, scanner MalwareScanner, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxFileSize <= 0 {
		maxFileSize = 50 * 1024 * 1024
	}
	return &Validator{
		maxFileSize: maxFileSize,
		scanner:     scanner,
		logger:      logger,
	}
}

// ValidatePDFFile runs the admission checks in order, short-circuiting on the
// first failure. It performs no side effects; nothing is persisted or queued
// for a rejected buffer.
func (v *Validator) ValidatePDFFile(ctx context.Context, data []byte, filename string) Result {
	size := int64(len(data))

	if size == 0 {
		return reject(common.CodeInvalidFileType, "file is empty", size)
	}

	if size > v.maxFileSize {
		return reject(common.CodeFileTooLarge,
			fmt.Sprintf("file size %d exceeds limit of %d bytes", size, v.maxFileSize), size)
	}

	// Sniff actual content; a .pdf extension proves nothing.
	detected := mimetype.Detect(data)
	if !detected.Is(pdfMIMEType) {
		return reject(common.CodeInvalidFileType,
			fmt.Sprintf("expected %s, detected %s", pdfMIMEType, detected.String()), size)
	}

	if !bytes.HasPrefix(data, pdfHeader) {
		return reject(common.CodeInvalidPDF, "missing PDF signature at offset 0", size)
	}

	if bytes.Contains(data, pdfEncrypt) {
		return reject(common.CodeEncryptedPDF, "encrypted PDFs are not supported", size)
	}

	if !bytes.Contains(data, pdfEOFMarker) ||
		(!bytes.Contains(data, pdfXrefMarker) && !bytes.Contains(data, pdfTrailer)) {
		return reject(common.CodeCorruptedFile, "missing end-of-file or cross-reference structures", size)
	}

	if v.scanner != nil {
		infected, signature, err := v.scanner.Scan(ctx, data)
		if err != nil {
			// Scanner downtime must not block uploads.
			v.logger.Warn("malware scan unavailable, admitting unscanned file",
				"filename", filename, "error", err)
		} else if infected {
			v.logger.Error("malware detected in upload", "filename", filename, "signature", signature)
			return reject(common.CodeMalwareDetected,
				fmt.Sprintf("malware detected: %s", signature), size)
		}
	}

	return Result{
		Valid:    true,
		MimeType: pdfMIMEType,
		Size:     size,
	}
}

func reject(code, message string, size int64) Result {
	return Result{
		Valid:     false,
		ErrorCode: code,
		Message:   message,
		Size:      size,
	}
}
