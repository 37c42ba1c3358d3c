package validation

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fumikura/novelmatch/internal/common"
)

func minimalPDF() []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	b.WriteString("xref\n0 2\n")
	b.WriteString("trailer\n<< /Size 2 /Root 1 0 R >>\n")
	b.WriteString("startxref\n9\n%%EOF\n")
	return b.Bytes()
}

func TestValidatePDFFileChecksInOrder(t *testing.T) {
	v := NewValidator(1024, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		data     []byte
		wantCode string
	}{
		{"empty buffer", nil, common.CodeInvalidFileType},
		{"oversized", bytes.Repeat([]byte{'a'}, 2048), common.CodeFileTooLarge},
		{"oversized pdf still rejected on size", append(minimalPDF(), bytes.Repeat([]byte{' '}, 2048)...), common.CodeFileTooLarge},
		{"png content", []byte("\x89PNG\r\n\x1a\nrestoffile"), common.CodeInvalidFileType},
		{"plain text", []byte("hello world this is not a pdf"), common.CodeInvalidFileType},
		{"leading garbage before signature", append([]byte("   \n"), minimalPDF()...), common.CodeInvalidPDF},
		{"encrypted", append(minimalPDF(), []byte("/Encrypt 5 0 R")...), common.CodeEncryptedPDF},
		{"no eof marker", []byte("%PDF-1.4\nxref\ntrailer\n"), common.CodeCorruptedFile},
		{"no xref and no trailer", []byte("%PDF-1.4\nsome content\n%%EOF"), common.CodeCorruptedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidatePDFFile(ctx, tt.data, "book.pdf")
			if res.Valid {
				t.Fatalf("expected rejection, got valid result")
			}
			if res.ErrorCode != tt.wantCode {
				t.Fatalf("error code = %s, want %s (message: %s)", res.ErrorCode, tt.wantCode, res.Message)
			}
		})
	}
}

func TestValidatePDFFileAcceptsWellFormedPDF(t *testing.T) {
	v := NewValidator(1024, nil, nil)
	data := minimalPDF()

	res := v.ValidatePDFFile(context.Background(), data, "book.pdf")
	if !res.Valid {
		t.Fatalf("expected valid, got %s: %s", res.ErrorCode, res.Message)
	}
	if res.MimeType != "application/pdf" {
		t.Fatalf("mime type = %s, want application/pdf", res.MimeType)
	}
	if res.Size != int64(len(data)) {
		t.Fatalf("size = %d, want %d", res.Size, len(data))
	}
}

func TestValidatePDFFileSizeCheckPrecedesContentCheck(t *testing.T) {
	// A buffer over the ceiling is rejected as FILE_TOO_LARGE regardless of
	// whether its content would pass or fail later checks.
	v := NewValidator(10, nil, nil)
	res := v.ValidatePDFFile(context.Background(), []byte("this is definitely not a pdf"), "x.pdf")
	if res.ErrorCode != common.CodeFileTooLarge {
		t.Fatalf("error code = %s, want %s", res.ErrorCode, common.CodeFileTooLarge)
	}
}

type stubScanner struct {
	infected  bool
	signature string
	err       error
}

func (s *stubScanner) Scan(_ context.Context, _ []byte) (bool, string, error) {
	return s.infected, s.signature, s.err
}

func TestValidatePDFFileMalwareVerdict(t *testing.T) {
	v := NewValidator(1024, &stubScanner{infected: true, signature: "Eicar-Test-Signature"}, nil)
	res := v.ValidatePDFFile(context.Background(), minimalPDF(), "book.pdf")
	if res.ErrorCode != common.CodeMalwareDetected {
		t.Fatalf("error code = %s, want %s", res.ErrorCode, common.CodeMalwareDetected)
	}
}

func TestValidatePDFFileScannerDownIsSoftFailure(t *testing.T) {
	v := NewValidator(1024, &stubScanner{err: errors.New("connection refused")}, nil)
	res := v.ValidatePDFFile(context.Background(), minimalPDF(), "book.pdf")
	if !res.Valid {
		t.Fatalf("scanner unavailability must not reject the upload, got %s", res.ErrorCode)
	}
}
