package validation

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "soseki-wagahai.pdf", "soseki-wagahai.pdf"},
		{"missing suffix", "manuscript", "manuscript.pdf"},
		{"uppercase suffix kept", "BOOK.PDF", "BOOK.PDF"},
		{"path traversal stripped", "../../etc/passwd", "__etc_passwd.pdf"},
		{"windows separators", `..\..\book.pdf`, "__book.pdf"},
		{"spaces and unicode replaced", "夏目 漱石.pdf", "_____.pdf"},
		{"special chars replaced", "a&b(c)!.pdf", "a_b_c__.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Fatalf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameIdempotent(t *testing.T) {
	inputs := []string{
		"book.pdf",
		"../secret",
		"日本語タイトル",
		strings.Repeat("x", 400) + ".pdf",
		"weird name!!.PDF",
	}
	for _, in := range inputs {
		once := SanitizeFilename(in)
		twice := SanitizeFilename(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestSanitizeFilenameLengthCap(t *testing.T) {
	long := strings.Repeat("a", 300) + ".pdf"
	got := SanitizeFilename(long)
	if len(got) > 255 {
		t.Fatalf("length = %d, want <= 255", len(got))
	}
	if !strings.HasSuffix(strings.ToLower(got), ".pdf") {
		t.Fatalf("suffix lost after truncation: %q", got)
	}
}
