package validation

import (
	"regexp"
	"strings"
)

const (
	maxFilenameBytes = 255
	pdfSuffix        = ".pdf"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9.-]`)

// SanitizeFilename rewrites an uploaded filename into a storage-safe form:
// path-traversal sequences are stripped, anything outside [A-Za-z0-9.-] becomes
// an underscore, a .pdf suffix is forced, and the total length is capped at
// 255 bytes while preserving the suffix. The function is idempotent.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "_")

	if !strings.HasSuffix(strings.ToLower(name), pdfSuffix) {
		name += pdfSuffix
	}

	if len(name) > maxFilenameBytes {
		suffix := name[len(name)-len(pdfSuffix):]
		name = name[:maxFilenameBytes-len(pdfSuffix)] + suffix
	}
	return name
}
