package extract

import (
	"strings"
	"unicode"

	"github.com/fumikura/novelmatch/internal/vision"
)

const (
	minLineLength     = 3
	shortLineMaxChars = 20
)

// reconstructLines joins each paragraph's words into one line string, in
// provider order. One paragraph equals one candidate content line.
func reconstructLines(res *vision.Result) []string {
	var lines []string
	for _, page := range res.Pages {
		for _, block := range page.Blocks {
			for _, par := range block.Paragraphs {
				parts := make([]string, 0, len(par.Words))
				for _, w := range par.Words {
					parts = append(parts, w.Text())
				}
				lines = append(lines, strings.Join(parts, " "))
			}
		}
	}
	return lines
}

// filterContentLines drops the lines that are not narrative content: blanks,
// bare page numbers, fragments, and short all-caps running headers. The
// uppercase check is skipped for CJK lines, where case carries no signal.
func filterContentLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isPurelyNumeric(trimmed) {
			continue
		}
		if len([]rune(trimmed)) < minLineLength {
			continue
		}
		if isRunningHeader(trimmed) {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func isPurelyNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// isRunningHeader flags short all-uppercase lines (chapter titles, running
// headers) that precede the narrative text on a page.
func isRunningHeader(s string) bool {
	if len([]rune(s)) >= shortLineMaxChars {
		return false
	}
	if containsCJK(s) {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
