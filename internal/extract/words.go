package extract

import (
	"strings"
	"unicode"
)

const (
	fingerprintWords = 3
	maxTokenLength   = 100
)

// extractLineWords returns the first three tokens of a content line,
// script-aware: whitespace splitting with case folding for Latin-script
// lines, whitespace-first with a character-grouping fallback for CJK lines
// (which have no case and often no spaces).
func extractLineWords(line string) []string {
	if containsCJK(line) {
		fields := strings.Fields(line)
		if len(fields) >= fingerprintWords {
			return capTokens(fields[:fingerprintWords])
		}
		return capTokens(groupCJKWords(line))
	}

	fields := strings.Fields(line)
	if len(fields) > fingerprintWords {
		fields = fields[:fingerprintWords]
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToLower(f))
	}
	return capTokens(out)
}

// groupCJKWords is a best-effort grouping for unspaced CJK text: a kanji
// closes a word on its own; a run of two kana (or other non-kanji characters)
// closes a word. Whitespace is ignored entirely.
func groupCJKWords(line string) []string {
	var words []string
	var run []rune

	flush := func() {
		if len(run) > 0 {
			words = append(words, string(run))
			run = run[:0]
		}
	}

	for _, r := range line {
		if len(words) >= fingerprintWords {
			break
		}
		if unicode.IsSpace(r) {
			continue
		}
		if isKanji(r) {
			flush()
			if len(words) < fingerprintWords {
				words = append(words, string(r))
			}
			continue
		}
		run = append(run, r)
		if len(run) >= 2 {
			flush()
		}
	}
	if len(words) < fingerprintWords {
		flush()
	}
	if len(words) > fingerprintWords {
		words = words[:fingerprintWords]
	}
	return words
}

func capTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		runes := []rune(tok)
		if len(runes) > maxTokenLength {
			tok = string(runes[:maxTokenLength])
		}
		out = append(out, tok)
	}
	return out
}

func isKanji(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF ||
		r >= 0x3400 && r <= 0x4DBF // rare extension-A characters in older typesettings
}

func isKana(r rune) bool {
	return r >= 0x3040 && r <= 0x309F || // hiragana
		r >= 0x30A0 && r <= 0x30FF // katakana
}

func isFullwidth(r rune) bool {
	return r >= 0xFF00 && r <= 0xFFEF
}

// containsCJK reports whether the line holds any Japanese/Chinese script
// character, including fullwidth forms.
func containsCJK(s string) bool {
	for _, r := range s {
		if isKanji(r) || isKana(r) || isFullwidth(r) {
			return true
		}
	}
	return false
}
