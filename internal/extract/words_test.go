package extract

import (
	"reflect"
	"testing"
)

func TestExtractLineWordsLatin(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"lowercases and takes first three", "The Storm Was upon them", []string{"the", "storm", "was"}},
		{"fewer than three words kept", "Unlike any", []string{"unlike", "any"}},
		{"collapses runs of whitespace", "Felix   had \t seen", []string{"felix", "had", "seen"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractLineWords(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("extractLineWords(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestExtractLineWordsCJKWhitespaceFirst(t *testing.T) {
	// When the provider already spaced the tokens, they are used verbatim.
	got := extractLineWords("吾輩 は 猫 である")
	want := []string{"吾輩", "は", "猫"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("extractLineWords = %v, want %v", got, want)
	}
}

// The grouping heuristic is a pinned approximation, not a tokenizer: each
// kanji closes a word on its own, two kana close a word together.
func TestGroupCJKWords(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"kanji then trailing kana", "吾輩は猫である", []string{"吾", "輩", "は"}},
		{"kana run opens the line", "それは長い夜だった", []string{"それ", "は", "長"}},
		{"katakana runs", "アメリカの話", []string{"アメ", "リカ", "の"}},
		{"spaces ignored by the walk", "吾 輩は", []string{"吾", "輩", "は"}},
		{"short line yields partial result", "猫だ", []string{"猫", "だ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := groupCJKWords(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("groupCJKWords(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestContainsCJK(t *testing.T) {
	if containsCJK("plain latin text") {
		t.Fatal("latin text flagged as CJK")
	}
	for _, s := range []string{"ひらがな", "カタカナ", "漢字", "ＦＵＬＬ"} {
		if !containsCJK(s) {
			t.Fatalf("%q not flagged as CJK", s)
		}
	}
}

func TestCapTokensTruncatesLongTokens(t *testing.T) {
	long := make([]rune, 150)
	for i := range long {
		long[i] = 'x'
	}
	got := capTokens([]string{string(long)})
	if len([]rune(got[0])) != maxTokenLength {
		t.Fatalf("token length = %d, want %d", len([]rune(got[0])), maxTokenLength)
	}
}
