package vision

import (
	"image"
	"testing"

	"github.com/otiai10/gosseract/v2"
)

func word(text string, conf float64) Word {
	w := Word{Confidence: conf}
	for _, r := range text {
		w.Symbols = append(w.Symbols, Symbol{Text: string(r), Confidence: conf})
	}
	return w
}

func TestWordTextJoinsSymbols(t *testing.T) {
	w := word("storm", 90)
	if got := w.Text(); got != "storm" {
		t.Fatalf("Text() = %q, want storm", got)
	}
}

func TestResultAccessors(t *testing.T) {
	res := &Result{
		Pages: []Page{
			{
				Languages: []string{"ja", "en"},
				Blocks: []Block{
					{Paragraphs: []Paragraph{{Words: []Word{word("a", 10), word("b", 20)}}}},
					{Paragraphs: []Paragraph{{Words: []Word{word("c", 30)}}}},
				},
			},
		},
	}
	if got := len(res.Words()); got != 3 {
		t.Fatalf("Words() returned %d words, want 3", got)
	}
	if got := res.BlockCount(); got != 2 {
		t.Fatalf("BlockCount() = %d, want 2", got)
	}
	if got := res.FirstLanguage(); got != "ja" {
		t.Fatalf("FirstLanguage() = %q, want ja", got)
	}
	if got := (&Result{}).FirstLanguage(); got != "" {
		t.Fatalf("FirstLanguage() on empty result = %q, want empty", got)
	}
}

func TestFromVerboseBoxesGrouping(t *testing.T) {
	boxes := []gosseract.BoundingBox{
		{Box: image.Rect(0, 0, 10, 10), Word: "The", Confidence: 90, BlockNum: 1, ParNum: 1},
		{Box: image.Rect(12, 0, 30, 10), Word: "storm", Confidence: 80, BlockNum: 1, ParNum: 1},
		{Box: image.Rect(0, 20, 20, 30), Word: "Unlike", Confidence: 70, BlockNum: 1, ParNum: 2},
		{Box: image.Rect(0, 50, 20, 60), Word: "Felix", Confidence: 60, BlockNum: 2, ParNum: 1},
	}

	res := fromVerboseBoxes("The storm\nUnlike\nFelix", boxes, []string{"eng"})
	if len(res.Pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(res.Pages))
	}
	page := res.Pages[0]
	if len(page.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(page.Blocks))
	}
	if len(page.Blocks[0].Paragraphs) != 2 {
		t.Fatalf("paragraphs in first block = %d, want 2", len(page.Blocks[0].Paragraphs))
	}
	first := page.Blocks[0].Paragraphs[0]
	if len(first.Words) != 2 || first.Words[0].Text() != "The" || first.Words[1].Text() != "storm" {
		t.Fatalf("unexpected first paragraph words: %+v", first.Words)
	}
	if got := first.Words[1].Box.Width(); got != 18 {
		t.Fatalf("storm width = %v, want 18", got)
	}
	if res.FirstLanguage() != "eng" {
		t.Fatalf("FirstLanguage() = %q, want eng", res.FirstLanguage())
	}
}
