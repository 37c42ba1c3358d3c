// Package vision defines the text-detection capability the extraction engine
// is written against: given page-image bytes, return a hierarchical result of
// pages, blocks, paragraphs, words and symbols with per-word bounding boxes
// and confidence. Providers (Google Cloud Vision, Tesseract) map their native
// responses into this immutable tree so the extraction tie-breaks stay
// unit-testable without a live client.
package vision

import (
	"context"
	"strings"
)

// BoundingBox is an axis-aligned box in page pixel coordinates.
type BoundingBox struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (b BoundingBox) Width() float64  { return b.MaxX - b.MinX }
func (b BoundingBox) Height() float64 { return b.MaxY - b.MinY }

// Symbol is a single recognized glyph within a word.
type Symbol struct {
	Text       string
	Confidence float64 // 0-100
}

// Word is a run of symbols with a box and a confidence score.
type Word struct {
	Symbols    []Symbol
	Box        BoundingBox
	Confidence float64 // 0-100
}

// Text concatenates the word's symbol stream.
func (w Word) Text() string {
	var sb strings.Builder
	for _, s := range w.Symbols {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Paragraph is an ordered run of words; one paragraph reconstructs to one
// line for fingerprinting purposes.
type Paragraph struct {
	Words []Word
}

// Block is a provider-detected text region.
type Block struct {
	Paragraphs []Paragraph
}

// Page is one processed page image.
type Page struct {
	Blocks    []Block
	Languages []string // provider language hints, most likely first
	Width     float64
	Height    float64
}

// Result is the full detection output for one image.
type Result struct {
	Pages    []Page
	FullText string
}

// Words returns every word across all pages in provider order.
func (r *Result) Words() []Word {
	var out []Word
	for _, p := range r.Pages {
		for _, b := range p.Blocks {
			for _, par := range b.Paragraphs {
				out = append(out, par.Words...)
			}
		}
	}
	return out
}

// BlockCount returns the total number of blocks across all pages.
func (r *Result) BlockCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Blocks)
	}
	return n
}

// FirstLanguage returns the first language hint reported for the first page,
// or "" when the provider reported none.
func (r *Result) FirstLanguage() string {
	for _, p := range r.Pages {
		if len(p.Languages) > 0 {
			return p.Languages[0]
		}
	}
	return ""
}

// Detector is the opaque text-detection capability.
type Detector interface {
	Detect(ctx context.Context, image []byte) (*Result, error)
}
