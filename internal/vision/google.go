package vision

import (
	"context"
	"log/slog"

	visionapi "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/fumikura/novelmatch/internal/common"
)

// GoogleDetector implements Detector on the Cloud Vision document text
// detection endpoint.
type GoogleDetector struct {
	client *visionapi.ImageAnnotatorClient
	logger *slog.Logger
}

func NewGoogleDetector(ctx context.Context, logger *slog.Logger) (*GoogleDetector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := visionapi.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, common.NewAppError(common.CodeVisionAPIError, "failed to create vision client", err)
	}
	return &GoogleDetector{client: client, logger: logger}, nil
}

func (d *GoogleDetector) Close() error {
	return d.client.Close()
}

func (d *GoogleDetector) Detect(ctx context.Context, image []byte) (*Result, error) {
	annotation, err := d.client.DetectDocumentText(ctx, &visionpb.Image{Content: image}, nil)
	if err != nil {
		d.logger.Error("vision document text detection failed", "error", err)
		return nil, common.NewAppError(common.CodeVisionAPIError, "document text detection failed", err)
	}
	if annotation == nil {
		return &Result{}, nil
	}
	return fromTextAnnotation(annotation), nil
}

// fromTextAnnotation converts the provider proto into the immutable tree,
// scaling confidences from [0,1] to [0,100].
func fromTextAnnotation(ta *visionpb.TextAnnotation) *Result {
	res := &Result{FullText: ta.GetText()}
	for _, p := range ta.GetPages() {
		page := Page{
			Width:  float64(p.GetWidth()),
			Height: float64(p.GetHeight()),
		}
		for _, dl := range p.GetProperty().GetDetectedLanguages() {
			if code := dl.GetLanguageCode(); code != "" {
				page.Languages = append(page.Languages, code)
			}
		}
		for _, b := range p.GetBlocks() {
			block := Block{}
			for _, par := range b.GetParagraphs() {
				paragraph := Paragraph{}
				for _, w := range par.GetWords() {
					word := Word{
						Box:        boxFromVertices(w.GetBoundingBox()),
						Confidence: float64(w.GetConfidence()) * 100,
					}
					for _, s := range w.GetSymbols() {
						word.Symbols = append(word.Symbols, Symbol{
							Text:       s.GetText(),
							Confidence: float64(s.GetConfidence()) * 100,
						})
					}
					paragraph.Words = append(paragraph.Words, word)
				}
				block.Paragraphs = append(block.Paragraphs, paragraph)
			}
			page.Blocks = append(page.Blocks, block)
		}
		res.Pages = append(res.Pages, page)
	}
	return res
}

func boxFromVertices(poly *visionpb.BoundingPoly) BoundingBox {
	vs := poly.GetVertices()
	if len(vs) == 0 {
		return BoundingBox{}
	}
	box := BoundingBox{
		MinX: float64(vs[0].GetX()),
		MinY: float64(vs[0].GetY()),
		MaxX: float64(vs[0].GetX()),
		MaxY: float64(vs[0].GetY()),
	}
	for _, v := range vs[1:] {
		x, y := float64(v.GetX()), float64(v.GetY())
		if x < box.MinX {
			box.MinX = x
		}
		if y < box.MinY {
			box.MinY = y
		}
		if x > box.MaxX {
			box.MaxX = x
		}
		if y > box.MaxY {
			box.MaxY = y
		}
	}
	return box
}
