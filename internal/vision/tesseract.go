package vision

import (
	"context"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/fumikura/novelmatch/internal/common"
)

// TesseractDetector implements Detector on a local Tesseract install via
// gosseract. It exists for environments without Cloud Vision access; the
// verbose bounding boxes carry the block/paragraph structure needed to
// rebuild the same hierarchy the Google provider produces.
type TesseractDetector struct {
	languages   []string
	tessdataDir string
	logger      *slog.Logger
}

func NewTesseractDetector(languages string, tessdataDir string, logger *slog.Logger) *TesseractDetector {
	if logger == nil {
		logger = slog.Default()
	}
	langs := strings.Split(languages, "+")
	if languages == "" {
		langs = []string{"eng"}
	}
	return &TesseractDetector{
		languages:   langs,
		tessdataDir: tessdataDir,
		logger:      logger,
	}
}

func (d *TesseractDetector) Detect(ctx context.Context, image []byte) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	client := gosseract.NewClient()
	defer client.Close()

	if d.tessdataDir != "" {
		if err := client.SetTessdataPrefix(d.tessdataDir); err != nil {
			return nil, common.NewAppError(common.CodeVisionAPIError, "failed to set tessdata prefix", err)
		}
	}
	if err := client.SetLanguage(d.languages...); err != nil {
		return nil, common.NewAppError(common.CodeVisionAPIError, "failed to set languages", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, common.NewAppError(common.CodeVisionAPIError, "failed to set image", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, common.NewAppError(common.CodeVisionAPIError, "text recognition failed", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, common.NewAppError(common.CodeVisionAPIError, "bounding box extraction failed", err)
	}

	return fromVerboseBoxes(text, boxes, d.languages), nil
}

// fromVerboseBoxes rebuilds the page/block/paragraph hierarchy from
// tesseract's flat word list using its block and paragraph numbering.
func fromVerboseBoxes(fullText string, boxes []gosseract.BoundingBox, languages []string) *Result {
	page := Page{Languages: languages}

	var (
		curBlock    *Block
		curPar      *Paragraph
		lastBlockNo = -1
		lastParNo   = -1
	)
	flushPar := func() {
		if curPar != nil && curBlock != nil {
			curBlock.Paragraphs = append(curBlock.Paragraphs, *curPar)
		}
		curPar = nil
	}
	flushBlock := func() {
		flushPar()
		if curBlock != nil {
			page.Blocks = append(page.Blocks, *curBlock)
		}
		curBlock = nil
	}

	for _, b := range boxes {
		if b.BlockNum != lastBlockNo {
			flushBlock()
			curBlock = &Block{}
			lastBlockNo = b.BlockNum
			lastParNo = -1
		}
		if b.ParNum != lastParNo {
			flushPar()
			curPar = &Paragraph{}
			lastParNo = b.ParNum
		}

		word := Word{
			Box: BoundingBox{
				MinX: float64(b.Box.Min.X),
				MinY: float64(b.Box.Min.Y),
				MaxX: float64(b.Box.Max.X),
				MaxY: float64(b.Box.Max.Y),
			},
			Confidence: b.Confidence, // already 0-100
		}
		for _, r := range b.Word {
			word.Symbols = append(word.Symbols, Symbol{Text: string(r), Confidence: b.Confidence})
		}
		curPar.Words = append(curPar.Words, word)
	}
	flushBlock()

	return &Result{
		Pages:    []Page{page},
		FullText: strings.TrimSpace(fullText),
	}
}
