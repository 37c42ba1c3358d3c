// Package extract derives the 3x3-word fingerprint from a scanned page image:
// it runs the text-detection provider once, classifies script orientation from
// word shapes, filters out non-content lines, and takes the first three words
// of the first three surviving lines.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fumikura/novelmatch/constants"
	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/entity"
	"github.com/fumikura/novelmatch/internal/vision"
)

const minContentLines = 3

// Engine turns page-image bytes into an extracted fingerprint.
type Engine struct {
	detector vision.Detector
	logger   *slog.Logger
}

func NewEngine(detector vision.Detector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{detector: detector, logger: logger}
}

// Extract runs the full pipeline over one page image. It fails with
// NO_TEXT_EXTRACTED when fewer than three usable content lines survive
// filtering, VISION_API_ERROR when the provider call fails, and
// PROCESSING_TIMEOUT when the provider call exceeds its deadline.
func (e *Engine) Extract(ctx context.Context, image []byte, hint constants.Orientation) (*entity.Fingerprint, error) {
	start := time.Now()

	res, err := e.detector.Detect(ctx, image)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, common.NewAppError(common.CodeProcessingTimeout, "text detection timed out", err)
		}
		if common.HasCode(err, common.CodeVisionAPIError) {
			return nil, err
		}
		return nil, common.NewAppError(common.CodeVisionAPIError, "text detection failed", err)
	}

	words := res.Words()
	orientation := detectOrientation(words, hint)

	lines := filterContentLines(reconstructLines(res))
	if len(lines) < minContentLines {
		return nil, common.NewAppError(common.CodeNoTextExtracted,
			"fewer than 3 usable content lines on the page", nil)
	}

	fp := &entity.Fingerprint{
		Line1Words:       extractLineWords(lines[0]),
		Line2Words:       extractLineWords(lines[1]),
		Line3Words:       extractLineWords(lines[2]),
		RawText:          res.FullText,
		Confidence:       meanConfidence(words),
		Orientation:      orientation,
		DetectedLanguage: res.FirstLanguage(),
		BlockCount:       res.BlockCount(),
		ProcessingMS:     time.Since(start).Milliseconds(),
	}

	e.logger.Debug("fingerprint extracted",
		"orientation", orientation,
		"confidence", fp.Confidence,
		"blocks", fp.BlockCount,
		"lines_kept", len(lines),
		"duration_ms", fp.ProcessingMS,
	)
	return fp, nil
}

// meanConfidence averages word-level confidence across the whole page, not
// just the fingerprint lines.
func meanConfidence(words []vision.Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}
