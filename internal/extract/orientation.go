package extract

import (
	"github.com/fumikura/novelmatch/constants"
	"github.com/fumikura/novelmatch/internal/vision"
)

const (
	// A word taller than 1.5x its width reads as vertically set.
	verticalAspectRatio = 1.5
	// When horizontal and vertical counts are this close, a caller-supplied
	// hint wins over the measurement.
	hintTrustMargin = 10

	verticalRatioHigh  = 0.7
	horizontalRatioLow = 0.3
)

// detectOrientation classifies the page layout from word bounding-box shapes,
// falling back to the caller's hint when the measurement is ambiguous.
func detectOrientation(words []vision.Word, hint constants.Orientation) constants.Orientation {
	if len(words) == 0 {
		return constants.OrientationUnknown
	}

	var horizontal, vertical int
	for _, w := range words {
		if w.Box.Height() > verticalAspectRatio*w.Box.Width() {
			vertical++
		} else {
			horizontal++
		}
	}

	diff := horizontal - vertical
	if diff < 0 {
		diff = -diff
	}
	if hint != "" && hint != constants.OrientationUnknown && diff < hintTrustMargin {
		return hint
	}

	ratio := float64(vertical) / float64(len(words))
	switch {
	case ratio > verticalRatioHigh:
		return constants.OrientationTategaki
	case ratio < horizontalRatioLow:
		return constants.OrientationHorizontal
	default:
		return constants.OrientationMixed
	}
}
