package extract

import (
	"testing"

	"github.com/fumikura/novelmatch/constants"
	"github.com/fumikura/novelmatch/internal/vision"
)

// boxWord builds a word with the given bounding-box dimensions.
func boxWord(width, height float64) vision.Word {
	return vision.Word{
		Symbols:    []vision.Symbol{{Text: "x"}},
		Box:        vision.BoundingBox{MinX: 0, MinY: 0, MaxX: width, MaxY: height},
		Confidence: 90,
	}
}

func wordSet(horizontal, vertical int) []vision.Word {
	words := make([]vision.Word, 0, horizontal+vertical)
	for i := 0; i < horizontal; i++ {
		words = append(words, boxWord(20, 10))
	}
	for i := 0; i < vertical; i++ {
		words = append(words, boxWord(10, 20)) // 2:1 height to width
	}
	return words
}

func TestDetectOrientation(t *testing.T) {
	tests := []struct {
		name       string
		horizontal int
		vertical   int
		hint       constants.Orientation
		want       constants.Orientation
	}{
		{"mostly vertical", 20, 80, "", constants.OrientationTategaki},
		{"mostly horizontal", 80, 20, "", constants.OrientationHorizontal},
		{"even split is mixed", 50, 50, "", constants.OrientationMixed},
		{"close call trusts the hint", 52, 48, constants.OrientationTategaki, constants.OrientationTategaki},
		{"clear measurement overrides the hint", 95, 5, constants.OrientationTategaki, constants.OrientationHorizontal},
		{"unknown hint never wins", 52, 48, constants.OrientationUnknown, constants.OrientationMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectOrientation(wordSet(tt.horizontal, tt.vertical), tt.hint)
			if got != tt.want {
				t.Fatalf("detectOrientation(%d h, %d v, hint %q) = %s, want %s",
					tt.horizontal, tt.vertical, tt.hint, got, tt.want)
			}
		})
	}
}

func TestDetectOrientationNoWords(t *testing.T) {
	if got := detectOrientation(nil, constants.OrientationHorizontal); got != constants.OrientationUnknown {
		t.Fatalf("detectOrientation(no words) = %s, want UNKNOWN", got)
	}
}

func TestSquareWordsCountAsHorizontal(t *testing.T) {
	// Height must exceed 1.5x width to count as vertical; a square glyph box
	// does not.
	words := []vision.Word{boxWord(10, 10), boxWord(10, 14)}
	if got := detectOrientation(words, ""); got != constants.OrientationHorizontal {
		t.Fatalf("detectOrientation(square words) = %s, want HORIZONTAL", got)
	}
}
