package constants

// Orientation classifies the text layout of a scanned page.
type Orientation string

const (
	OrientationHorizontal Orientation = "HORIZONTAL"
	OrientationTategaki   Orientation = "VERTICAL_TATEGAKI" // vertical top-to-bottom, right-to-left
	OrientationMixed      Orientation = "MIXED"
	OrientationUnknown    Orientation = "UNKNOWN"
)

// ValidOrientation reports whether s is one of the known orientation values.
// The empty string is allowed as "no hint".
func ValidOrientation(s Orientation) bool {
	switch s {
	case "", OrientationHorizontal, OrientationTategaki, OrientationMixed, OrientationUnknown:
		return true
	}
	return false
}
