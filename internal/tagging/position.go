// ABOUTME: Normalized 2D positions for shopping dots anchored on post images.
// ABOUTME: Converts between drag deltas, UI percentages, and API decimal fractions.
package tagging

import "math"

// Position is a dot location in percentages of the image box, 0-100 on each axis.
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Drag bounds keep the dot's label card on screen near the bottom/right edges.
const (
	MinX = 2
	MaxX = 93
	MinY = 2
	MaxY = 83
)

// Center is the fallback position when a stored value is missing or malformed.
var Center = Position{X: 50, Y: 50}

// ApplyDragDelta moves a position by a pixel delta inside a container of the
// given pixel size, clamping to the drag bounds. A non-positive container
// dimension leaves that axis unchanged.
func ApplyDragDelta(cur Position, dxPx, dyPx, widthPx, heightPx float64) Position {
	next := cur
	if widthPx > 0 {
		next.X = clamp(cur.X+(dxPx/widthPx)*100, MinX, MaxX)
	}
	if heightPx > 0 {
		next.Y = clamp(cur.Y+(dyPx/heightPx)*100, MinY, MaxY)
	}
	return next
}

// ToAPIFraction converts a UI percentage to the API's 0-1 decimal form.
// Malformed input maps to the image center.
func ToAPIFraction(pct float64) float64 {
	if !valid(pct) {
		return 0.5
	}
	return pct / 100
}

// FromAPIFraction converts an API decimal fraction to a UI percentage.
// Malformed input maps to the image center.
func FromAPIFraction(frac float64) float64 {
	if !valid(frac) {
		return 50
	}
	return frac * 100
}

// FromAPIPosition builds a Position from API fractions, centering bad values.
func FromAPIPosition(x, y float64) Position {
	return Position{X: FromAPIFraction(x), Y: FromAPIFraction(y)}
}

// DefaultLayout returns the spread-out starting position for the i-th item in
// the composer, used until the user moves the dot.
func DefaultLayout(i int) Position {
	return Position{
		X: clamp(25+float64(i)*25, MinX, MaxX),
		Y: clamp(25+float64(i)*20, MinY, MaxY),
	}
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
