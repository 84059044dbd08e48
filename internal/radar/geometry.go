package radar

import (
	"math"

	"servo-radar.klederson.com/internal/config"
)

// Point is a screen offset in pixels (or cells), y growing downward.
type Point struct {
	X, Y float64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// RotateBearing shifts a servo bearing so that 90 (straight ahead) becomes 0.
func RotateBearing(bearing float64) float64 {
	return bearing - 90
}

// AngleToRadians converts a servo bearing to a display angle in radians,
// measured counter-clockwise from "up". Bearing 90 is 0, bearing 0 lies on
// the left (+π/2) and bearing 180 on the right (-π/2).
func AngleToRadians(bearing float64) float64 {
	return -RotateBearing(bearing) * math.Pi / 180
}

// Polar returns the screen offset of a point at display angle theta and
// radius r from the origin.
func Polar(theta, r float64) Point {
	return Point{X: -r * math.Sin(theta), Y: -r * math.Cos(theta)}
}

// BearingPoint is Polar for a servo bearing.
func BearingPoint(bearing, r float64) Point {
	return Polar(AngleToRadians(bearing), r)
}

// Radius converts a distance to a display radius. Distances are clamped to
// [0, maxRange] so out-of-range echoes land on the outer ring.
func Radius(distance, maxRange, displayRadius float64) float64 {
	if maxRange <= 0 {
		return 0
	}
	return clamp(distance, 0, maxRange) / maxRange * displayRadius
}

// ClampBearing limits a bearing to the servo's half circle.
func ClampBearing(bearing float64) float64 {
	return clamp(bearing, 0, 180)
}

// CellDistance computes the distance from a cell to the radar center,
// accounting for terminal aspect ratio.
func CellDistance(col, row, centerX, centerY int) float64 {
	dx := float64(col - centerX)
	dy := float64(row-centerY) / config.AspectRatio
	return math.Sqrt(dx*dx + dy*dy)
}

// CellBearing returns the servo bearing of a cell as seen from the center.
// ok is false for cells below the center row, which the half-disc does not
// cover.
func CellBearing(col, row, centerX, centerY int) (bearing float64, ok bool) {
	if row > centerY {
		return 0, false
	}
	dx := float64(col - centerX)
	dy := float64(row-centerY) / config.AspectRatio
	cw := math.Atan2(dx, -dy) * 180 / math.Pi // 0=up, clockwise
	return ClampBearing(90 + cw), true
}

// RingChar returns the appropriate character for a ring at the given bearing.
func RingChar(bearing float64) rune {
	switch {
	case bearing < 22.5 || bearing > 157.5:
		return '|'
	case bearing < 67.5:
		return '/'
	case bearing <= 112.5:
		return '-'
	default:
		return '\\'
	}
}

// SpokeChar returns the character for a bearing spoke.
func SpokeChar(bearing float64) rune {
	switch {
	case bearing < 22.5 || bearing > 157.5:
		return '-'
	case bearing < 67.5:
		return '\\'
	case bearing <= 112.5:
		return '|'
	default:
		return '/'
	}
}

// BearingTolerance is the angular half-width, in degrees, that one terminal
// cell covers at the given distance from the center.
func BearingTolerance(dist float64) float64 {
	if dist < 1 {
		return 180
	}
	return math.Atan(0.5/dist) * 180 / math.Pi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
