package radar

import (
	"fmt"
	"math"

	"servo-radar.klederson.com/internal/config"
)

// SpokeLabelOffset is how far beyond the outer ring bearing labels sit.
const SpokeLabelOffset = 32.0

// Ring is one range ring of the polar grid.
type Ring struct {
	Distance float64
	Radius   float64
	Label    string
	LabelPos Point // relative to Grid.Center
}

// Spoke is one labelled bearing line from the origin to the outer ring.
type Spoke struct {
	Bearing  float64
	Radians  float64
	End      Point // relative to Grid.Center
	LabelPos Point // relative to Grid.Center
	Label    string
}

// Grid is the static polar background. It is computed once from the display
// size and never modified.
type Grid struct {
	Width, Height float64
	Center        Point
	DisplayRadius float64
	MaxRange      float64
	Rings         []Ring
	Spokes        []Spoke
}

// NewGrid lays out rings and spokes for a display of the given size. The
// origin sits near the bottom so the half circle fills the display.
func NewGrid(width, height float64, d config.Display) *Grid {
	width = math.Max(width, 0)
	height = math.Max(height, 0)
	r := math.Min(width, height) * 0.5

	g := &Grid{
		Width:         width,
		Height:        height,
		Center:        Point{X: width * 0.5, Y: height * 0.745},
		DisplayRadius: r,
		MaxRange:      d.MaxRange,
	}

	for _, dist := range d.Rings {
		rr := g.Radius(dist)
		g.Rings = append(g.Rings, Ring{
			Distance: dist,
			Radius:   rr,
			Label:    fmt.Sprintf("%g", dist),
			LabelPos: Point{X: rr, Y: 0},
		})
	}

	for _, b := range d.Bearings {
		b = ClampBearing(b)
		g.Spokes = append(g.Spokes, Spoke{
			Bearing:  b,
			Radians:  AngleToRadians(b),
			End:      BearingPoint(b, r),
			LabelPos: BearingPoint(b, r+SpokeLabelOffset),
			Label:    fmt.Sprintf("%g°", b),
		})
	}

	return g
}

// Radius converts a distance to a radius on this grid.
func (g *Grid) Radius(distance float64) float64 {
	return Radius(distance, g.MaxRange, g.DisplayRadius)
}

// Point returns the absolute screen position of a bearing and distance.
func (g *Grid) Point(bearing, distance float64) Point {
	return g.Center.Add(BearingPoint(ClampBearing(bearing), g.Radius(distance)))
}
