package radar

import (
	"strings"
	"time"

	"servo-radar.klederson.com/internal/config"
	"servo-radar.klederson.com/internal/sensor"
)

// WedgeHalfWidth is the half-width in degrees of an arc paint mark. It is a
// little over half a degree so consecutive one-degree samples overlap.
const WedgeHalfWidth = 0.51

// MarkKind says what a paint mark shows.
type MarkKind int

const (
	// MarkDetected spans from the sensor to the echo.
	MarkDetected MarkKind = iota
	// MarkClear spans from the echo to the edge of the display: the beam
	// passed through without a return.
	MarkClear
)

func (k MarkKind) String() string {
	if k == MarkClear {
		return "clear"
	}
	return "detected"
}

// Shape is how a paint mark is drawn.
type Shape int

const (
	ShapeWedge Shape = iota
	ShapeLine
)

// PaintMark is one fading echo primitive. Radii are in display units of the
// grid it was painted on; ranges are the same span in sensor distance units.
type PaintMark struct {
	Kind       MarkKind
	Shape      Shape
	Bearing    float64
	HalfWidth  float64 // degrees, zero for lines
	Inner      float64
	Outer      float64
	InnerRange float64
	OuterRange float64
	Created    time.Time
	Fade       time.Duration
}

// StartRadians and EndRadians bound a wedge in display angle.
func (m PaintMark) StartRadians() float64 { return AngleToRadians(m.Bearing - m.HalfWidth) }
func (m PaintMark) EndRadians() float64   { return AngleToRadians(m.Bearing + m.HalfWidth) }

// Progress is the fraction of the fade that has elapsed, in [0, 1].
func (m PaintMark) Progress(now time.Time) float64 {
	if m.Fade <= 0 {
		return 1
	}
	return clamp(float64(now.Sub(m.Created))/float64(m.Fade), 0, 1)
}

// Opacity eases from 1 to 0 over the fade with a cubic-in curve, so marks
// stay bright for most of their life and drop off at the end.
func (m PaintMark) Opacity(now time.Time) float64 {
	t := m.Progress(now)
	return 1 - t*t*t
}

// Expired reports whether the fade has finished.
func (m PaintMark) Expired(now time.Time) bool {
	return now.Sub(m.Created) >= m.Fade
}

// Covers reports whether a bearing and distance fall inside the mark, with
// tol degrees of extra angular slack.
func (m PaintMark) Covers(bearing, distance, tol float64) bool {
	if d := bearing - m.Bearing; d > m.HalfWidth+tol || d < -m.HalfWidth-tol {
		return false
	}
	return distance >= m.InnerRange && distance <= m.OuterRange
}

// Policy turns a clamped sample into paint marks.
type Policy interface {
	Name() string
	Paint(s sensor.Sample, g *Grid, now time.Time, fade time.Duration) []PaintMark
}

// ArcPolicy paints narrow wedges.
type ArcPolicy struct{}

// LinePolicy paints radial line segments.
type LinePolicy struct{}

func (ArcPolicy) Name() string  { return config.PolicyArc }
func (LinePolicy) Name() string { return config.PolicyLine }

func (ArcPolicy) Paint(s sensor.Sample, g *Grid, now time.Time, fade time.Duration) []PaintMark {
	return paint(s, g, now, fade, ShapeWedge, WedgeHalfWidth)
}

func (LinePolicy) Paint(s sensor.Sample, g *Grid, now time.Time, fade time.Duration) []PaintMark {
	return paint(s, g, now, fade, ShapeLine, 0)
}

func paint(s sensor.Sample, g *Grid, now time.Time, fade time.Duration, shape Shape, half float64) []PaintMark {
	echo := g.Radius(s.Distance)
	marks := []PaintMark{{
		Kind:       MarkDetected,
		Shape:      shape,
		Bearing:    s.Angle,
		HalfWidth:  half,
		Inner:      0,
		Outer:      echo,
		InnerRange: 0,
		OuterRange: s.Distance,
		Created:    now,
		Fade:       fade,
	}}

	if s.Distance < g.MaxRange {
		marks = append(marks, PaintMark{
			Kind:       MarkClear,
			Shape:      shape,
			Bearing:    s.Angle,
			HalfWidth:  half,
			Inner:      echo,
			Outer:      g.DisplayRadius,
			InnerRange: s.Distance,
			OuterRange: g.MaxRange,
			Created:    now,
			Fade:       fade,
		})
	}
	return marks
}

// PolicyFor returns the policy with the given name, defaulting to arcs.
func PolicyFor(name string) Policy {
	if strings.EqualFold(name, config.PolicyLine) {
		return LinePolicy{}
	}
	return ArcPolicy{}
}
