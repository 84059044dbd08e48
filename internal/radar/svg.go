package radar

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	svg "github.com/ajstarks/svgo"
)

// SVG colours match the terminal palette.
const (
	svgGrid     = "#3a3"
	svgDetected = "#3a3"
	svgClear    = "#8b0000"
	svgSweep    = "#00ff41"
)

// WriteSVG draws one frame of the session: grid, live paint marks at their
// current opacity, the sweep line with its trail, and the readout.
func WriteSVG(w io.Writer, s *Session, now time.Time) {
	g := s.Grid()
	width, height := int(g.Width), int(g.Height)
	fontSize := math.Max(g.Width*0.018, 8)
	font := fmt.Sprintf("font-family:'DS-Digital',monospace;font-size:%.1fpx;fill:%s", fontSize, svgGrid)

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:#000")
	canvas.Gtransform(fmt.Sprintf("translate(%.2f,%.2f)", g.Center.X, g.Center.Y))

	for _, ring := range g.Rings {
		canvas.Path(ringPath(ring.Radius), fmt.Sprintf("fill:none;stroke:%s;stroke-width:4", svgGrid))
		canvas.Text(round(ring.LabelPos.X-fontSize*0.7), round(ring.LabelPos.Y+fontSize), ring.Label,
			font+";text-anchor:middle")
	}
	for _, sp := range g.Spokes {
		canvas.Line(0, 0, round(sp.End.X), round(sp.End.Y), fmt.Sprintf("stroke:%s;stroke-width:4", svgGrid))
		canvas.Text(round(sp.LabelPos.X), round(sp.LabelPos.Y), sp.Label, font+";text-anchor:middle")
	}

	for _, m := range s.Marks(now) {
		color := svgDetected
		if m.Kind == MarkClear {
			color = svgClear
		}
		opacity := m.Opacity(now)
		if m.Shape == ShapeLine {
			a := BearingPoint(m.Bearing, m.Inner)
			b := BearingPoint(m.Bearing, m.Outer)
			canvas.Line(round(a.X), round(a.Y), round(b.X), round(b.Y),
				fmt.Sprintf("stroke:%s;stroke-width:3;opacity:%.3f", color, opacity))
			continue
		}
		canvas.Path(WedgePath(m.StartRadians(), m.EndRadians(), m.Inner, m.Outer),
			fmt.Sprintf("fill:%s;opacity:%.3f", color, opacity))
	}

	sw := s.Sweep()
	if sw.TrailDeg > 0 {
		from := sw.Degrees() - sw.TrailDeg*sw.Direction()
		canvas.Path(WedgePath(AngleToRadians(ClampBearing(from)), sw.Radians(), 0, g.DisplayRadius),
			fmt.Sprintf("fill:%s;opacity:0.15", svgSweep))
	}
	tip := Polar(sw.Radians(), g.DisplayRadius)
	canvas.Line(0, 0, round(tip.X), round(tip.Y), fmt.Sprintf("stroke:%s;stroke-width:2", svgSweep))
	canvas.Gend()

	r := s.Readout()
	y := round(g.Height * 0.77)
	canvas.Text(round(g.Width*0.125), y, r.Bearing, font)
	canvas.Text(round(g.Width*0.218), y, r.Range, font)
	canvas.Text(round(g.Width*0.313), y, r.Time, font)
	canvas.End()
}

// WedgePath returns SVG path data for an annular sector between two display
// angles, relative to the origin. An inner radius of zero gives a pie slice.
func WedgePath(from, to, inner, outer float64) string {
	if from < to {
		from, to = to, from
	}
	// display angles run counter-clockwise, so going from the larger to the
	// smaller angle is a clockwise (positive) sweep on screen
	large := 0
	if from-to > math.Pi {
		large = 1
	}
	o1, o2 := Polar(from, outer), Polar(to, outer)

	var sb strings.Builder
	if inner <= 0 {
		fmt.Fprintf(&sb, "M0,0 L%s A%s,%s 0 %d 1 %s Z",
			pt(o1), num(outer), num(outer), large, pt(o2))
		return sb.String()
	}
	i1, i2 := Polar(from, inner), Polar(to, inner)
	fmt.Fprintf(&sb, "M%s A%s,%s 0 %d 1 %s L%s A%s,%s 0 %d 0 %s Z",
		pt(o1), num(outer), num(outer), large, pt(o2),
		pt(i2), num(inner), num(inner), large, pt(i1))
	return sb.String()
}

func ringPath(r float64) string {
	return fmt.Sprintf("M%s,0 A%s,%s 0 0 1 %s,0", num(-r), num(r), num(r), num(r))
}

func pt(p Point) string {
	return num(p.X) + "," + num(p.Y)
}

func num(v float64) string {
	if math.Abs(v) < 0.005 {
		return "0"
	}
	return fmt.Sprintf("%.2f", v)
}

func round(v float64) int {
	return int(math.Round(v))
}
