package radar

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"servo-radar.klederson.com/internal/config"
)

var (
	colorBright = lipgloss.Color("#00FF41")
	colorMid    = lipgloss.Color("#008F11")
	colorDim    = lipgloss.Color("#004A0A")
	colorClear  = lipgloss.Color("#8B0000")

	styleCenter   = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleRing     = lipgloss.NewStyle().Foreground(colorMid)
	styleDot      = lipgloss.NewStyle().Foreground(colorDim)
	styleSweep    = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleLegEcho  = lipgloss.NewStyle().Foreground(colorBright)
	styleLegClear = lipgloss.NewStyle().Foreground(colorClear)
)

const (
	echoChar  = "#"
	clearChar = ":"
)

// scope is the cell geometry of one frame.
type scope struct {
	centerX, centerY int
	radius           float64
	maxRange         float64
	ringRadii        []float64
	bearings         []float64
	sweep            *Sweep
	marks            []PaintMark
	now              time.Time
}

// Render produces the half-disc scope as a styled string. The origin sits on
// the bottom row; bearing 90 points up.
func Render(width, height int, s *Session, now time.Time) string {
	if width < 10 || height < 4 {
		return ""
	}

	d := s.Display()
	sc := scope{
		centerX:  width / 2,
		centerY:  height - 1,
		maxRange: d.MaxRange,
		bearings: d.Bearings,
		sweep:    s.Sweep(),
		marks:    s.Marks(now),
		now:      now,
	}
	sc.radius = math.Min(float64(sc.centerX-1), float64(sc.centerY)/config.AspectRatio)
	if sc.radius < 3 {
		sc.radius = 3
	}
	for _, ring := range d.Rings {
		sc.ringRadii = append(sc.ringRadii, Radius(ring, d.MaxRange, sc.radius))
	}

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			sb.WriteString(sc.renderCell(col, row))
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (sc *scope) renderCell(col, row int) string {
	bearing, ok := CellBearing(col, row, sc.centerX, sc.centerY)
	if !ok {
		return " "
	}
	dist := CellDistance(col, row, sc.centerX, sc.centerY)
	if dist > sc.radius+0.5 {
		return " "
	}
	if col == sc.centerX && row == sc.centerY {
		return styleCenter.Render("+")
	}

	tol := BearingTolerance(dist)

	// newest mark wins where fades overlap
	rng := dist / sc.radius * sc.maxRange
	for i := len(sc.marks) - 1; i >= 0; i-- {
		m := sc.marks[i]
		if m.Covers(bearing, rng, tol) {
			return renderMark(m, sc.now)
		}
	}

	if math.Abs(bearing-sc.sweep.Degrees()) <= tol {
		return styleSweep.Render("*")
	}

	for _, b := range sc.bearings {
		if math.Abs(bearing-b) <= tol {
			return renderSweepChar(SpokeChar(b), sc.sweep, bearing)
		}
	}

	for _, ringR := range sc.ringRadii {
		if math.Abs(dist-ringR) < 0.8 {
			return renderSweepChar(RingChar(bearing), sc.sweep, bearing)
		}
	}

	return renderInteriorCell(sc.sweep, bearing)
}

func renderMark(m PaintMark, now time.Time) string {
	o := m.Opacity(now)
	if m.Kind == MarkClear {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(clearColor(o))).Render(clearChar)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(echoColor(o))).Bold(o > 0.8).Render(echoChar)
}

func renderSweepChar(ch rune, sweep *Sweep, bearing float64) string {
	color := sweepColor(sweep.Intensity(bearing))
	if color == "" {
		return styleRing.Render(string(ch))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(ch))
}

func renderInteriorCell(sweep *Sweep, bearing float64) string {
	color := sweepColor(sweep.Intensity(bearing))
	if color == "" {
		return styleDot.Render(".")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(".")
}

func sweepColor(intensity float64) string {
	if intensity <= 0 {
		return ""
	}
	if intensity > 0.8 {
		return "#00FF41"
	}
	if intensity > 0.5 {
		return "#00CC33"
	}
	if intensity > 0.3 {
		return "#00AA22"
	}
	return "#005511"
}

func echoColor(opacity float64) string {
	switch {
	case opacity > 0.75:
		return "#00FF41"
	case opacity > 0.5:
		return "#00CC33"
	case opacity > 0.25:
		return "#008F11"
	default:
		return "#004A0A"
	}
}

func clearColor(opacity float64) string {
	switch {
	case opacity > 0.66:
		return "#8B0000"
	case opacity > 0.33:
		return "#5C0000"
	default:
		return "#2E0000"
	}
}

// RenderLegend produces the scope legend line.
func RenderLegend(width int) string {
	legend := "   " +
		styleLegEcho.Render(echoChar+" echo") +
		"  " +
		styleLegClear.Render(clearChar+" clear") +
		"  " +
		styleSweep.Render("* sweep")

	pad := (width - lipgloss.Width(legend)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + legend
}
