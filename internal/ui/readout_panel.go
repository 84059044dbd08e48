package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"servo-radar.klederson.com/internal/radar"
	"servo-radar.klederson.com/internal/relay"
)

// Readout is everything the side panel shows.
type Readout struct {
	Text     radar.Readout
	Bearing  float64 // last clamped bearing
	Range    float64 // last clamped range
	Nearest  float64
	MaxRange float64
	Sweep    time.Duration
	History  []float64
	Stats    relay.Stats
}

// RenderReadoutPanel renders the bearing/range/time readout, a range bar,
// the range history and relay counters.
func RenderReadoutPanel(r Readout, width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}

	title := StylePanelTitle.Render("READOUT")
	sep := StyleSeparator.Render(strings.Repeat("-", innerW))
	lines := []string{title, sep, ""}

	// BRG/RNG/T are shown exactly as the session formats them
	for _, text := range []string{r.Text.Bearing, r.Text.Range, r.Text.Time} {
		label, value, _ := strings.Cut(text, ": ")
		lines = append(lines, StyleFieldLabel.Render(fmt.Sprintf("  %-5s", label))+StyleFieldValue.Render(value))
	}
	lines = append(lines, "")

	barWidth := innerW - 16
	if barWidth < 8 {
		barWidth = 8
	}
	lines = append(lines, StyleFieldLabel.Render("  Range ")+renderRangeBar(r.Range, r.MaxRange, barWidth))

	nearest := StyleFieldValue.Render(fmt.Sprintf("%.0fcm", r.Nearest))
	if r.Nearest >= r.MaxRange {
		nearest = StyleHelp.Render("none")
	}
	lines = append(lines, StyleFieldLabel.Render("  Nearest ")+nearest, "")

	if len(r.History) > 0 {
		sparkW := innerW - 4
		if sparkW < 10 {
			sparkW = 10
		}
		lines = append(lines, StyleFieldLabel.Render("  Range History:"))
		lines = append(lines, "  "+StyleSparkline.Render(renderSparkline(r.History, sparkW)), "")
	}

	lines = append(lines, StyleFieldLabel.Render("  Relay"))
	fields := []struct {
		label string
		value string
	}{
		{"Lines", fmt.Sprintf("%d", r.Stats.Lines)},
		{"Samples", fmt.Sprintf("%d", r.Stats.Forwarded)},
		{"Bad", fmt.Sprintf("%d", r.Stats.ParseFailures)},
		{"Dropped", fmt.Sprintf("%d", r.Stats.Dropped)},
		{"Viewers", fmt.Sprintf("%d", r.Stats.Subscribers)},
		{"Sweep", formatPeriod(r.Sweep)},
	}
	for _, f := range fields {
		style := StyleFieldValue
		if f.label == "Bad" && r.Stats.ParseFailures > 0 {
			style = StyleClearValue
		}
		lines = append(lines, StyleFieldLabel.Render(fmt.Sprintf("    %-9s", f.label))+style.Render(f.value))
	}

	// the dial takes whatever height is left
	dialH := height - 2 - len(lines) - 1
	if dialH > 9 {
		dialH = 9
	}
	dialW := innerW
	if dialW > dialH*3 {
		dialW = dialH * 3 // keep roughly proportional
	}
	if dial := RenderBearingDial(dialW, dialH, r.Bearing, r.Range, r.MaxRange); dial != "" {
		lines = append(lines, "")
		pad := strings.Repeat(" ", max(0, (innerW-dialW)/2))
		for _, dl := range strings.Split(dial, "\n") {
			lines = append(lines, pad+dl)
		}
	}

	for len(lines) < height-2 {
		lines = append(lines, "")
	}
	if len(lines) > height-2 && height > 2 {
		lines = lines[:height-2]
	}

	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
}

// renderRangeBar fills proportionally to distance; closer echoes glow brighter.
func renderRangeBar(distance, maxRange float64, width int) string {
	ratio := 0.0
	if maxRange > 0 {
		ratio = distance / maxRange
	}
	ratio = math.Max(0, math.Min(1, ratio))
	filled := int(math.Round(ratio * float64(width)))

	bar := strings.Repeat("|", filled) + strings.Repeat("-", width-filled)
	filledPart := lipgloss.NewStyle().Foreground(lipgloss.Color(proximityColor(ratio))).Render(bar[:filled])
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(bar[filled:])
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	rng := maxV - minV
	if rng < 1 {
		rng = 1
	}

	// Take last `width` values
	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int((values[i] - minV) / rng * float64(len(chars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		sb.WriteByte(chars[idx])
	}

	return sb.String()
}

// proximityColor maps a range fraction to a colour, nearest brightest.
func proximityColor(ratio float64) string {
	switch {
	case ratio < 0.2:
		return "#00FF41"
	case ratio < 0.4:
		return "#00CC33"
	case ratio < 0.6:
		return "#00AA22"
	case ratio < 0.8:
		return "#008F11"
	default:
		return "#005511"
	}
}

func formatPeriod(d time.Duration) string {
	if d <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}
