package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Status is what the bottom bar reports.
type Status struct {
	Scanning   bool
	FeedClosed bool
	Samples    uint64
	Failures   uint64
	SweepDeg   float64
	MaxRange   float64
	Policy     string
	SweepMode  string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, st Status) string {
	var state string
	switch {
	case st.FeedClosed:
		state = StyleStatusError.Render("[NO SIGNAL]")
	case st.Scanning:
		state = StyleStatusScanning.Render("[SCANNING]")
	default:
		state = StyleStatusPaused.Render("[PAUSED]")
	}

	info := fmt.Sprintf(" Samples: %d  Bad: %d  Sweep: %ddeg  Range: 0-%.0fcm  Paint: %s  Mode: %s",
		st.Samples, st.Failures, int(st.SweepDeg), st.MaxRange, st.Policy, st.SweepMode)

	content := state + StyleStatusBar.Foreground(ColorGreen).Render(info)

	gap := width - 2 - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}

	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
