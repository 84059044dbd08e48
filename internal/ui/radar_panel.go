package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderRadarPanel wraps scope content with a titled border.
// The scope itself is drawn by the radar package to avoid import cycles.
func RenderRadarPanel(width, height int, maxRange float64, scope, legend string) string {
	title := StylePanelTitle.Render("SCOPE")
	scale := StyleHelp.Render(fmt.Sprintf("0-%.0fcm", maxRange))
	gap := width - 4 - lipgloss.Width(title) - lipgloss.Width(scale)
	if gap < 0 {
		gap = 0
	}
	titleLine := title + strings.Repeat(" ", gap) + scale

	content := titleLine + "\n" + scope + "\n" + legend
	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(content)
}
