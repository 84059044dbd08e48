package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderBearingDial draws a half dial with a pointer toward the last echo.
// bearing is in servo degrees (0 left, 90 up, 180 right); the pointer grows
// with distance/maxRange.
func RenderBearingDial(width, height int, bearing, distance, maxRange float64) string {
	if width < 9 || height < 4 {
		return ""
	}

	grid := make([][]byte, height)
	isPointer := make([][]bool, height)
	for i := range grid {
		grid[i] = make([]byte, width)
		isPointer[i] = make([]bool, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	fcx := float64(width-1) / 2.0
	fcy := float64(height - 1)
	rx := fcx - 1.0 // horizontal radius in columns
	ry := fcy - 1.0 // vertical radius in rows
	if rx < 3 {
		rx = 3
	}
	if ry < 2 {
		ry = 2
	}

	// arc from bearing 0 (left) over the top to 180 (right)
	steps := 60
	for i := 0; i <= steps; i++ {
		a := dialAngle(float64(i) * 180 / float64(steps))
		col := int(math.Round(fcx + rx*math.Sin(a)))
		row := int(math.Round(fcy - ry*math.Cos(a)))
		setGrid(grid, width, height, col, row, dialChar(a))
	}

	cx := int(math.Round(fcx))
	cy := int(math.Round(fcy))

	// baseline
	for c := cx - int(rx) + 1; c < cx+int(rx); c++ {
		if c != cx {
			setGrid(grid, width, height, c, cy, '.')
		}
	}
	setGrid(grid, width, height, cx, cy, '+')

	frac := 0.0
	if maxRange > 0 {
		frac = math.Max(0, math.Min(distance/maxRange, 1))
	}
	a := dialAngle(math.Max(0, math.Min(bearing, 180)))
	sinA, cosA := math.Sin(a), math.Cos(a)

	shaftSteps := int(math.Max(rx, ry) * frac)
	tipCol, tipRow := cx, cy
	for s := 1; s <= shaftSteps; s++ {
		t := float64(s) / float64(shaftSteps) * frac
		col := int(math.Round(fcx + t*rx*sinA))
		row := int(math.Round(fcy - t*ry*cosA))
		if col >= 0 && col < width && row >= 0 && row < height {
			grid[row][col] = dialShaftChar(a)
			isPointer[row][col] = true
			tipCol, tipRow = col, row
		}
	}
	if shaftSteps > 0 {
		grid[tipRow][tipCol] = '*'
	}

	pointerSty := lipgloss.NewStyle().Foreground(lipgloss.Color(proximityColor(frac))).Bold(true)
	ringSty := lipgloss.NewStyle().Foreground(ColorDimGreen)
	axisSty := lipgloss.NewStyle().Foreground(lipgloss.Color("#003300"))
	markSty := lipgloss.NewStyle().Foreground(ColorMatrixGreen).Bold(true)

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			ch := grid[row][col]
			switch {
			case isPointer[row][col]:
				sb.WriteString(pointerSty.Render(string(ch)))
			case ch == '+':
				sb.WriteString(markSty.Render(string(ch)))
			case ch == '.':
				sb.WriteString(axisSty.Render(string(ch)))
			case ch != ' ':
				sb.WriteString(ringSty.Render(string(ch)))
			default:
				sb.WriteByte(' ')
			}
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

// dialAngle converts a servo bearing to radians clockwise from up.
func dialAngle(bearing float64) float64 {
	return (bearing - 90) * math.Pi / 180
}

func setGrid(grid [][]byte, w, h, col, row int, ch byte) {
	if col >= 0 && col < w && row >= 0 && row < h {
		grid[row][col] = ch
	}
}

// dialChar is the arc character at angle a (clockwise from up).
func dialChar(a float64) byte {
	switch sector(a) {
	case 0, 4:
		return '-'
	case 1, 5:
		return '\\'
	case 2, 6:
		return '|'
	default:
		return '/'
	}
}

// dialShaftChar is the pointer character for direction a.
func dialShaftChar(a float64) byte {
	switch sector(a) {
	case 0, 4:
		return '|'
	case 2, 6:
		return '-'
	case 1, 5:
		return '/'
	default:
		return '\\'
	}
}

// sector buckets an angle into eight 45 degree sectors, 0 = up.
func sector(a float64) int {
	for a < 0 {
		a += 2 * math.Pi
	}
	for a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	return int(math.Round(a/(math.Pi/4))) % 8
}
