package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// CurveStyle controls how RenderCurve draws
type CurveStyle struct {
	Point rune
	Fill  rune
	Axis  rune

	// Color picks a color per column from its velocity; nil draws uncolored
	Color func(velocity int) [3]uint8
	// Marker highlights the column holding this note; -1 for none
	Marker      int
	MarkerColor [3]uint8
}

const (
	lowLabel  = "Low Notes"
	highLabel = "High Notes"
	gutter    = 4
)

// RenderCurve draws a velocity-per-note table as a width x height graph.
// Column c shows note c*127/(width-1); row height is 127/height velocity.
// The last line labels the note axis.
func RenderCurve(table [128]int, width, height int, style CurveStyle) string {
	if width < 2 {
		width = 2
	}
	if height < 1 {
		height = 1
	}

	markerCol := -1
	if style.Marker >= 0 && style.Marker <= 127 {
		markerCol = int(math.Round(float64(style.Marker) * float64(width-1) / 127))
	}

	// rows of filled cells per column
	tops := make([]int, width)
	vels := make([]int, width)
	for c := 0; c < width; c++ {
		note := c * 127 / (width - 1)
		v := table[note]
		vels[c] = v
		top := int(math.Ceil(float64(v) / 127 * float64(height)))
		if top < 1 {
			top = 1
		}
		if top > height {
			top = height
		}
		tops[c] = top
	}

	var lines []string
	for row := height - 1; row >= 0; row-- {
		var line strings.Builder
		switch row {
		case height - 1:
			line.WriteString(fmt.Sprintf("%*d ", gutter-1, 127))
		case 0:
			line.WriteString(fmt.Sprintf("%*d ", gutter-1, 1))
		default:
			line.WriteString(strings.Repeat(" ", gutter))
		}

		for c := 0; c < width; c++ {
			var cell string
			switch {
			case row == tops[c]-1:
				cell = string(style.Point)
			case row < tops[c]-1:
				cell = string(style.Fill)
			default:
				line.WriteString(" ")
				continue
			}

			switch {
			case c == markerCol:
				cell = lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(style.MarkerColor))).Render(cell)
			case style.Color != nil:
				cell = lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(style.Color(vels[c])))).Render(cell)
			}
			line.WriteString(cell)
		}
		lines = append(lines, line.String())
	}

	lines = append(lines, strings.Repeat(" ", gutter)+strings.Repeat(string(style.Axis), width))
	lines = append(lines, strings.Repeat(" ", gutter)+axisLabels(width))
	return strings.Join(lines, "\n")
}

func axisLabels(width int) string {
	gap := width - len(lowLabel) - len(highLabel)
	if gap < 1 {
		gap = 1
	}
	return lowLabel + strings.Repeat(" ", gap) + highLabel
}
