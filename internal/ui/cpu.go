package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lesys-monitor/lesys/internal/format"
)

func (m SystemModel) renderCPU(width int) string {
	s := m.snap
	header := m.styles.Title.Render("CPU ") + m.styles.MetricValue.Render(format.Percent(s.CPUPercent))
	if s.CPUFrequencyGHz != nil {
		header += m.styles.MetricLabel.Render(fmt.Sprintf("  %.2f GHz", *s.CPUFrequencyGHz))
	}
	if s.CPULowConfidence {
		header += m.styles.MetricLabel.Render("  (warming up)")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		renderBar(m.styles, s.CPUPercent, 100, width, "Util"),
	)
}

// renderGraph draws data (0-100) as a block chart, newest on the right.
func renderGraph(styles Styles, data []float64, width, height int) string {
	if len(data) == 0 {
		return "Waiting for data..."
	}
	if width < 1 {
		width = 1
	}

	window := data
	if len(window) > width {
		window = window[len(window)-width:]
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", len(window)))
	}

	for x, val := range window {
		h := int((val / 100.0) * float64(height))
		if h > height {
			h = height
		}
		// Fill from bottom
		for y := 0; y < h; y++ {
			grid[height-1-y][x] = '█'
		}
	}

	var sb strings.Builder
	for i, row := range grid {
		sb.WriteString(styles.Bar.Render(string(row)))
		if i < len(grid)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
