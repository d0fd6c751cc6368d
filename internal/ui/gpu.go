package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lesys-monitor/lesys/internal/format"
	"github.com/lesys-monitor/lesys/internal/metrics"
)

var gpuSourceLabels = map[metrics.GPUSource]string{
	metrics.GPUSourceVendorAPI:       "NVML",
	metrics.GPUSourceManagementQuery: "nvidia-smi",
}

func (m SystemModel) renderGPU(width int) string {
	s := m.snap
	if s.GPUSource == metrics.GPUSourceNone || s.GPUSource == "" {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.styles.Title.Render("GPU"),
			m.styles.MetricLabel.Render("GPU: N/A"),
		)
	}

	vram := fmt.Sprintf("VRAM %s / %s", format.OptionalBytes(s.GPUUsedBytes), format.OptionalBytes(s.GPUTotalBytes))
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("GPU ")+m.styles.MetricLabel.Render(gpuSourceLabels[s.GPUSource]),
		renderBar(m.styles, s.GPUPercent, 100, width, "Util "+format.Percent(s.GPUPercent)),
		m.styles.MetricLabel.Render(vram),
	)
}

func renderBar(styles Styles, value, max float64, width int, label string) string {
	if max <= 0 {
		max = 100
	} // Avoid divide by zero
	if width < 10 {
		return label
	}
	barWidth := width - lipgloss.Width(label) - 2
	if barWidth < 0 {
		barWidth = 0
	}

	ratio := value / max
	if ratio > 1.0 {
		ratio = 1.0
	}
	if ratio < 0 {
		ratio = 0
	}
	filled := int(ratio * float64(barWidth))
	empty := barWidth - filled

	style := styles.Bar
	if ratio > 0.8 {
		style = styles.AlertBar
	}

	return fmt.Sprintf("%s %s%s", label, style.Render(strings.Repeat("█", filled)), styles.BarEmpty.Render(strings.Repeat("░", empty)))
}
