package ui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lesys-monitor/lesys/internal/format"
	"github.com/lesys-monitor/lesys/internal/metrics"
)

const historyLen = 120

// SystemModel renders the latest SystemSnapshot: CPU, memory, GPU, network
// and disks, plus a utilization history graph.
type SystemModel struct {
	width   int
	height  int
	styles  Styles
	useBits bool

	snap       metrics.SystemSnapshot
	hasSnap    bool
	cpuHistory []float64
	gpuHistory []float64
	showGPU    bool
}

func NewSystemModel(styles Styles, useBits bool) SystemModel {
	return SystemModel{styles: styles, useBits: useBits}
}

func (m SystemModel) Init() tea.Cmd {
	return nil
}

func (m SystemModel) Update(msg tea.Msg) (SystemModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "g":
			m.showGPU = !m.showGPU
		}
	}
	return m, nil
}

func (m *SystemModel) SetSnapshot(s metrics.SystemSnapshot) {
	m.snap = s
	m.hasSnap = true
	m.cpuHistory = appendHistory(m.cpuHistory, s.CPUPercent)
	m.gpuHistory = appendHistory(m.gpuHistory, s.GPUPercent)
}

func (m *SystemModel) SetUseBits(b bool) {
	m.useBits = b
}

func (m *SystemModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func appendHistory(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyLen {
		h = h[len(h)-historyLen:]
	}
	return h
}

func (m SystemModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	style := m.styles.Panel.Width(m.width).Height(m.height)
	if !m.hasSnap {
		content := lipgloss.Place(m.width-2, m.height-2, lipgloss.Center, lipgloss.Center, "Waiting for data...")
		return style.Render(content)
	}

	barWidth := m.width - 4
	sections := []string{
		m.renderCPU(barWidth),
		m.renderMemory(barWidth),
		m.renderGPU(barWidth),
		m.renderNetwork(),
		m.renderDisks(barWidth),
	}
	body := lipgloss.JoinVertical(lipgloss.Left, sections...)

	graphHeight := m.height - lipgloss.Height(body) - 4
	if graphHeight >= 3 {
		title, data := "CPU History", m.cpuHistory
		if m.showGPU {
			title, data = "GPU History", m.gpuHistory
		}
		body = lipgloss.JoinVertical(lipgloss.Left,
			body,
			m.styles.Title.Render(title),
			renderGraph(m.styles, data, barWidth, graphHeight),
		)
	}

	return style.Render(body)
}

func (m SystemModel) renderMemory(width int) string {
	s := m.snap
	label := fmt.Sprintf("RAM %s  %s / %s", format.Percent(s.RAMPercent), format.Bytes(s.RAMUsedBytes), format.Bytes(s.RAMTotalBytes))
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("Memory"),
		renderBar(m.styles, s.RAMPercent, 100, width, label),
	)
}

func (m SystemModel) renderNetwork() string {
	s := m.snap
	line := fmt.Sprintf("↓ %s  ↑ %s",
		format.Speed(s.NetDownMBps, m.useBits),
		format.Speed(s.NetUpMBps, m.useBits))
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("Network ")+m.styles.MetricLabel.Render(s.ActiveInterface),
		m.styles.MetricValue.Render(line),
	)
}

func (m SystemModel) renderDisks(width int) string {
	s := m.snap
	lines := []string{m.styles.Title.Render("Disks")}

	for _, id := range sortedKeys(s.DiskIO) {
		r := s.DiskIO[id]
		lines = append(lines, fmt.Sprintf("%s  %s %s  %s %s",
			m.styles.MetricLabel.Render(id),
			m.styles.MetricLabel.Render("R"), format.Speed(r.ReadMBps, m.useBits),
			m.styles.MetricLabel.Render("W"), format.Speed(r.WriteMBps, m.useBits)))
	}
	for _, id := range sortedKeys(s.DiskUsage) {
		pct := s.DiskUsage[id]
		lines = append(lines, renderBar(m.styles, pct, 100, width, fmt.Sprintf("%s %s", id, format.Percent(pct))))
	}
	if len(lines) == 1 {
		lines = append(lines, m.styles.MetricLabel.Render("No disks"))
	}
	return strings.Join(lines, "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
