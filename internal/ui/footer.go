package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	shortHelp = "q: Quit | ?: Help | /: Filter | k: Kill | b: Bits"
	longHelp  = "n/p/c/m/d: Sort name/pid/cpu/ram/disk | 0: Reset sort | enter: Expand | g: GPU graph | [ ]: Resize"
)

type FooterModel struct {
	width    int
	styles   Styles
	status   string
	showHelp bool
	now      func() time.Time
}

func NewFooterModel(styles Styles) FooterModel {
	return FooterModel{styles: styles, now: time.Now}
}

func (m FooterModel) Init() tea.Cmd {
	return nil
}

func (m FooterModel) Update(msg tea.Msg) (FooterModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "?" {
			m.showHelp = !m.showHelp
		}
	case KilledMsg:
		m.status = fmt.Sprintf("Sent terminate to %s", msg.Label)
	}
	return m, nil
}

func (m *FooterModel) SetSize(w int) {
	m.width = w
}

func (m FooterModel) View() string {
	if m.width == 0 {
		return ""
	}

	style := m.styles.Footer.Width(m.width)

	if m.showHelp {
		return style.Render(longHelp)
	}

	left := fmt.Sprintf("lesys | %s", m.now().Format("15:04:05"))
	if m.status != "" {
		left = fmt.Sprintf("%s | %s", left, m.status)
	}

	spacerWidth := m.width - lipgloss.Width(left) - lipgloss.Width(shortHelp) - 4
	if spacerWidth < 0 {
		spacerWidth = 0
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return style.Render(left + spacer + shortHelp)
}
