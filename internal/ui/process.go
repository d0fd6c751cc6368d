package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lesys-monitor/lesys/internal/format"
	"github.com/lesys-monitor/lesys/internal/metrics"
	"github.com/lesys-monitor/lesys/internal/proctree"
)

// KillFunc terminates a set of processes.
type KillFunc func(pids []int32)

// KilledMsg reports that a termination request was sent.
type KilledMsg struct {
	Label string
	PIDs  []int32
}

// rowRef maps a table row back to the group or member it shows.
type rowRef struct {
	group  string
	pids   []int32
	member bool
	label  string
}

var sortKeys = map[string]proctree.Column{
	"n": proctree.ColumnName,
	"p": proctree.ColumnPID,
	"c": proctree.ColumnCPU,
	"m": proctree.ColumnRAM,
	"d": proctree.ColumnDisk,
	"0": proctree.ColumnNone,
}

// ProcessModel shows the grouped process tree.
type ProcessModel struct {
	table     table.Model
	width     int
	height    int
	styles    Styles
	useBits   bool
	limit     int
	samples   metrics.ProcessTable
	spec      proctree.SortSpec
	expanded  map[string]bool
	groups    []proctree.Group
	refs      []rowRef
	filter    string
	filtering bool
	textInput textinput.Model
	kill      KillFunc
}

func NewProcessModel(styles Styles, limit int, kill KillFunc) ProcessModel {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "PID", Width: 7},
		{Title: "CPU%", Width: 6},
		{Title: "RAM", Width: 10},
		{Title: "Disk", Width: 11},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = styles.Header
	s.Selected = styles.Selected
	t.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Prompt = "/"
	ti.CharLimit = 30
	ti.Width = 20

	if kill == nil {
		kill = func([]int32) {}
	}

	return ProcessModel{
		table:     t,
		styles:    styles,
		limit:     limit,
		spec:      proctree.DefaultSortSpec(),
		expanded:  make(map[string]bool),
		textInput: ti,
		kill:      kill,
	}
}

func (m ProcessModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ProcessModel) Update(msg tea.Msg) (ProcessModel, tea.Cmd) {
	var cmd tea.Cmd

	if m.filtering {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "enter", "esc":
				m.filtering = false
				m.filter = m.textInput.Value()
				m.table.Focus()
				return m, nil
			}
		}
		m.textInput, cmd = m.textInput.Update(msg)
		m.filter = m.textInput.Value() // Live filter
		m.rebuild()
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if col, ok := sortKeys[key]; ok {
			m.spec = m.spec.Activate(col)
			m.rebuild()
			return m, nil
		}
		switch key {
		case "/":
			m.filtering = true
			m.textInput.Focus()
			m.table.Blur()
			return m, textinput.Blink
		case "enter", " ", "right", "left":
			m.toggleSelected(key)
			return m, nil
		case "k", "f9":
			return m, m.killSelected()
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// SetTable replaces the process samples and rebuilds the tree.
func (m *ProcessModel) SetTable(t metrics.ProcessTable) {
	m.samples = t
	m.rebuild()
}

func (m *ProcessModel) SetUseBits(b bool) {
	m.useBits = b
	m.rebuild()
}

// Spec returns the current sort specification.
func (m ProcessModel) Spec() proctree.SortSpec {
	return m.spec
}

// Groups returns the groups currently displayed.
func (m ProcessModel) Groups() []proctree.Group {
	return m.groups
}

func (m ProcessModel) filtered() []metrics.ProcessSample {
	if m.filter == "" {
		return m.samples.Samples
	}
	lowerFilter := strings.ToLower(m.filter)
	var out []metrics.ProcessSample
	for _, p := range m.samples.Samples {
		if strings.Contains(strings.ToLower(p.Name), lowerFilter) ||
			strconv.Itoa(int(p.PID)) == lowerFilter {
			out = append(out, p)
		}
	}
	return out
}

func (m *ProcessModel) rebuild() {
	m.groups = proctree.BuildWithLimit(m.filtered(), m.spec, m.expanded, m.limit)

	var rows []table.Row
	var refs []rowRef
	for _, g := range m.groups {
		marker := "  "
		if g.Count() > 1 {
			marker = "▸ "
			if g.Expanded {
				marker = "▾ "
			}
		}
		rows = append(rows, table.Row{
			marker + g.Label(),
			strconv.Itoa(int(g.PID)),
			fmt.Sprintf("%.1f", g.CPU),
			format.Bytes(g.RAM),
			format.Speed(g.Disk, m.useBits),
		})
		refs = append(refs, rowRef{group: g.Name, pids: g.PIDs, label: g.Label()})

		if !g.Expanded || g.Count() < 2 {
			continue
		}
		for _, p := range g.Members {
			rows = append(rows, table.Row{
				"   └ " + p.Name,
				strconv.Itoa(int(p.PID)),
				fmt.Sprintf("%.1f", p.CPUPercent),
				format.Bytes(p.RAMBytes),
				format.Speed(p.DiskMBps, m.useBits),
			})
			refs = append(refs, rowRef{group: g.Name, pids: []int32{p.PID}, member: true, label: fmt.Sprintf("%s (%d)", p.Name, p.PID)})
		}
	}

	m.refs = refs
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m ProcessModel) selected() (rowRef, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.refs) {
		return rowRef{}, false
	}
	return m.refs[c], true
}

// toggleSelected expands or collapses the group under the cursor. Expansion
// is remembered by name, so it survives refreshes and restarts.
func (m *ProcessModel) toggleSelected(key string) {
	ref, ok := m.selected()
	if !ok {
		return
	}
	switch key {
	case "right":
		m.expanded[ref.group] = true
	case "left":
		delete(m.expanded, ref.group)
	default:
		if m.expanded[ref.group] {
			delete(m.expanded, ref.group)
		} else {
			m.expanded[ref.group] = true
		}
	}
	m.rebuild()
}

// killSelected terminates the selected member, or every member of the
// selected group.
func (m ProcessModel) killSelected() tea.Cmd {
	ref, ok := m.selected()
	if !ok || len(ref.pids) == 0 {
		return nil
	}
	kill := m.kill
	pids := append([]int32(nil), ref.pids...)
	return func() tea.Msg {
		kill(pids)
		return KilledMsg{Label: ref.label, PIDs: pids}
	}
}

func (m *ProcessModel) SetSize(w, h int) {
	m.width = w
	m.height = h

	// Title row, table header and panel border
	tableHeight := h - 4
	if tableHeight < 1 {
		tableHeight = 1
	}
	m.table.SetHeight(tableHeight)

	cols := m.table.Columns()

	// Fixed widths for numeric columns
	cols[1].Width = 7  // PID
	cols[2].Width = 6  // CPU
	cols[3].Width = 10 // RAM
	cols[4].Width = 11 // Disk

	usedWidth := 7 + 6 + 10 + 11 + 14 // + padding
	remaining := w - usedWidth
	if remaining < 12 {
		remaining = 12
	}
	cols[0].Width = remaining
	m.table.SetColumns(cols)
}

func (m ProcessModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	style := m.styles.Panel.Width(m.width).Height(m.height)

	title := fmt.Sprintf("Processes (%s)", format.Count(len(m.samples.Samples)))
	if m.filtering {
		title = m.textInput.View()
	} else if m.filter != "" {
		title = fmt.Sprintf("Filter: %s", m.filter)
	}

	sortStr := strings.ToUpper(m.spec.String())
	padding := m.width - lipgloss.Width(title) - lipgloss.Width(sortStr) - 6
	if padding < 1 {
		padding = 1
	}
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		m.styles.Title.Render(title),
		strings.Repeat(" ", padding),
		m.styles.MetricLabel.Render(fmt.Sprintf("[%s]", sortStr)),
	)

	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.table.View(),
	))
}

// Filtering reports whether the filter input has focus.
func (m ProcessModel) Filtering() bool {
	return m.filtering
}
