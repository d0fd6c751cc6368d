package ui

import (
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lesys-monitor/lesys/internal/handoff"
	"github.com/lesys-monitor/lesys/internal/metrics"
)

type TickMsg time.Time

// tickRand is used to add jitter to polling intervals.
// Safe for use in this context as tick() is only called from
// the single-threaded Bubble Tea event loop.
var tickRand = rand.New(rand.NewSource(time.Now().UnixNano()))

func tick(base time.Duration) tea.Cmd {
	// Add jitter: +/- 10%
	spread := int(base / 5)
	var jitter time.Duration
	if spread > 0 {
		jitter = time.Duration(tickRand.Intn(spread) - spread/2)
	}
	return tea.Tick(base+jitter, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Options configure the RootModel.
type Options struct {
	Theme   Theme
	UseBits bool
	// DisplayLimit caps the process groups shown. 0 shows all.
	DisplayLimit int
	PollInterval time.Duration
	Kill         KillFunc
}

type RootModel struct {
	systemSlot  *handoff.Slot[metrics.SystemSnapshot]
	processSlot *handoff.Slot[metrics.ProcessTable]
	systemSeq   uint64
	processSeq  uint64
	poll        time.Duration

	// Sub-models
	system  SystemModel
	process ProcessModel
	footer  FooterModel

	useBits bool

	// Layout state
	width, height int
	col1Pct       float64 // Percentage of width for the system column
}

func NewRootModel(
	systemSlot *handoff.Slot[metrics.SystemSnapshot],
	processSlot *handoff.Slot[metrics.ProcessTable],
	opts Options,
) RootModel {
	if opts.Theme.Name == "" {
		opts.Theme = DarkTheme
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	styles := NewStyles(opts.Theme)

	return RootModel{
		systemSlot:  systemSlot,
		processSlot: processSlot,
		poll:        opts.PollInterval,
		system:      NewSystemModel(styles, opts.UseBits),
		process:     NewProcessModel(styles, opts.DisplayLimit, opts.Kill),
		footer:      NewFooterModel(styles),
		useBits:     opts.UseBits,
		col1Pct:     0.40,
	}
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(m.process.Init(), tick(m.poll))
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.process.Filtering() {
			m.process, cmd = m.process.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "b":
			m.useBits = !m.useBits
			m.system.SetUseBits(m.useBits)
			m.process.SetUseBits(m.useBits)
			return m, nil
		case "[": // Shrink system column
			m.col1Pct -= 0.05
			if m.col1Pct < 0.2 {
				m.col1Pct = 0.2
			}
			m.resizeModules()
			return m, nil
		case "]": // Expand system column
			m.col1Pct += 0.05
			if m.col1Pct > 0.8 {
				m.col1Pct = 0.8
			}
			m.resizeModules()
			return m, nil
		}

		m.system, cmd = m.system.Update(msg)
		cmds = append(cmds, cmd)
		m.footer, cmd = m.footer.Update(msg)
		cmds = append(cmds, cmd)
		m.process, cmd = m.process.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeModules()

	case TickMsg:
		m.refresh()
		cmds = append(cmds, tick(m.poll))

	case KilledMsg:
		m.footer, cmd = m.footer.Update(msg)
		cmds = append(cmds, cmd)

	default:
		m.process, cmd = m.process.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// refresh pulls the newest snapshots from the slots. Each is applied only
// when its sequence number moved.
func (m *RootModel) refresh() {
	if s, seq, ok := m.systemSlot.Latest(); ok && seq != m.systemSeq {
		m.systemSeq = seq
		m.system.SetSnapshot(s)
	}
	if t, seq, ok := m.processSlot.Latest(); ok && seq != m.processSeq {
		m.processSeq = seq
		m.process.SetTable(t)
	}
}

func (m *RootModel) resizeModules() {
	if m.width == 0 || m.height == 0 {
		return
	}

	w1 := int(float64(m.width) * m.col1Pct)
	w2 := m.width - w1

	// Height available for columns (minus footer)
	h := m.height - 1
	if h < 1 {
		h = 1
	}

	// Borders add two cells on each axis
	m.system.SetSize(w1-2, h-2)
	m.process.SetSize(w2-2, h-2)
	m.footer.SetSize(m.width)
}

func (m RootModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	cols := lipgloss.JoinHorizontal(lipgloss.Top,
		m.system.View(),
		m.process.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		cols,
		m.footer.View(),
	)
}
