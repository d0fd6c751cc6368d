package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a color palette. It is passed to the models explicitly.
type Theme struct {
	Name       string
	Background string
	Card       string
	Accent     string
	Alert      string
	Text       string
	TextDim    string
	Border     string
	BarBg      string
	Selected   string
}

var (
	DarkTheme = Theme{
		Name:       "dark",
		Background: "#131314",
		Card:       "#1E1F20",
		Accent:     "#64B5F6",
		Alert:      "#F28B82",
		Text:       "#E3E3E3",
		TextDim:    "#9AA0A6",
		Border:     "#3C4043",
		BarBg:      "#303134",
		Selected:   "#3C4043",
	}

	LightTheme = Theme{
		Name:       "light",
		Background: "#F0F2F5",
		Card:       "#FFFFFF",
		Accent:     "#1976D2",
		Alert:      "#D32F2F",
		Text:       "#1C1E21",
		TextDim:    "#65676B",
		Border:     "#CED0D4",
		BarBg:      "#E4E6EB",
		Selected:   "#F0F2F5",
	}
)

// ThemeByName returns the named theme, falling back to DarkTheme.
func ThemeByName(name string) Theme {
	if strings.EqualFold(name, LightTheme.Name) {
		return LightTheme
	}
	return DarkTheme
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Theme Theme

	Panel       lipgloss.Style
	AlertPanel  lipgloss.Style
	Title       lipgloss.Style
	Text        lipgloss.Style
	MetricLabel lipgloss.Style
	MetricValue lipgloss.Style
	Alert       lipgloss.Style
	Bar         lipgloss.Style
	BarEmpty    lipgloss.Style
	AlertBar    lipgloss.Style
	Footer      lipgloss.Style
	Header      lipgloss.Style
	Selected    lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Theme: t,

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),

		AlertPanel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Alert)).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.TextDim)).
			Bold(true),

		Text: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)),

		MetricLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.TextDim)),

		MetricValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)).
			Bold(true),

		Alert: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Alert)).
			Bold(true),

		Bar: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)),

		BarEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.BarBg)),

		AlertBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Alert)),

		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Border)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Header: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color(t.Border)).
			Foreground(lipgloss.Color(t.TextDim)).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)).
			Background(lipgloss.Color(t.Selected)).
			Bold(false),
	}
}
