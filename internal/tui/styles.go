package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/johan-st/simplequery/internal/config"
)

// Styles holds the rendered look of the UI, derived from a theme so it can
// be rebuilt when the config file changes.
type Styles struct {
	Pane        lipgloss.Style
	FocusedPane lipgloss.Style
	PaneHeader  lipgloss.Style
	Label       lipgloss.Style
	Item        lipgloss.Style
	Selected    lipgloss.Style
	Dim         lipgloss.Style
	Title       lipgloss.Style

	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style

	Connected    lipgloss.Style
	Disconnected lipgloss.Style

	Modal      lipgloss.Style
	ModalError lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style

	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
}

// NewStyles builds the styles for theme. Empty colors fall back to the
// default theme.
func NewStyles(theme config.Theme) Styles {
	def := config.DefaultTheme()
	pick := func(v, fallback string) lipgloss.Color {
		if v == "" {
			return lipgloss.Color(fallback)
		}
		return lipgloss.Color(v)
	}

	primary := pick(theme.Primary, def.Primary)
	success := pick(theme.Success, def.Success)
	accent := pick(theme.Accent, def.Accent)
	errColor := pick(theme.Error, def.Error)
	muted := pick(theme.Muted, def.Muted)
	text := pick(theme.Text, def.Text)
	bg := pick(theme.Background, def.Background)

	return Styles{
		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		FocusedPane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(0, 1),
		PaneHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(text),
		Label: lipgloss.NewStyle().
			Foreground(muted).
			Width(10),
		Item: lipgloss.NewStyle().
			Foreground(text),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(text),
		Dim: lipgloss.NewStyle().
			Foreground(muted),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),

		StatusBar: lipgloss.NewStyle().
			Background(bg).
			Foreground(text).
			Padding(0, 1),
		StatusKey: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		StatusValue: lipgloss.NewStyle().
			Foreground(text),

		Connected: lipgloss.NewStyle().
			Background(success).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1).
			Bold(true),
		Disconnected: lipgloss.NewStyle().
			Background(errColor).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1).
			Bold(true),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2),
		ModalError: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errColor).
			Padding(1, 2),
		Error: lipgloss.NewStyle().
			Foreground(errColor).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(success),

		HelpKey: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		HelpDesc: lipgloss.NewStyle().
			Foreground(muted),
	}
}
