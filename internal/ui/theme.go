package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/timvw/config-puller/internal/model"
)

// Theme defines all colors used by the extraction TUI.
type Theme struct {
	Primary   lipgloss.Color // title, cursor
	Secondary lipgloss.Color // selected rows, input prompt
	Error     lipgloss.Color // error log lines, failures
	Warning   lipgloss.Color // warn log lines, running status
	Success   lipgloss.Color // completed extraction
	Text      lipgloss.Color // primary text
	TextMuted lipgloss.Color // hints, timestamps
	Border    lipgloss.Color // separators
}

// DarkTheme returns the default dark theme.
func DarkTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#fab283"),
		Secondary: lipgloss.Color("#5c9cf5"),
		Error:     lipgloss.Color("#e06c75"),
		Warning:   lipgloss.Color("#f5a742"),
		Success:   lipgloss.Color("#7fd88f"),
		Text:      lipgloss.Color("#eeeeee"),
		TextMuted: lipgloss.Color("#808080"),
		Border:    lipgloss.Color("#484848"),
	}
}

// LightTheme returns a light theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#b35c00"),
		Secondary: lipgloss.Color("#0550ae"),
		Error:     lipgloss.Color("#cf222e"),
		Warning:   lipgloss.Color("#bf8700"),
		Success:   lipgloss.Color("#116329"),
		Text:      lipgloss.Color("#1f2328"),
		TextMuted: lipgloss.Color("#656d76"),
		Border:    lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// styles holds all lipgloss styles derived from a Theme.
type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	command lipgloss.Style
	running lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	dim     lipgloss.Style
	text    lipgloss.Style
	status  lipgloss.Style
	input   lipgloss.Style

	hintKey  lipgloss.Style
	hintDesc lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		header:  lipgloss.NewStyle().Foreground(t.Border),
		command: lipgloss.NewStyle().Foreground(t.Secondary),
		running: lipgloss.NewStyle().Foreground(t.Warning),
		ok:      lipgloss.NewStyle().Foreground(t.Success),
		err:     lipgloss.NewStyle().Foreground(t.Error),
		dim:     lipgloss.NewStyle().Foreground(t.TextMuted),
		text:    lipgloss.NewStyle().Foreground(t.Text),
		status:  lipgloss.NewStyle().Foreground(t.TextMuted),
		input:   lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),

		hintKey:  lipgloss.NewStyle().Foreground(t.Text),
		hintDesc: lipgloss.NewStyle().Foreground(t.TextMuted),
	}
}

// level picks the style for a log line.
func (s styles) level(level string) lipgloss.Style {
	switch level {
	case model.LevelError:
		return s.err
	case model.LevelWarn:
		return s.running
	default:
		return s.text
	}
}
