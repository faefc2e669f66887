package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	pane      lipgloss.Style
	paneFocus lipgloss.Style
	store     lipgloss.Style
	cursor    lipgloss.Style
	selected  lipgloss.Style
	badge     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	source    lipgloss.Style
	status    lipgloss.Style
	err       lipgloss.Style
	help      lipgloss.Style
}

func newStyles() styles {
	var (
		accent = lipgloss.Color("#7aa2f7")
		mint   = lipgloss.Color("#9ece6a")
		amber  = lipgloss.Color("#e0af68")
		red    = lipgloss.Color("#f7768e")
		muted  = lipgloss.Color("#565f89")
		text   = lipgloss.Color("#c0caf5")
	)
	return styles{
		title: lipgloss.NewStyle().Foreground(accent).Bold(true),
		pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		paneFocus: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		store:     lipgloss.NewStyle().Foreground(text),
		cursor:    lipgloss.NewStyle().Foreground(accent).Bold(true),
		selected:  lipgloss.NewStyle().Foreground(mint).Bold(true),
		badge:     lipgloss.NewStyle().Foreground(amber),
		user:      lipgloss.NewStyle().Foreground(mint).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(accent).Bold(true),
		source:    lipgloss.NewStyle().Foreground(muted).Italic(true),
		status:    lipgloss.NewStyle().Foreground(muted),
		err:       lipgloss.NewStyle().Foreground(red).Bold(true),
		help:      lipgloss.NewStyle().Foreground(muted),
	}
}
