package ui

import "github.com/charmbracelet/lipgloss"

var styles = newPalette("#1DB954", "#04B575", "#FF5F5F", "#FFA500", "#626262")

// palette is a small stylesheet of named lipgloss styles.
type palette struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	picked  lipgloss.Style
	cursor  lipgloss.Style
	dim     lipgloss.Style
	pane    lipgloss.Style
	focused lipgloss.Style
}

func newPalette(accent, ok, errc, warn, muted string) palette {
	border := lipgloss.RoundedBorder()
	return palette{
		title:   bold(accent).MarginBottom(1),
		ok:      bold(ok),
		err:     bold(errc),
		picked:  bold(warn),
		cursor:  bold(accent),
		dim:     fg(muted).Italic(true),
		pane:    lipgloss.NewStyle().Border(border).BorderForeground(lipgloss.Color(muted)).Padding(0, 1),
		focused: lipgloss.NewStyle().Border(border).BorderForeground(lipgloss.Color(accent)).Padding(0, 1),
	}
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bold(color string) lipgloss.Style {
	return fg(color).Bold(true)
}
