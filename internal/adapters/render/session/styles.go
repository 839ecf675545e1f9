package session

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	session    lipgloss.Style
	detail     lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	fieldKey   lipgloss.Style
	fieldMeta  lipgloss.Style
	stateOpen  lipgloss.Style
	stateDone  lipgloss.Style
	stateGone  lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		session:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		fieldKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		fieldMeta:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		stateOpen:  lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		stateDone:  lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		stateGone:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
