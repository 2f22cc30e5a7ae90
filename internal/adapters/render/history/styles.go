package history

import (
	"github.com/bnema/webim-client/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	operator lipgloss.Style
	typing   lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	time     lipgloss.Style
	visitor  lipgloss.Style
	staff    lipgloss.Style
	info     lipgloss.Style
	body     lipgloss.Style
	pending  lipgloss.Style
	file     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		operator: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		typing:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		time:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		visitor:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159")),
		staff:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		info:     lipgloss.NewStyle().Faint(true).Italic(true),
		body:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		file:     lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("111")),
	}
}

func stateColor(state domain.ChatState) lipgloss.Color {
	switch state {
	case domain.ChatStateChatting:
		return lipgloss.Color("42")
	case domain.ChatStateQueue, domain.ChatStateInvitation:
		return lipgloss.Color("214")
	case domain.ChatStateClosedByVisitor, domain.ChatStateClosedByOperator:
		return lipgloss.Color("203")
	default:
		return lipgloss.Color("245")
	}
}
