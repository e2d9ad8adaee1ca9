package cliui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/cardstream/pkg/proposal"
)

var (
	cardBorder        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	cardAcceptedStyle = cardBorder.BorderForeground(lipgloss.Color("70"))
	cardIDStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("215")).Bold(true)
	cardOldStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	cardNewStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	acceptedBadge     = lipgloss.NewStyle().Foreground(lipgloss.Color("70")).Bold(true).Render("accepted")
)

// RenderProposal draws one proposal as a bordered card no wider than width.
func RenderProposal(p proposal.Proposal, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}

	header := cardIDStyle.Render(p.ID)
	if p.Accepted {
		header += "  " + acceptedBadge
	}

	body := strings.Join([]string{
		header,
		cardOldStyle.Render("- " + p.Original),
		cardNewStyle.Render("+ " + p.Suggested),
	}, "\n")

	style := cardBorder
	if p.Accepted {
		style = cardAcceptedStyle
	}

	// Border and padding take four columns.
	inner := width - 4
	if inner > 0 {
		style = style.Width(inner)
	}

	return style.Render(body)
}

// RenderProposals draws every proposal card separated by blank lines.
func RenderProposals(ps []proposal.Proposal, width int) string {
	cards := make([]string, 0, len(ps))
	for _, p := range ps {
		cards = append(cards, RenderProposal(p, width))
	}
	return strings.Join(cards, "\n")
}
