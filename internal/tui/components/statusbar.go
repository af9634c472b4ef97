package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cstats/internal/tui/theme"
)

// RenderStatusBar renders the bottom bar: key hints on the left and the
// data status on the right. refreshing swaps the status for a notice.
func RenderStatusBar(width int, status string, refreshing bool) string {
	t := theme.Active

	hintStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	left := " " + keyStyle.Render("[r]") + hintStyle.Render("efresh  ") +
		keyStyle.Render("[?]") + hintStyle.Render("help  ") +
		keyStyle.Render("[q]") + hintStyle.Render("uit")

	right := status
	if refreshing {
		right = "refreshing…"
		statusStyle = statusStyle.Foreground(t.Accent)
	}
	right = statusStyle.Render(right + " ")

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	bar := left + hintStyle.Render(strings.Repeat(" ", gap)) + right
	return lipgloss.NewStyle().Background(t.Surface).Width(width).MaxWidth(width).Render(bar)
}
