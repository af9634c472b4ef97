package tui

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cstats/internal/cli"
	"github.com/theirongolddev/cstats/internal/tui/components"
	"github.com/theirongolddev/cstats/internal/tui/theme"
)

// renderHistoryTab lists the most recent prompts that fit in h lines.
func (a App) renderHistoryTab(cw, h int) string {
	t := theme.Active
	when := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	project := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	prompt := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	if len(a.history) == 0 {
		return components.ContentCard("Recent prompts",
			when.Render("The activity log is empty or missing."), cw)
	}

	loc, err := a.cfg.Location()
	if err != nil {
		loc = time.Local
	}

	inner := components.CardInnerWidth(cw)
	const whenW, projectW = 17, 20
	promptW := max(inner-whenW-projectW-2, 10)

	rows := max(h-3, 1)
	entries := a.history[:min(len(a.history), rows)]
	lines := make([]string, len(entries))
	for i, e := range entries {
		name := "-"
		if e.Project != "" {
			name = filepath.Base(e.Project)
		}
		name = cli.Truncate(name, projectW-1)
		lines[i] = when.Render(padRight(cli.FormatEpochMs(e.Timestamp, loc), whenW)) +
			project.Render(padRight(name, projectW)) +
			prompt.Render(cli.Truncate(e.Display, promptW))
	}
	return components.ContentCard("Recent prompts", strings.Join(lines, "\n"), cw)
}

func padRight(s string, w int) string {
	return s + strings.Repeat(" ", max(w-lipgloss.Width(s), 0))
}
