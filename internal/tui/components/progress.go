package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cstats/internal/tui/theme"
)

// ScanProgress renders the file-scan progress bar shown while the stats are
// being recomputed, followed by the "current/total" count.
func ScanProgress(current, total, width int) string {
	t := theme.Active
	pct := 0.0
	if total > 0 {
		pct = min(max(float64(current)/float64(total), 0), 1)
	}

	bar := progress.New(
		progress.WithSolidFill(string(barColor(pct))),
		progress.WithWidth(max(width, 4)),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	countStyle := lipgloss.NewStyle().Foreground(barColor(pct)).Background(t.Surface).Bold(true)
	space := lipgloss.NewStyle().Background(t.Surface).Render(" ")
	return bar.ViewAs(pct) + space + countStyle.Render(fmt.Sprintf("%d/%d", current, total))
}

func barColor(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct >= 0.8:
		return t.AccentBright
	case pct >= 0.5:
		return t.Accent
	default:
		return t.Cyan
	}
}

// ShareBar renders value/total as a fixed-width horizontal bar.
func ShareBar(value, total uint64, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	t := theme.Active
	filled := 0
	if total > 0 {
		filled = int(value * uint64(width) / total)
	}
	filled = min(max(filled, 0), width)
	if value > 0 && filled == 0 {
		filled = 1
	}
	fill := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	empty := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	return fill.Render(strings.Repeat("█", filled)) + empty.Render(strings.Repeat("░", width-filled))
}
