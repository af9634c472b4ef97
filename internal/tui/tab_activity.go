package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cstats/internal/cli"
	"github.com/theirongolddev/cstats/internal/tui/components"
	"github.com/theirongolddev/cstats/internal/tui/theme"
)

// wideLayout is the content width from which the activity cards sit side by side.
const wideLayout = 110

func (a App) renderActivityTab(cw int) string {
	if cw >= wideLayout {
		widths := components.LayoutRow(cw, 2)
		return components.CardRow([]string{a.renderDailyCard(widths[0]), a.renderHourlyCard(widths[1])})
	}
	return a.renderDailyCard(cw) + "\n" + a.renderHourlyCard(cw)
}

func (a App) renderDailyCard(w int) string {
	days := min(a.days(), 14)
	s := dailySeries(&a.stats, a.endDate(), days)

	rows := make([][]string, 0, days)
	for i := len(s.dates) - 1; i >= 0; i-- {
		rows = append(rows, []string{
			s.dates[i],
			cli.FormatWeekday(s.dates[i]),
			cli.FormatNumber(s.messages[i]),
			cli.FormatNumber(s.sessions[i]),
			cli.FormatNumber(s.tools[i]),
			cli.FormatTokens(s.tokens[i]),
		})
	}
	table := strings.TrimRight(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Messages", "Sessions", "Tools", "Output"},
		Rows:    rows,
	}), "\n")
	return components.ContentCard(fmt.Sprintf("Daily activity, last %dd", days), table, w)
}

// renderHourlyCard draws the message histogram by hour of day.
func (a App) renderHourlyCard(w int) string {
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	count := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var counts [24]uint64
	var peak uint64
	for key, n := range a.stats.HourCounts {
		h, err := strconv.Atoi(key)
		if err != nil || h < 0 || h > 23 {
			continue
		}
		counts[h] = n
		peak = max(peak, n)
	}

	barW := max(components.CardInnerWidth(w)-14, 10)
	lines := make([]string, 24)
	for h, n := range counts {
		lines[h] = label.Render(fmt.Sprintf("%02d:00 ", h)) +
			components.ShareBar(n, peak, barW, t.Cyan) +
			count.Render(fmt.Sprintf(" %6s", cli.FormatNumber(n)))
	}
	return components.ContentCard("Messages by hour", strings.Join(lines, "\n"), w)
}
