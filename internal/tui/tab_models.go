package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cstats/internal/cli"
	"github.com/theirongolddev/cstats/internal/tui/components"
	"github.com/theirongolddev/cstats/internal/tui/theme"
)

func (a App) renderModelsTab(cw int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if len(a.costs) == 0 {
		return components.ContentCard("Models", muted.Render("No model usage recorded."), cw)
	}

	rows := make([][]string, 0, len(a.costs)+2)
	for _, c := range a.costs {
		cost := "-"
		if c.Priced {
			cost = cli.FormatCost(c.Cost)
		}
		rows = append(rows, []string{
			cli.ShortModel(c.Model),
			cli.FormatTokens(c.Usage.InputTokens),
			cli.FormatTokens(c.Usage.OutputTokens),
			cli.FormatTokens(c.Usage.CacheCreationInputTokens),
			cli.FormatTokens(c.Usage.CacheReadInputTokens),
			cost,
		})
	}
	rows = append(rows, cli.Separator, []string{"Total", "", "", "", "", cli.FormatCost(a.totals.Cost)})

	table := strings.TrimRight(cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Input", "Output", "Cache write", "Cache read", "Est. cost"},
		Rows:    rows,
	}), "\n")

	notes := []string{"Cache reads saved an estimated " + cli.FormatCost(a.totals.CacheSavings) + "."}
	if a.totals.Unpriced > 0 {
		notes = append(notes, "Models marked - have no known price; add one under [pricing.overrides].")
	}
	notes = append(notes, "Estimates from public list prices, not billing data.")

	body := table + "\n\n" + muted.Render(strings.Join(notes, "\n"))
	var b strings.Builder
	b.WriteString(components.ContentCard("Estimated cost by model", body, cw))
	b.WriteString("\n")
	b.WriteString(a.renderOutputShare(cw))
	return b.String()
}

// renderOutputShare shows each model's share of all-time output tokens.
func (a App) renderOutputShare(cw int) string {
	t := theme.Active
	name := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var total uint64
	nameW := 0
	for _, c := range a.costs {
		total += c.Usage.OutputTokens
		nameW = max(nameW, lipgloss.Width(cli.ShortModel(c.Model)))
	}
	barW := max(components.CardInnerWidth(cw)-nameW-12, 10)

	lines := make([]string, 0, len(a.costs))
	for _, c := range a.costs {
		short := cli.ShortModel(c.Model)
		pct := 0.0
		if total > 0 {
			pct = float64(c.Usage.OutputTokens) / float64(total)
		}
		lines = append(lines, name.Render(short+strings.Repeat(" ", nameW-lipgloss.Width(short)+1))+
			components.ShareBar(c.Usage.OutputTokens, total, barW, t.Accent)+
			dim.Render(" "+cli.FormatPercent(pct)))
	}
	return components.ContentCard("Share of output tokens", strings.Join(lines, "\n"), cw)
}
