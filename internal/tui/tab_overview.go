package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/theirongolddev/cstats/internal/cli"
	"github.com/theirongolddev/cstats/internal/model"
	"github.com/theirongolddev/cstats/internal/pipeline"
	"github.com/theirongolddev/cstats/internal/tui/components"
	"github.com/theirongolddev/cstats/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	today, stats := a.today, a.stats
	var b strings.Builder

	todayHint := today.Date
	if today.IsZero() {
		todayHint = "no activity yet"
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Today · messages", Value: cli.FormatNumber(today.Messages), Hint: todayHint},
		{Label: "Today · sessions", Value: cli.FormatNumber(today.Sessions)},
		{Label: "Today · tool calls", Value: cli.FormatNumber(today.ToolCalls)},
		{Label: "Today · output tokens", Value: cli.FormatTokens(today.TotalTokens), Hint: topModel(today.TokensByModel)},
	}, cw))
	b.WriteString("\n")

	costHint := "saved " + cli.FormatCost(a.totals.CacheSavings) + " by caching"
	if a.totals.Unpriced > 0 {
		costHint = fmt.Sprintf("%d model(s) unpriced", a.totals.Unpriced)
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Sessions", Value: cli.FormatNumber(stats.TotalSessions), Hint: "all time"},
		{Label: "Messages", Value: cli.FormatNumber(stats.TotalMessages)},
		{Label: "Active days", Value: cli.FormatNumber(uint64(len(stats.DailyActivity)))},
		{Label: "Estimated cost", Value: cli.FormatCost(a.totals.Cost), Hint: costHint},
	}, cw))
	b.WriteString("\n")

	days := a.days()
	daily := dailySeries(&stats, a.endDate(), days)
	chartH := 8
	if a.height > 0 && a.height < 36 {
		chartH = 5
	}
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Output tokens, last %dd", days),
		components.BarChart(daily.tokens, daily.labels, t.Blue, components.CardInnerWidth(cw), chartH),
		cw,
	))
	b.WriteString("\n")

	halves := components.LayoutRow(cw, 2)
	activity := components.ContentCard(
		fmt.Sprintf("Messages per day (%s total)", cli.FormatNumber(lo.Sum(daily.messages))),
		components.Sparkline(daily.messages, t.Green),
		halves[0],
	)
	b.WriteString(components.CardRow([]string{activity, a.renderRecords(halves[1])}))
	return b.String()
}

func (a App) renderRecords(w int) string {
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var lines []string
	if first := a.stats.FirstSessionDate; first != nil {
		date := *first
		if ts, err := time.Parse(time.RFC3339Nano, date); err == nil {
			date = ts.Format(model.DateLayout)
		}
		lines = append(lines, label.Render("First session   ")+value.Render(date))
	}
	if ls := a.stats.LongestSession; ls != nil {
		lines = append(lines, label.Render("Longest session ")+
			value.Render(fmt.Sprintf("%s, %s msgs", cli.FormatDuration(ls.Duration), cli.FormatNumber(ls.MessageCount))))
	}
	if len(lines) == 0 {
		lines = append(lines, label.Render("No sessions recorded"))
	}
	return components.ContentCard("Records", strings.Join(lines, "\n"), w)
}

func (a App) days() int {
	if a.cfg.General.DefaultDays > 0 {
		return a.cfg.General.DefaultDays
	}
	return 30
}

// endDate is the last date shown by the daily views.
func (a App) endDate() string {
	if a.today.Date != "" {
		return a.today.Date
	}
	return a.stats.LastComputedDate
}

// topModel names the model with the most tokens, ties going to the smaller name.
func topModel(byModel map[string]uint64) string {
	if len(byModel) == 0 {
		return ""
	}
	best, bestN := "", uint64(0)
	for name, n := range byModel {
		if best == "" || n > bestN || (n == bestN && name < best) {
			best, bestN = name, n
		}
	}
	return "mostly " + cli.ShortModel(best)
}

type series struct {
	dates    []string
	labels   []string
	messages []uint64
	sessions []uint64
	tools    []uint64
	tokens   []uint64
}

// dailySeries lays out the n dates ending at end, oldest first, with zeros
// for dates without activity.
func dailySeries(stats *model.StatsCache, end string, n int) series {
	endDate, err := time.Parse(model.DateLayout, end)
	if err != nil || n <= 0 {
		return series{}
	}
	activity := lo.SliceToMap(stats.DailyActivity, func(d model.DailyActivity) (string, model.DailyActivity) {
		return d.Date, d
	})
	tokens := lo.SliceToMap(pipeline.DailyTokenTotals(stats), func(d model.DailyTokenTotal) (string, uint64) {
		return d.Date, d.Total
	})

	s := series{
		dates:    make([]string, n),
		labels:   make([]string, n),
		messages: make([]uint64, n),
		sessions: make([]uint64, n),
		tools:    make([]uint64, n),
		tokens:   make([]uint64, n),
	}
	for i := range n {
		day := endDate.AddDate(0, 0, i-n+1)
		date := day.Format(model.DateLayout)
		act := activity[date]
		s.dates[i] = date
		s.labels[i] = day.Format("01-02")
		s.messages[i] = act.MessageCount
		s.sessions[i] = act.SessionCount
		s.tools[i] = act.ToolCallCount
		s.tokens[i] = tokens[date]
	}
	return s
}
