package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/cli"
	"github.com/theirongolddev/cstats/internal/model"
	"github.com/theirongolddev/cstats/internal/pipeline"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily activity table",
	RunE:  runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}

// dailyRow joins one date's activity with its output token total.
type dailyRow struct {
	model.DailyActivity
	OutputTokens uint64 `json:"outputTokens"`
}

// recentDays returns the last n dates with activity, oldest first.
func recentDays(stats *model.StatsCache, n int) []dailyRow {
	totals := make(map[string]uint64, len(stats.DailyModelTokens))
	for _, t := range pipeline.DailyTokenTotals(stats) {
		totals[t.Date] = t.Total
	}

	days := stats.DailyActivity
	if n > 0 && len(days) > n {
		days = days[len(days)-n:]
	}
	out := make([]dailyRow, 0, len(days))
	for _, d := range days {
		out = append(out, dailyRow{DailyActivity: d, OutputTokens: totals[d.Date]})
	}
	return out
}

func runDaily(_ *cobra.Command, _ []string) error {
	sess, err := openEngine()
	if err != nil {
		return err
	}
	defer sess.close()

	stats := sess.engine.StatsCache()
	days := recentDays(&stats, sess.cfg.General.DefaultDays)
	if flagJSON {
		return printJSON(days)
	}
	if len(days) == 0 {
		printEmpty(sess.engine.ClaudeDir())
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("DAILY ACTIVITY  Last %d active days", len(days))))
	fmt.Println()

	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Date,
			cli.FormatWeekday(d.Date),
			cli.FormatNumber(d.MessageCount),
			cli.FormatNumber(d.SessionCount),
			cli.FormatNumber(d.ToolCallCount),
			cli.FormatTokens(d.OutputTokens),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Messages", "Sessions", "Tools", "Output"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}
