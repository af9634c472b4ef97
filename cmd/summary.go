package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/cli"
	"github.com/theirongolddev/cstats/internal/model"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Overall usage summary (default command)",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	sess, err := openEngine()
	if err != nil {
		return err
	}
	defer sess.close()

	stats := sess.engine.StatsCache()
	if flagJSON {
		return printJSON(stats)
	}
	if stats.TotalMessages == 0 {
		printEmpty(sess.engine.ClaudeDir())
		return nil
	}

	var input, output, cacheRead, cacheWrite, webSearch uint64
	for _, u := range stats.ModelUsage {
		input += u.InputTokens
		output += u.OutputTokens
		cacheRead += u.CacheReadInputTokens
		cacheWrite += u.CacheCreationInputTokens
		webSearch += u.WebSearchRequests
	}
	toolCalls := lo.SumBy(stats.DailyActivity, func(d model.DailyActivity) uint64 { return d.ToolCallCount })

	rows := [][]string{
		{"Sessions", cli.FormatNumber(stats.TotalSessions)},
		{"Messages", cli.FormatNumber(stats.TotalMessages)},
		{"Tool calls", cli.FormatNumber(toolCalls)},
		{"Active days", cli.FormatNumber(uint64(len(stats.DailyActivity)))},
		cli.Separator,
		{"Input tokens", cli.FormatTokens(input)},
		{"Output tokens", cli.FormatTokens(output)},
		{"Cache write", cli.FormatTokens(cacheWrite)},
		{"Cache read", cli.FormatTokens(cacheRead)},
		{"Web searches", cli.FormatNumber(webSearch)},
		{"Models", strconv.Itoa(len(stats.ModelUsage))},
		cli.Separator,
	}
	if stats.FirstSessionDate != nil {
		rows = append(rows, []string{"First session", firstDate(*stats.FirstSessionDate)})
	}
	if ls := stats.LongestSession; ls != nil {
		rows = append(rows, []string{"Longest session",
			fmt.Sprintf("%s, %s msgs", cli.FormatDuration(ls.Duration), cli.FormatNumber(ls.MessageCount))})
	}
	if hour, n, ok := peakHour(stats.HourCounts); ok {
		rows = append(rows, []string{"Peak hour", fmt.Sprintf("%02d:00 (%s messages)", hour, cli.FormatNumber(n))})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("CLAUDE CODE USAGE"))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Metric", "Value"}, Rows: rows}))

	days := sess.cfg.General.DefaultDays
	series := lastDays(stats.DailyActivity, stats.LastComputedDate, days)
	fmt.Printf("\n  Messages, last %dd  %s\n", days, cli.RenderSparkline(series))

	origin := "recomputed from session logs"
	if !sess.scanned {
		origin = "served from " + sess.engine.CacheLocation()
	}
	fmt.Println(cli.RenderMuted(fmt.Sprintf("  Computed %s, %s", stats.LastComputedDate, origin)))
	fmt.Println()
	return nil
}

// firstDate trims an RFC 3339 timestamp to its date, leaving other values as-is.
func firstDate(ts string) string {
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.Format(model.DateLayout)
	}
	return ts
}

// peakHour returns the busiest hour of the histogram. Ties go to the earlier hour.
func peakHour(counts map[string]uint64) (int, uint64, bool) {
	best, bestN, found := 0, uint64(0), false
	for key, n := range counts {
		h, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if !found || n > bestN || (n == bestN && h < best) {
			best, bestN, found = h, n, true
		}
	}
	return best, bestN, found
}

// lastDays returns message counts for the n dates ending at end, oldest
// first, with zeros for dates without activity.
func lastDays(activity []model.DailyActivity, end string, n int) []uint64 {
	endDate, err := time.Parse(model.DateLayout, end)
	if err != nil || n <= 0 {
		return nil
	}
	byDate := lo.SliceToMap(activity, func(d model.DailyActivity) (string, uint64) {
		return d.Date, d.MessageCount
	})

	out := make([]uint64, n)
	for i := range n {
		date := endDate.AddDate(0, 0, i-n+1).Format(model.DateLayout)
		out[i] = byDate[date]
	}
	return out
}
