package cmd

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/cli"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Today's messages, sessions, tool calls and tokens",
	RunE:  runToday,
}

func init() {
	rootCmd.AddCommand(todayCmd)
}

func runToday(_ *cobra.Command, _ []string) error {
	sess, err := openEngine()
	if err != nil {
		return err
	}
	defer sess.close()

	today, err := sess.engine.TodaySummary()
	if err != nil {
		return fmt.Errorf("computing today's summary: %w", err)
	}
	if flagJSON {
		return printJSON(today)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("TODAY  " + today.Date))
	fmt.Println()
	if today.IsZero() {
		fmt.Println("  No activity yet today.")
		fmt.Println()
		return nil
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Messages", cli.FormatNumber(today.Messages)},
			{"Sessions", cli.FormatNumber(today.Sessions)},
			{"Tool calls", cli.FormatNumber(today.ToolCalls)},
			{"Output tokens", cli.FormatTokens(today.TotalTokens)},
		},
	}))

	if len(today.TokensByModel) > 0 {
		names := slices.SortedFunc(maps.Keys(today.TokensByModel), func(a, b string) int {
			if c := cmp.Compare(today.TokensByModel[b], today.TokensByModel[a]); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{cli.ShortModel(name), cli.FormatTokens(today.TokensByModel[name])})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{Title: "Output tokens by model", Headers: []string{"Model", "Tokens"}, Rows: rows}))
	}
	fmt.Println()
	return nil
}
