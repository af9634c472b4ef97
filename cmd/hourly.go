package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/cli"
)

var hourlyCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Messages by hour of day",
	RunE:  runHourly,
}

func init() {
	rootCmd.AddCommand(hourlyCmd)
}

func runHourly(_ *cobra.Command, _ []string) error {
	sess, err := openEngine()
	if err != nil {
		return err
	}
	defer sess.close()

	stats := sess.engine.StatsCache()
	if flagJSON {
		return printJSON(stats.HourCounts)
	}
	if len(stats.HourCounts) == 0 {
		printEmpty(sess.engine.ClaudeDir())
		return nil
	}

	var counts [24]uint64
	var peak uint64
	for h := range counts {
		counts[h] = stats.HourCounts[strconv.Itoa(h)]
		peak = max(peak, counts[h])
	}

	fmt.Println()
	tz := sess.cfg.General.Timezone
	if tz == "" {
		tz = "local time"
	}
	fmt.Println(cli.RenderTitle(fmt.Sprintf("MESSAGES BY HOUR  (%s)", tz)))
	fmt.Println()
	for h, n := range counts {
		fmt.Printf("  %02d:00 │ %6s │ %s\n", h, cli.FormatNumber(n), cli.RenderBar(n, peak, 40))
	}

	if hour, n, ok := peakHour(stats.HourCounts); ok {
		fmt.Printf("\n  Peak: %02d:00 (%s messages)\n\n", hour, cli.FormatNumber(n))
	}
	return nil
}
