package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/cli"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Recent prompts from the activity log, newest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "l", 20, "Maximum entries to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	sess, err := openEngine()
	if err != nil {
		return err
	}
	defer sess.close()

	entries, err := sess.engine.History(flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("reading activity log: %w", err)
	}
	if flagJSON {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		printEmpty(sess.engine.ClaudeDir())
		return nil
	}

	loc, err := sess.cfg.Location()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			cli.FormatEpochMs(e.Timestamp, loc),
			cli.Truncate(e.Project, 24),
			cli.Truncate(e.Display, 60),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Last %d prompts", len(entries)),
		Headers: []string{"When", "Project", "Prompt"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}
