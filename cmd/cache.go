package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/cli"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or rebuild the persisted stats cache",
}

var cacheRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute the stats cache from every session log",
	RunE:  runCacheRebuild,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where the stats cache is stored",
	RunE:  runCachePath,
}

func init() {
	cacheCmd.AddCommand(cacheRebuildCmd, cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheRebuild(_ *cobra.Command, _ []string) error {
	if flagNoCache {
		return errors.New("--no-cache leaves nothing to rebuild")
	}
	sess, err := openEngine()
	if err != nil {
		return err
	}
	defer sess.close()

	start := time.Now()
	res, err := sess.engine.Recompute()
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(res)
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Stats cache rebuilt in " + time.Since(start).Round(time.Millisecond).String(),
		Headers: []string{"Scan", "Count"},
		Rows: [][]string{
			{"Session files", cli.FormatNumber(uint64(res.TotalFiles))},
			{"Projects", cli.FormatNumber(uint64(res.ProjectCount))},
			{"Lines read", cli.FormatNumber(uint64(res.Scan.Lines))},
			{"Records parsed", cli.FormatNumber(uint64(res.Scan.Parsed))},
			{"Lines skipped", cli.FormatNumber(uint64(res.Scan.Skipped))},
			{"Oversize lines", cli.FormatNumber(uint64(res.Scan.Oversize))},
			{"Duplicate user records", cli.FormatNumber(uint64(res.Scan.DuplicateUsers))},
			{"Merged assistant chunks", cli.FormatNumber(uint64(res.Scan.MergedChunks))},
			cli.Separator,
			{"Messages", cli.FormatNumber(res.Stats.TotalMessages)},
			{"Sessions", cli.FormatNumber(res.Stats.TotalSessions)},
		},
	}))
	if !sess.cfg.Cache.Write {
		fmt.Println(cli.RenderMuted("  cache.write is off; nothing was persisted."))
	} else {
		fmt.Printf("  Saved to %s\n", sess.engine.CacheLocation())
	}
	fmt.Println()
	return nil
}

func runCachePath(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Println(cfg.CachePath())
	return nil
}
