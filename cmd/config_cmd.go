package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/config"
	"github.com/theirongolddev/cstats/internal/source"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cfg)
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	tz := cfg.General.Timezone
	if tz == "" {
		tz = "local"
	}
	fmt.Println("  [General]")
	fmt.Printf("    Claude directory: %s\n", cfg.ClaudeDirPath())
	fmt.Printf("    Default days:     %d\n", cfg.General.DefaultDays)
	fmt.Printf("    Time zone:        %s\n", tz)
	fmt.Println()

	fmt.Println("  [Cache]")
	fmt.Printf("    Backend: %s\n", cfg.Cache.Backend)
	fmt.Printf("    Path:    %s\n", cfg.CachePath())
	fmt.Printf("    Write:   %v\n", cfg.Cache.Write)
	fmt.Println()

	fmt.Println("  [Limits]")
	maxLine := limitString(int64(cfg.Limits.MaxLineBytes))
	if cfg.Limits.MaxLineBytes == 0 {
		maxLine = fmt.Sprintf("%d (default)", source.DefaultMaxLineBytes)
	}
	fmt.Printf("    Max line bytes:     %s\n", maxLine)
	fmt.Printf("    Max lines per file: %s\n", limitString(int64(cfg.Limits.MaxLinesPerFile)))
	fmt.Printf("    Max bytes per file: %s\n", limitString(cfg.Limits.MaxBytesPerFile))
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %ds\n", cfg.Daemon.IntervalSec)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:        %s\n", cfg.Appearance.Theme)
	fmt.Printf("    Auto refresh: %s\n", refreshString(cfg.Appearance.AutoRefreshSec))
	fmt.Println()

	if len(cfg.Pricing.Overrides) > 0 {
		fmt.Println("  [Pricing overrides]")
		for _, name := range slices.Sorted(maps.Keys(cfg.Pricing.Overrides)) {
			fmt.Printf("    %s\n", name)
		}
		fmt.Println()
	}

	fmt.Println("  Run `cstats setup` to reconfigure.")
	return nil
}

func limitString(n int64) string {
	if n == 0 {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

func refreshString(sec int) string {
	if sec == 0 {
		return "off"
	}
	return fmt.Sprintf("every %ds", sec)
}
