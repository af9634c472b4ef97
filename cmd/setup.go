package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/config"
	"github.com/theirongolddev/cstats/internal/source"
	"github.com/theirongolddev/cstats/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("existing config unreadable; starting from defaults")
		cfg = config.DefaultConfig()
	}

	claudeDir := cfg.ClaudeDirPath()
	if flagDataDir != "" {
		claudeDir = flagDataDir
	}
	files := source.SessionFiles(claudeDir)

	vals := tui.SetupValuesFrom(cfg)
	if err := tui.NewSetupForm(len(files), claudeDir, &vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled; nothing saved.")
			return nil
		}
		return err
	}

	cfg, err = vals.Apply(cfg)
	if err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `cstats setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
