// Package cmd implements the cstats CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/cstats/internal/cli"
	"github.com/theirongolddev/cstats/internal/config"
	"github.com/theirongolddev/cstats/internal/logging"
	"github.com/theirongolddev/cstats/internal/pipeline"
	"github.com/theirongolddev/cstats/internal/source"
	"github.com/theirongolddev/cstats/internal/store"
	"github.com/theirongolddev/cstats/internal/tui/theme"
)

var (
	flagDataDir  string
	flagTimezone string
	flagBackend  string
	flagDays     int
	flagNoCache  bool
	flagNoWrite  bool
	flagQuiet    bool
	flagVerbose  bool
	flagJSON     bool
)

// logger is built once flags are parsed.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "cstats",
	Short: "Claude Code usage statistics",
	Long:  "Summarize Claude Code session logs: messages, sessions, tool calls and tokens per day, model and hour.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		l, err := logging.New(flagVerbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
	RunE:         runSummary,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagDataDir, "data-dir", "d", "", "Claude data directory (default $CLAUDE_CONFIG_DIR or ~/.claude)")
	pf.StringVar(&flagTimezone, "tz", "", "IANA time zone for date bucketing (default local)")
	pf.StringVar(&flagBackend, "backend", "", "Stats cache backend: json or sqlite")
	pf.IntVarP(&flagDays, "days", "n", 0, "Days shown by daily views (default from config)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Ignore the persisted stats cache and recompute")
	pf.BoolVar(&flagNoWrite, "no-write", false, "Do not persist a recomputed stats cache")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging on stderr")
	pf.BoolVar(&flagJSON, "json", false, "Print machine-readable JSON")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if flagDataDir != "" {
		cfg.General.ClaudeDir = flagDataDir
	}
	if flagTimezone != "" {
		cfg.General.Timezone = flagTimezone
	}
	if flagBackend != "" {
		cfg.Cache.Backend = flagBackend
	}
	if flagDays > 0 {
		cfg.General.DefaultDays = flagDays
	}
	if flagNoWrite {
		cfg.Cache.Write = false
	}
	if !theme.SetActive(cfg.Appearance.Theme) {
		logger.Warn("unknown theme; using default", zap.String("theme", cfg.Appearance.Theme))
	}
	return cfg, cfg.Validate()
}

// openStore opens the configured cache backend. The returned close function
// is always safe to call.
func openStore(cfg config.Config) (pipeline.Store, func(), error) {
	path := cfg.CachePath()
	switch cfg.Cache.Backend {
	case config.BackendSQLite:
		db, err := store.OpenSQLite(path)
		if err != nil {
			return nil, func() {}, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return store.NewJSONFile(path), func() {}, nil
	}
}

// engineSession bundles an engine with the config it was built from.
type engineSession struct {
	cfg    config.Config
	engine *pipeline.Engine
	close  func()
	// scanned is set once the progress callback fired, i.e. a recompute ran.
	scanned bool
}

// openEngine is the shared setup used by every data command. A cache backend
// that cannot be opened is logged and skipped rather than failing the command.
func openEngine() (*engineSession, error) {
	return openEngineWith(nil)
}

// openEngineWith is openEngine with a custom progress callback; nil prints
// scan progress to stderr.
func openEngineWith(report pipeline.ProgressFunc) (*engineSession, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	sess := &engineSession{cfg: cfg, close: func() {}}

	var st pipeline.Store
	if !flagNoCache {
		s, closeFn, err := openStore(cfg)
		if err != nil {
			logger.Warn("stats cache unavailable; recomputing without it",
				zap.String("path", cfg.CachePath()), zap.Error(err))
		} else {
			st, sess.close = s, closeFn
		}
	}

	progress := func(current, total int) {
		sess.scanned = true
		if report != nil {
			report(current, total)
			return
		}
		if flagQuiet || flagJSON {
			return
		}
		if current%50 == 0 || current == total {
			fmt.Fprint(os.Stderr, cli.RenderProgress(current, total))
		}
		if current == total {
			fmt.Fprintln(os.Stderr)
		}
	}

	sess.engine = pipeline.NewEngine(pipeline.EngineConfig{
		ClaudeDir: cfg.ClaudeDirPath(),
		Store:     st,
		Persist:   st != nil && cfg.Cache.Write,
		Options: pipeline.Options{
			Location: loc,
			Limits: source.Limits{
				MaxLineBytes:    cfg.Limits.MaxLineBytes,
				MaxLinesPerFile: cfg.Limits.MaxLinesPerFile,
				MaxBytesPerFile: cfg.Limits.MaxBytesPerFile,
			},
			Progress: progress,
		},
		Logger: logger,
	})
	return sess, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEmpty(claudeDir string) {
	fmt.Println()
	fmt.Printf("  No Claude Code activity found in %s.\n", claudeDir)
	fmt.Println("  Use Claude Code first, then come back!")
	fmt.Println()
}
