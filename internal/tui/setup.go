package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/cstats/internal/config"
	"github.com/theirongolddev/cstats/internal/tui/theme"
)

// SetupValues are the answers collected by the setup form.
type SetupValues struct {
	ClaudeDir   string
	DefaultDays int
	Timezone    string
	Backend     string
	WriteCache  bool
	Theme       string
}

var daysOptions = []int{7, 14, 30, 90}

// SetupValuesFrom seeds the form with the current configuration.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		ClaudeDir:   cfg.General.ClaudeDir,
		DefaultDays: cfg.General.DefaultDays,
		Timezone:    cfg.General.Timezone,
		Backend:     cfg.Cache.Backend,
		WriteCache:  cfg.Cache.Write,
		Theme:       cfg.Appearance.Theme,
	}
}

// Apply copies the answers onto cfg and validates the result.
func (v SetupValues) Apply(cfg config.Config) (config.Config, error) {
	cfg.General.ClaudeDir = strings.TrimSpace(v.ClaudeDir)
	cfg.General.DefaultDays = v.DefaultDays
	cfg.General.Timezone = strings.TrimSpace(v.Timezone)
	cfg.Cache.Backend = v.Backend
	cfg.Cache.Write = v.WriteCache
	cfg.Appearance.Theme = v.Theme
	return cfg, cfg.Validate()
}

// NewSetupForm builds the first-run questionnaire. sessions and claudeDir
// describe what the current settings already find.
func NewSetupForm(sessions int, claudeDir string, vals *SetupValues) *huh.Form {
	dayOpts := make([]huh.Option[int], 0, len(daysOptions))
	for _, d := range daysOptions {
		dayOpts = append(dayOpts, huh.NewOption(fmt.Sprintf("%d days", d), d))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to cstats").
				Description(fmt.Sprintf("Found %d session logs in %s.", sessions, claudeDir)),
			huh.NewInput().
				Title("Claude data directory").
				Description("Leave empty for $CLAUDE_CONFIG_DIR or ~/.claude.").
				Value(&vals.ClaudeDir).
				Validate(validateDir),
			huh.NewInput().
				Title("Time zone").
				Description("IANA name used for dates and hours; empty for local time.").
				Value(&vals.Timezone).
				Validate(validateTimezone),
		),
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Days shown by daily views").
				Options(dayOpts...).
				Value(&vals.DefaultDays),
			huh.NewSelect[string]().
				Title("Stats cache backend").
				Options(
					huh.NewOption("JSON document next to the logs", config.BackendJSON),
					huh.NewOption("SQLite database in the cache directory", config.BackendSQLite),
				).
				Value(&vals.Backend),
			huh.NewConfirm().
				Title("Persist recomputed stats?").
				Value(&vals.WriteCache),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&vals.Theme),
		),
	).WithTheme(huh.ThemeCharm())
}

func validateDir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "~/") {
		return nil
	}
	info, err := os.Stat(s)
	if err != nil {
		return fmt.Errorf("cannot read %s", s)
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}

func validateTimezone(s string) error {
	cfg := config.DefaultConfig()
	cfg.General.Timezone = strings.TrimSpace(s)
	_, err := cfg.Location()
	return err
}
