package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/pipeline"
	"github.com/theirongolddev/cstats/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	var forward pipeline.ProgressFunc
	sess, err := openEngineWith(func(current, total int) {
		if forward != nil {
			forward(current, total)
		}
	})
	if err != nil {
		return err
	}
	defer sess.close()

	// Background fills need ANSI output even when the profile is not detected.
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(sess.cfg, func(progress pipeline.ProgressFunc) tui.Engine {
		forward = progress
		return sess.engine
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
