package cmd

import (
	"fmt"

	"github.com/theirongolddev/cashflow/internal/tui"
	"github.com/theirongolddev/cashflow/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var flagSkipForm bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive simulator",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagSkipForm, "skip-form", false, "Show results for the current flags without opening the form")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	theme.SetActive(s.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		Catalog:    s.cat,
		Input:      s.in,
		SkipForm:   flagSkipForm,
		ExportPath: s.cfg.Export.Path,
		ChartPath:  s.cfg.Export.Chart,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
