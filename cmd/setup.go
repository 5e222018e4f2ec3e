package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
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
	// Load existing config or defaults
	cfg, err := loadConfig()
	if err != nil {
		logger.Warnf("starting from defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	cat, err := cfg.Catalog()
	if err != nil {
		logger.Warnf("catalog overrides ignored in the form: %v", err)
		cat = config.DefaultCatalog()
	}

	fmt.Println()
	fmt.Println("  Welcome to cashflow!")
	fmt.Println()

	vals := tui.NewSetupValues(cfg, cat)
	if err := tui.NewSetupForm(vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled; nothing saved.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}
	if err := vals.Apply(&cfg); err != nil {
		return err
	}

	path := configPath()
	if err := config.SaveFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", path)
	fmt.Println("  Run `cashflow setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}
