package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/theirongolddev/cashflow/internal/cli"
	"github.com/theirongolddev/cashflow/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func configPath() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}
	return config.Path()
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	path := configPath()
	fmt.Printf("  Config file: %s\n", path)
	if _, err := os.Stat(path); err == nil {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Initial balance:  %s\n", cli.FormatMoney(cfg.General.InitialBalance))
	if cfg.General.StartDate != "" {
		fmt.Printf("    Start date:       %s\n", cfg.General.StartDate)
	} else {
		fmt.Println("    Start date:       today")
	}
	fmt.Printf("    Days:             %d\n", cfg.General.Days)
	fmt.Printf("    Threshold:        %s\n", cli.FormatMoney(cat.Threshold))
	fmt.Printf("    Settle first day: %v\n", cfg.General.SettleFirstDay)
	fmt.Println()

	fmt.Println("  [Reductions]")
	for _, name := range cat.VariableNames() {
		fmt.Printf("    %-13s %s\n", name+":", cli.FormatPercent(cfg.Reductions[name]))
	}
	fmt.Println()

	fmt.Println("  [Catalog]")
	fmt.Printf("    Income:    %s %s on days %s\n",
		cat.Income.Label, cli.FormatMoney(cat.Income.Amount), joinInts(cat.Income.Days))
	for _, r := range cat.Recurring {
		fmt.Printf("    Recurring: %s %s on days %s\n", r.Name, cli.FormatMoney(r.Amount), joinInts(r.Days))
	}
	for _, v := range cat.Variable {
		when := "every other day"
		if !v.EveryOther {
			names := make([]string, len(v.Weekdays))
			for i, wd := range v.Weekdays {
				names[i] = wd.String()
			}
			when = strings.Join(names, ", ")
		}
		fmt.Printf("    Variable:  %s %s (%s)\n", v.Name, cli.FormatMoney(v.Amount), when)
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Export]")
	fmt.Printf("    Workbook: %s\n", cfg.Export.Path)
	if cfg.Export.Chart != "" {
		fmt.Printf("    Chart:    %s\n", cfg.Export.Chart)
	}
	fmt.Println()

	fmt.Println("  Run `cashflow setup` to reconfigure.")
	return nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}
