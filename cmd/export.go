package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/cashflow/internal/export"

	"github.com/spf13/cobra"
)

var (
	flagOut   string
	flagChart string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the projection to an Excel workbook",
	Long: "Write the ledger, reduction summary, critical days and recommendations to\n" +
		"an .xlsx workbook, one sheet each. With --chart, also render the balance\n" +
		"series as a PNG line chart.",
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Workbook path (default: config export.path)")
	exportCmd.Flags().StringVar(&flagChart, "chart", "", "Also write a PNG balance chart to this path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	s, p, err := project(cmd)
	if err != nil {
		return err
	}

	out := flagOut
	if out == "" {
		out = s.cfg.Export.Path
	}
	if err := export.SaveWorkbook(out, p); err != nil {
		return err
	}
	logger.WithField("days", len(p.Ledger)).Debug("workbook written")
	fmt.Printf("  Exportado a %s\n", out)

	chart := flagChart
	if chart == "" {
		chart = s.cfg.Export.Chart
	}
	if chart == "" {
		return nil
	}
	if err := export.SaveBalanceChart(chart, p.Ledger, s.cat.Threshold); err != nil {
		if errors.Is(err, export.ErrTooFewDays) {
			logger.Warnf("skipping chart: %v", err)
			return nil
		}
		return err
	}
	fmt.Printf("  Gráfico en %s\n", chart)
	return nil
}
