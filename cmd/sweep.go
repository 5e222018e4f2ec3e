package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/theirongolddev/cashflow/internal/cli"
	"github.com/theirongolddev/cashflow/internal/pipeline"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "What-if grid: critical days per category and reduction factor",
	Long: "Re-run the projection for every variable category at every factor from\n" +
		"0.0 to 1.0, keeping the other factors as configured. Each cell is the\n" +
		"number of critical days; the last column is the smallest factor that\n" +
		"clears them all.",
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	steps := pipeline.DefaultSteps()
	scenarios := pipeline.Scenarios(s.cat, steps)

	started := time.Now()
	results, err := pipeline.Sweep(s.cat, s.in, scenarios, nil)
	if err != nil {
		return err
	}
	logger.WithField("scenarios", len(results)).
		WithField("elapsed", time.Since(started).Round(time.Microsecond)).
		Debug("sweep done")

	fmt.Println()
	fmt.Println(cli.RenderTitle(rangeTitle("SIMULACIÓN DE REDUCCIONES", s.in)))
	fmt.Println()
	fmt.Print(cli.RenderTable(sweepTable(results, s.cat.VariableNames(), steps)))
	fmt.Println()
	return nil
}

// sweepTable lays results out one row per category, one column per step.
func sweepTable(results []pipeline.ScenarioResult, categories []string, steps []float64) cli.Table {
	headers := []string{"Categoría"}
	for _, f := range steps {
		headers = append(headers, strconv.FormatFloat(f, 'f', 1, 64))
	}
	headers = append(headers, "Mínimo")

	byCell := make(map[pipeline.Scenario]int, len(results))
	for _, r := range results {
		byCell[r.Scenario] = r.Stats.CriticalDays
	}

	rows := make([][]string, 0, len(categories))
	for _, name := range categories {
		row := []string{name}
		for _, f := range steps {
			row = append(row, strconv.Itoa(byCell[pipeline.Scenario{Category: name, Factor: f}]))
		}
		if f, ok := pipeline.SafeFactor(results, name); ok {
			row = append(row, cli.FormatPercent(f))
		} else {
			row = append(row, "-")
		}
		rows = append(rows, row)
	}

	return cli.Table{
		Title:       "Días críticos por factor de reducción",
		Headers:     headers,
		Rows:        rows,
		TextColumns: []int{0},
	}
}
