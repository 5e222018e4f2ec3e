package cmd

import (
	"fmt"
	"strconv"

	"github.com/theirongolddev/cashflow/internal/cli"
	"github.com/theirongolddev/cashflow/internal/model"
	"github.com/theirongolddev/cashflow/internal/pipeline"

	"github.com/spf13/cobra"
)

var flowCmd = &cobra.Command{
	Use:   "flow",
	Short: "Day-by-day ledger (default command)",
	RunE:  runFlow,
}

func init() {
	rootCmd.AddCommand(flowCmd)
}

func runFlow(cmd *cobra.Command, _ []string) error {
	s, p, err := project(cmd)
	if err != nil {
		return err
	}
	if p.Empty() {
		fmt.Println("\n  Nothing to project in the selected range.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(rangeTitle("FLUJO DE CAJA", s.in)))
	fmt.Println()
	fmt.Print(cli.RenderTable(ledgerTable(p.Ledger, s.cat.Threshold)))

	fmt.Println()
	fmt.Printf("  Saldo  %s\n", cli.RenderSparkline(pipeline.BalanceSeries(p.Ledger)))
	if n := len(p.Critical); n > 0 {
		fmt.Printf("  %d días por debajo de %s. Ver `cashflow critical`.\n", n, cli.FormatMoney(s.cat.Threshold))
	}
	fmt.Println()
	return nil
}

// ledgerTable renders day records. Rows under threshold are highlighted.
func ledgerTable(days []model.DayRecord, threshold float64) cli.Table {
	rows := make([][]string, 0, len(days))
	highlight := make(map[int]bool)
	for i, d := range days {
		rows = append(rows, []string{
			cli.FormatDate(d.Date),
			cli.FormatDayOfWeek(d.Weekday),
			cli.FormatAmount(d.Income),
			d.IncomeLabel,
			cli.FormatAmount(d.Expense),
			cli.TrimLabel(d.ExpenseLabel),
			cli.FormatMoney(d.Balance),
		})
		if d.Balance < threshold {
			highlight[i] = true
		}
	}
	return cli.Table{
		Headers:     []string{"Fecha", "Día", "Ingresos", "Desc. ingresos", "Gastos", "Desc. gastos", "Saldo"},
		Rows:        rows,
		TextColumns: []int{1, 3, 5},
		Highlight:   highlight,
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 día"
	}
	return strconv.Itoa(n) + " días"
}
