package cmd

import (
	"fmt"

	"github.com/theirongolddev/cashflow/internal/cli"
	"github.com/theirongolddev/cashflow/internal/model"
	"github.com/theirongolddev/cashflow/internal/pipeline"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Headline figures and reduction summary",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	s, p, err := project(cmd)
	if err != nil {
		return err
	}
	if p.Empty() {
		fmt.Println("\n  Nothing to project in the selected range.")
		return nil
	}

	st := pipeline.ComputeStats(p)
	threshold := s.cat.Threshold

	fmt.Println()
	fmt.Println(cli.RenderTitle(rangeTitle("RESUMEN", s.in)))
	fmt.Println()

	const w = 18
	fmt.Println(cli.RenderKeyValue("Días", pluralDays(st.Days), w))
	fmt.Println(cli.RenderKeyValue("Saldo inicial", cli.RenderBalance(st.OpeningBalance, threshold), w))
	fmt.Println(cli.RenderKeyValue("Saldo final", cli.RenderBalance(st.ClosingBalance, threshold), w))
	fmt.Println(cli.RenderKeyValue("Saldo mínimo",
		fmt.Sprintf("%s  (%s)", cli.RenderBalance(st.MinBalance, threshold), cli.FormatDate(st.MinBalanceDate)), w))
	fmt.Println(cli.RenderKeyValue("Ingresos", cli.FormatMoney(st.TotalIncome), w))
	fmt.Println(cli.RenderKeyValue("Gastos", cli.FormatMoney(st.TotalExpense), w))
	fmt.Println(cli.RenderKeyValue("Neto", cli.FormatSignedMoney(st.TotalIncome-st.TotalExpense), w))
	fmt.Println(cli.RenderKeyValue("Pagos", cli.FormatNumber(int64(st.Paydays)), w))
	fmt.Println(cli.RenderKeyValue("Días críticos", cli.FormatNumber(int64(st.CriticalDays)), w))
	fmt.Println(cli.RenderKeyValue("Ahorro", cli.FormatMoney(st.TotalReduced), w))
	fmt.Println()

	if len(p.Summary) == 0 {
		return nil
	}
	fmt.Print(cli.RenderTable(summaryTable(p.Summary, s.in.Reductions)))
	fmt.Println()

	var most float64
	for _, r := range p.Summary {
		most = max(most, r.TotalReduced)
	}
	if most > 0 {
		fmt.Println(cli.RenderTitle("AHORRO POR CATEGORÍA"))
		for _, r := range p.Summary {
			fmt.Println(cli.RenderHorizontalBar(r.Category, r.TotalReduced, most, 30))
		}
		fmt.Println()
	}
	return nil
}

func summaryTable(rows []model.ReductionSummary, reductions map[string]float64) cli.Table {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Category,
			cli.FormatPercent(reductions[r.Category]),
			cli.FormatNumber(int64(r.Occurrences)),
			cli.FormatMoney(r.Original),
			cli.FormatMoney(r.AdjustedAverage),
			cli.FormatMoney(r.TotalReduced),
		})
	}
	return cli.Table{
		Title:       "Reducción de gastos variables",
		Headers:     []string{"Categoría", "Factor", "Veces", "Original", "Ajustado prom.", "Total reducido"},
		Rows:        out,
		TextColumns: []int{0},
	}
}
