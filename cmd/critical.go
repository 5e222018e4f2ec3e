package cmd

import (
	"fmt"

	"github.com/theirongolddev/cashflow/internal/cli"
	"github.com/theirongolddev/cashflow/internal/model"

	"github.com/spf13/cobra"
)

var criticalCmd = &cobra.Command{
	Use:   "critical",
	Short: "Days below the balance threshold, with advice",
	RunE:  runCritical,
}

func init() {
	rootCmd.AddCommand(criticalCmd)
}

func runCritical(cmd *cobra.Command, _ []string) error {
	s, p, err := project(cmd)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(rangeTitle("DÍAS CRÍTICOS", s.in)))
	fmt.Println()

	if len(p.Critical) == 0 {
		fmt.Printf("  Ningún día por debajo de %s.\n\n", cli.FormatMoney(s.cat.Threshold))
		return nil
	}

	t := ledgerTable(p.Critical, s.cat.Threshold)
	t.Title = fmt.Sprintf("%s por debajo de %s", pluralDays(len(p.Critical)), cli.FormatMoney(s.cat.Threshold))
	t.Highlight = nil
	fmt.Print(cli.RenderTable(t))
	fmt.Println()

	fmt.Print(cli.RenderTable(recommendationTable(p.Recommendations)))
	fmt.Println()
	return nil
}

func recommendationTable(recs []model.Recommendation) cli.Table {
	rows := make([][]string, 0, len(recs))
	var prev string
	for _, r := range recs {
		date := cli.FormatDate(r.Date)
		shown := date
		if date == prev {
			shown = ""
		}
		prev = date
		rows = append(rows, []string{shown, r.Message})
	}
	return cli.Table{
		Title:       "Recomendaciones",
		Headers:     []string{"Fecha", "Recomendación"},
		Rows:        rows,
		TextColumns: []int{0, 1},
	}
}
