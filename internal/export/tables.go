// Package export writes projections to spreadsheets and charts, and reads
// exported workbooks back.
package export

import (
	"time"

	"github.com/theirongolddev/cashflow/internal/model"
)

// Sheet names, in workbook order.
const (
	SheetLedger          = "Flujo"
	SheetSummary         = "Resumen"
	SheetCritical        = "Dias_Criticos"
	SheetRecommendations = "Recomendaciones"
)

// Column headers in display order.
var (
	LedgerHeaders = []string{
		"fecha", "dia", "mes", "dia_semana",
		"ingresos", "descripcion_ingresos",
		"gastos", "descripcion_gastos",
		"saldo",
	}
	SummaryHeaders        = []string{"Categoría", "Valor original", "Valor ajustado promedio", "Total reducciones"}
	RecommendationHeaders = []string{"Fecha", "Recomendación"}
)

// Table is one output table as rows of typed cells: time.Time, int, float64
// or string.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]any
	// DateColumns and MoneyColumns are zero-based column indexes that get a
	// number format when written.
	DateColumns  []int
	MoneyColumns []int
}

// Tables flattens a projection into its four tables, in sheet order.
func Tables(p model.Projection) []Table {
	return []Table{
		dayTable(SheetLedger, p.Ledger),
		summaryTable(p.Summary),
		dayTable(SheetCritical, p.Critical),
		recommendationTable(p.Recommendations),
	}
}

func dayTable(sheet string, days []model.DayRecord) Table {
	rows := make([][]any, len(days))
	for i, d := range days {
		rows[i] = []any{
			d.Date, d.Day, d.Month, d.Weekday,
			d.Income, d.IncomeLabel,
			d.Expense, d.ExpenseLabel,
			d.Balance,
		}
	}
	return Table{
		Sheet:        sheet,
		Headers:      LedgerHeaders,
		Rows:         rows,
		DateColumns:  []int{0},
		MoneyColumns: []int{4, 6, 8},
	}
}

func summaryTable(summary []model.ReductionSummary) Table {
	rows := make([][]any, len(summary))
	for i, s := range summary {
		rows[i] = []any{s.Category, s.Original, s.AdjustedAverage, s.TotalReduced}
	}
	return Table{
		Sheet:        SheetSummary,
		Headers:      SummaryHeaders,
		Rows:         rows,
		MoneyColumns: []int{1, 2, 3},
	}
}

func recommendationTable(recs []model.Recommendation) Table {
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{r.Date, r.Message}
	}
	return Table{
		Sheet:       SheetRecommendations,
		Headers:     RecommendationHeaders,
		Rows:        rows,
		DateColumns: []int{0},
	}
}

// dateOnly drops any clock component a spreadsheet serial may carry.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
