package tui

import (
	"strconv"

	"github.com/theirongolddev/cashflow/internal/cli"
	"github.com/theirongolddev/cashflow/internal/model"
	"github.com/theirongolddev/cashflow/internal/tui/theme"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

const (
	tabLedger = iota
	tabSummary
	tabCritical
	tabRecommendations
)

func ledgerColumns(labelW int) []table.Column {
	return []table.Column{
		{Title: "Fecha", Width: 10},
		{Title: "Día", Width: 3},
		{Title: "Ingresos", Width: 11},
		{Title: "Descripción ingresos", Width: 16},
		{Title: "Gastos", Width: 10},
		{Title: "Descripción gastos", Width: labelW},
		{Title: "Saldo", Width: 11},
	}
}

func ledgerRows(days []model.DayRecord) []table.Row {
	rows := make([]table.Row, len(days))
	for i, d := range days {
		rows[i] = table.Row{
			cli.FormatDate(d.Date),
			cli.FormatDayOfWeek(d.Weekday),
			cli.FormatAmount(d.Income),
			d.IncomeLabel,
			cli.FormatAmount(d.Expense),
			cli.TrimLabel(d.ExpenseLabel),
			cli.FormatMoney(d.Balance),
		}
	}
	return rows
}

func summaryColumns() []table.Column {
	return []table.Column{
		{Title: "Categoría", Width: 14},
		{Title: "Valor original", Width: 14},
		{Title: "Ajustado promedio", Width: 17},
		{Title: "Total reducciones", Width: 17},
		{Title: "Veces", Width: 6},
	}
}

func summaryRows(summary []model.ReductionSummary) []table.Row {
	rows := make([]table.Row, len(summary))
	for i, s := range summary {
		rows[i] = table.Row{
			s.Category,
			cli.FormatMoney(s.Original),
			cli.FormatMoney(s.AdjustedAverage),
			cli.FormatMoney(s.TotalReduced),
			strconv.Itoa(s.Occurrences),
		}
	}
	return rows
}

func criticalColumns(labelW int) []table.Column {
	return []table.Column{
		{Title: "Fecha", Width: 10},
		{Title: "Saldo", Width: 11},
		{Title: "Gastos", Width: 10},
		{Title: "Descripción gastos", Width: labelW},
	}
}

func criticalRows(days []model.DayRecord) []table.Row {
	rows := make([]table.Row, len(days))
	for i, d := range days {
		rows[i] = table.Row{
			cli.FormatDate(d.Date),
			cli.FormatMoney(d.Balance),
			cli.FormatAmount(d.Expense),
			cli.TrimLabel(d.ExpenseLabel),
		}
	}
	return rows
}

func recommendationColumns(msgW int) []table.Column {
	return []table.Column{
		{Title: "Fecha", Width: 10},
		{Title: "Recomendación", Width: msgW},
	}
}

func recommendationRows(recs []model.Recommendation) []table.Row {
	rows := make([]table.Row, len(recs))
	for i, r := range recs {
		rows[i] = table.Row{cli.FormatDate(r.Date), r.Message}
	}
	return rows
}

func tableStyles() table.Styles {
	t := theme.Active
	s := table.DefaultStyles()
	s.Header = s.Header.
		Foreground(t.Accent).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Bold(true)
	s.Cell = s.Cell.Foreground(t.TextPrimary)
	s.Selected = s.Selected.
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(false)
	return s
}

// buildTables creates one table per tab, sized for the content area.
func buildTables(p model.Projection, width, height int) [4]table.Model {
	// Fixed columns plus cell padding; the label column takes the rest.
	ledgerLabelW := max(width-(10+3+11+16+10+11)-2*7-2, 18)
	criticalLabelW := max(width-(10+11+10)-2*4-2, 18)
	recW := max(width-10-2*2-2, 30)
	height = max(height, 3)

	mk := func(cols []table.Column, rows []table.Row) table.Model {
		return table.New(
			table.WithColumns(cols),
			table.WithRows(rows),
			table.WithHeight(height),
			table.WithFocused(true),
			table.WithStyles(tableStyles()),
		)
	}

	var tables [4]table.Model
	tables[tabLedger] = mk(ledgerColumns(ledgerLabelW), ledgerRows(p.Ledger))
	tables[tabSummary] = mk(summaryColumns(), summaryRows(p.Summary))
	tables[tabCritical] = mk(criticalColumns(criticalLabelW), criticalRows(p.Critical))
	tables[tabRecommendations] = mk(recommendationColumns(recW), recommendationRows(p.Recommendations))
	return tables
}
