package pipeline

import "github.com/theirongolddev/cashflow/internal/model"

// ComputeStats derives headline figures from a finished projection.
func ComputeStats(p model.Projection) model.Stats {
	var s model.Stats
	s.Days = len(p.Ledger)
	s.CriticalDays = len(p.Critical)
	if s.Days == 0 {
		return s
	}

	first := p.Ledger[0]
	s.OpeningBalance = first.Balance
	s.ClosingBalance = p.Ledger[s.Days-1].Balance
	s.MinBalance = first.Balance
	s.MinBalanceDate = first.Date

	for _, d := range p.Ledger {
		s.TotalIncome += d.Income
		s.TotalExpense += d.Expense
		s.Paydays += len(d.Credits)
		if d.Balance < s.MinBalance {
			s.MinBalance = d.Balance
			s.MinBalanceDate = d.Date
		}
	}
	s.TotalIncome = round2(s.TotalIncome)
	s.TotalExpense = round2(s.TotalExpense)

	for _, r := range p.Summary {
		s.TotalReduced += r.TotalReduced
	}
	s.TotalReduced = round2(s.TotalReduced)

	return s
}

// BalanceSeries returns the ledger balances in date order.
func BalanceSeries(ledger []model.DayRecord) []float64 {
	out := make([]float64, len(ledger))
	for i, d := range ledger {
		out[i] = d.Balance
	}
	return out
}
