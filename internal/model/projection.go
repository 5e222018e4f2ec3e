package model

import "time"

// Projection holds the four derived tables of one projector run.
// Every slice is freshly allocated and never mutated after return.
type Projection struct {
	Ledger          []DayRecord
	Summary         []ReductionSummary
	Critical        []DayRecord
	Recommendations []Recommendation
}

// Empty reports whether the projection has no ledger days.
func (p Projection) Empty() bool {
	return len(p.Ledger) == 0
}

// Stats holds headline figures derived from a ledger.
type Stats struct {
	Days           int
	OpeningBalance float64
	ClosingBalance float64
	MinBalance     float64
	MinBalanceDate time.Time
	TotalIncome    float64
	TotalExpense   float64
	Paydays        int
	CriticalDays   int
	TotalReduced   float64
}
