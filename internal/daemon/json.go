package daemon

import (
	"github.com/theirongolddev/cashflow/internal/model"
	"github.com/theirongolddev/cashflow/internal/pipeline"
)

// ProjectionJSON is the /v1/projection payload. Dates are YYYY-MM-DD.
type ProjectionJSON struct {
	Start           string               `json:"start"`
	End             string               `json:"end"`
	InitialBalance  float64              `json:"initial_balance"`
	Threshold       float64              `json:"threshold"`
	Reductions      map[string]float64   `json:"reductions"`
	Ledger          []DayJSON            `json:"ledger"`
	Summary         []SummaryJSON        `json:"summary"`
	Critical        []DayJSON            `json:"critical"`
	Recommendations []RecommendationJSON `json:"recommendations"`
}

// DayJSON is one ledger row.
type DayJSON struct {
	Date         string  `json:"date"`
	Day          int     `json:"day"`
	Month        int     `json:"month"`
	Weekday      string  `json:"weekday"`
	Income       float64 `json:"income"`
	IncomeLabel  string  `json:"income_label"`
	Expense      float64 `json:"expense"`
	ExpenseLabel string  `json:"expense_label"`
	Balance      float64 `json:"balance"`
}

// SummaryJSON is one reduction summary row.
type SummaryJSON struct {
	Category        string  `json:"category"`
	Original        float64 `json:"original"`
	AdjustedAverage float64 `json:"adjusted_average"`
	TotalReduced    float64 `json:"total_reduced"`
	Occurrences     int     `json:"occurrences"`
}

// RecommendationJSON is one piece of advice.
type RecommendationJSON struct {
	Date    string `json:"date"`
	Message string `json:"message"`
}

func newProjectionJSON(res result) ProjectionJSON {
	p := res.proj
	out := ProjectionJSON{
		Start:           res.in.Start.Format(pipeline.DateLayout),
		End:             res.in.End.Format(pipeline.DateLayout),
		InitialBalance:  res.in.InitialBalance,
		Threshold:       res.cat.Threshold,
		Reductions:      res.in.Reductions,
		Ledger:          daysJSON(p.Ledger),
		Summary:         make([]SummaryJSON, 0, len(p.Summary)),
		Critical:        daysJSON(p.Critical),
		Recommendations: make([]RecommendationJSON, 0, len(p.Recommendations)),
	}
	if out.Reductions == nil {
		out.Reductions = map[string]float64{}
	}
	for _, r := range p.Summary {
		out.Summary = append(out.Summary, SummaryJSON(r))
	}
	for _, r := range p.Recommendations {
		out.Recommendations = append(out.Recommendations, RecommendationJSON{
			Date:    r.Date.Format(pipeline.DateLayout),
			Message: r.Message,
		})
	}
	return out
}

func daysJSON(days []model.DayRecord) []DayJSON {
	out := make([]DayJSON, 0, len(days))
	for _, d := range days {
		out = append(out, DayJSON{
			Date:         d.Date.Format(pipeline.DateLayout),
			Day:          d.Day,
			Month:        d.Month,
			Weekday:      d.Weekday,
			Income:       d.Income,
			IncomeLabel:  d.IncomeLabel,
			Expense:      d.Expense,
			ExpenseLabel: d.ExpenseLabel,
			Balance:      d.Balance,
		})
	}
	return out
}
