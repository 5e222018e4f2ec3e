// Package pipeline projects a daily cash-flow ledger and derives its
// summary, critical-day and recommendation tables.
package pipeline

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/model"
)

// Input is one projection request.
type Input struct {
	Start          time.Time
	End            time.Time
	InitialBalance float64
	// Reductions maps variable categories to a discount fraction. Missing
	// categories use 0; values outside [0,1] are applied as given.
	Reductions map[string]float64
	// SettleFirstDay subtracts the first day's own expenses (and adds its
	// income) from the seed balance. Off by default: the seed is the
	// first day's balance as-is.
	SettleFirstDay bool
}

func (in Input) validate() error {
	if in.Start.IsZero() || in.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", model.ErrInvalidInput)
	}
	if !finite(in.InitialBalance) {
		return fmt.Errorf("%w: initial balance %v", model.ErrInvalidInput, in.InitialBalance)
	}
	for name, f := range in.Reductions {
		if !finite(f) {
			return fmt.Errorf("%w: reduction factor %s=%v", model.ErrInvalidInput, name, f)
		}
	}
	return nil
}

// categoryUsage tracks how often a variable category was charged and how
// much its reduction factor saved in total.
type categoryUsage struct {
	name        string
	base        float64
	occurrences int
	reduced     float64
}

// Project runs the full projection for one input against a catalogue.
// An end date before the start date yields an empty projection, not an
// error.
func Project(cat config.Catalog, in Input) (model.Projection, error) {
	if err := cat.Validate(); err != nil {
		return model.Projection{}, err
	}
	if err := in.validate(); err != nil {
		return model.Projection{}, err
	}

	days := generateDays(in.Start, in.End)
	if len(days) == 0 {
		return model.Projection{
			Ledger:          []model.DayRecord{},
			Summary:         []model.ReductionSummary{},
			Critical:        []model.DayRecord{},
			Recommendations: []model.Recommendation{},
		}, nil
	}

	accrueIncome(days, cat.Income)
	chargeRecurring(days, cat.Recurring)
	usage := chargeVariable(days, cat.Variable, in.Reductions)
	rollBalances(days, in.InitialBalance, in.SettleFirstDay)

	for i := range days {
		days[i].IncomeLabel = incomeLabel(days[i].Credits)
		days[i].ExpenseLabel = model.JoinLabels(days[i].Charges)
	}

	critical := CriticalDays(days, cat.Threshold)
	return model.Projection{
		Ledger:          days,
		Summary:         summarize(usage),
		Critical:        critical,
		Recommendations: Recommend(critical, cat.Advice, cat.FallbackAdvice),
	}, nil
}

// generateDays returns one record per calendar date in [start, end].
func generateDays(start, end time.Time) []model.DayRecord {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return nil
	}

	n := int(end.Sub(start).Hours()/24) + 1
	days := make([]model.DayRecord, 0, n)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, model.DayRecord{
			Date:    d,
			Day:     d.Day(),
			Month:   int(d.Month()),
			Weekday: d.Weekday().String(),
		})
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekendShift is how many days a payday moves back to land on a weekday.
func weekendShift(wd time.Weekday) int {
	switch wd {
	case time.Saturday:
		return 1
	case time.Sunday:
		return 2
	default:
		return 0
	}
}

// accrueIncome credits each nominal payday, shifted off weekends, at most
// once per date. Records are contiguous, so a shift of k days is index i-k.
func accrueIncome(days []model.DayRecord, rule config.IncomeRule) {
	paid := make(map[int]struct{})
	for i := range days {
		if !slices.Contains(rule.Days, days[i].Day) {
			continue
		}
		j := i - weekendShift(days[i].Date.Weekday())
		if j < 0 {
			continue
		}
		if _, done := paid[j]; done {
			continue
		}
		days[j].Income += rule.Amount
		days[j].Credits = append(days[j].Credits, model.Entry{Category: rule.Label, Amount: rule.Amount})
		paid[j] = struct{}{}
	}
}

func chargeRecurring(days []model.DayRecord, recurring []config.RecurringExpense) {
	for i := range days {
		for _, r := range recurring {
			if slices.Contains(r.Days, days[i].Day) {
				addCharge(&days[i], r.Name, r.Amount)
			}
		}
	}
}

// chargeVariable applies every variable category with its reduction factor
// and returns per-category usage in catalogue order.
func chargeVariable(days []model.DayRecord, vars []config.VariableExpense, reductions map[string]float64) []categoryUsage {
	usage := make([]categoryUsage, len(vars))
	for k, v := range vars {
		u := &usage[k]
		u.name = v.Name
		u.base = v.Amount

		reduction := v.Amount * reductions[v.Name]
		charge := v.Amount - reduction

		if v.EveryOther {
			for i := 0; i < len(days); i += 2 {
				addCharge(&days[i], v.Name, charge)
				u.occurrences++
				u.reduced += reduction
			}
			continue
		}

		for _, wd := range v.Weekdays {
			matches := 0
			for i := range days {
				if days[i].Date.Weekday() == wd {
					addCharge(&days[i], v.Name, charge)
					matches++
				}
			}
			u.occurrences += matches
			u.reduced += reduction * float64(matches)
		}
	}
	return usage
}

func addCharge(d *model.DayRecord, category string, amount float64) {
	d.Expense += amount
	d.Charges = append(d.Charges, model.Entry{Category: category, Amount: amount})
}

// rollBalances accumulates the running balance unrounded and rounds the
// finished column once.
func rollBalances(days []model.DayRecord, initial float64, settleFirstDay bool) {
	running := initial
	if settleFirstDay {
		running = running + days[0].Income - days[0].Expense
	}
	days[0].Balance = running
	for i := 1; i < len(days); i++ {
		running = running + days[i].Income - days[i].Expense
		days[i].Balance = running
	}
	for i := range days {
		days[i].Balance = round2(days[i].Balance)
	}
}

func summarize(usage []categoryUsage) []model.ReductionSummary {
	rows := make([]model.ReductionSummary, 0, len(usage))
	for _, u := range usage {
		if u.occurrences == 0 {
			continue
		}
		rows = append(rows, model.ReductionSummary{
			Category:        u.name,
			Original:        u.base,
			AdjustedAverage: round2(u.base - u.reduced/float64(u.occurrences)),
			TotalReduced:    round2(u.reduced),
			Occurrences:     u.occurrences,
		})
	}
	return rows
}

// CriticalDays returns copies of the records whose balance is below threshold.
func CriticalDays(days []model.DayRecord, threshold float64) []model.DayRecord {
	critical := make([]model.DayRecord, 0)
	for _, d := range days {
		if d.Balance < threshold {
			d.Credits = slices.Clone(d.Credits)
			d.Charges = slices.Clone(d.Charges)
			critical = append(critical, d)
		}
	}
	return critical
}

// Recommend emits advice for each critical day: one message per matching
// rule, or the fallback when no rule matches.
func Recommend(critical []model.DayRecord, rules []config.AdviceRule, fallback string) []model.Recommendation {
	recs := make([]model.Recommendation, 0, len(critical))
	for _, d := range critical {
		matched := false
		for _, r := range rules {
			if d.HasCharge(r.Category) {
				recs = append(recs, model.Recommendation{Date: d.Date, Message: r.Message})
				matched = true
			}
		}
		if !matched {
			recs = append(recs, model.Recommendation{Date: d.Date, Message: fallback})
		}
	}
	return recs
}

func incomeLabel(credits []model.Entry) string {
	var b strings.Builder
	for _, c := range credits {
		b.WriteString(c.Category)
	}
	return b.String()
}

// round2 rounds half-to-even at the cent, on the scaled binary value.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
