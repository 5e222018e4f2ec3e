package pipeline

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/model"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func mustProject(t *testing.T, start, end string, balance float64, reductions map[string]float64) model.Projection {
	t.Helper()
	p, err := Project(config.DefaultCatalog(), Input{
		Start:          mustDate(t, start),
		End:            mustDate(t, end),
		InitialBalance: balance,
		Reductions:     reductions,
	})
	if err != nil {
		t.Fatalf("Project(%s..%s): %v", start, end, err)
	}
	return p
}

func TestProject_LedgerIsContiguous(t *testing.T) {
	p := mustProject(t, "2025-05-20", "2025-06-30", 800, nil)

	if len(p.Ledger) != 42 {
		t.Fatalf("ledger len = %d, want 42", len(p.Ledger))
	}
	start := mustDate(t, "2025-05-20")
	for i, d := range p.Ledger {
		want := start.AddDate(0, 0, i)
		if !d.Date.Equal(want) {
			t.Fatalf("ledger[%d].Date = %s, want %s", i, d.Date.Format("2006-01-02"), want.Format("2006-01-02"))
		}
		if d.Day != want.Day() || d.Month != int(want.Month()) {
			t.Fatalf("ledger[%d] day/month = %d/%d, want %d/%d", i, d.Day, d.Month, want.Day(), want.Month())
		}
		if d.Weekday != want.Weekday().String() {
			t.Fatalf("ledger[%d].Weekday = %q, want %q", i, d.Weekday, want.Weekday())
		}
	}
}

func TestProject_SingleDay(t *testing.T) {
	// 2025-05-20 is a Tuesday: Coca (index 0) and Comida are charged.
	p := mustProject(t, "2025-05-20", "2025-05-20", 800, nil)

	if len(p.Ledger) != 1 {
		t.Fatalf("ledger len = %d, want 1", len(p.Ledger))
	}
	d := p.Ledger[0]
	if d.Balance != 800.00 {
		t.Fatalf("Balance = %.2f, want 800.00 (seed is not settled)", d.Balance)
	}
	if d.Expense != 100 {
		t.Fatalf("Expense = %.2f, want 100", d.Expense)
	}
	if d.ExpenseLabel != "Coca, Comida, " {
		t.Fatalf("ExpenseLabel = %q, want %q", d.ExpenseLabel, "Coca, Comida, ")
	}
}

func TestProject_SettleFirstDay(t *testing.T) {
	p, err := Project(config.DefaultCatalog(), Input{
		Start:          mustDate(t, "2025-05-20"),
		End:            mustDate(t, "2025-05-21"),
		InitialBalance: 800,
		SettleFirstDay: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Ledger[0].Balance != 700 {
		t.Fatalf("day 0 Balance = %.2f, want 700", p.Ledger[0].Balance)
	}
	// 2025-05-21 is a Wednesday at index 1: nothing is charged.
	if p.Ledger[1].Balance != 700 {
		t.Fatalf("day 1 Balance = %.2f, want 700", p.Ledger[1].Balance)
	}
}

func TestProject_MayPaydayDedup(t *testing.T) {
	// 2025-05-30 is a Friday, 2025-05-31 a Saturday that shifts onto the 30th.
	p := mustProject(t, "2025-05-30", "2025-05-31", 1000, nil)

	fri, sat := p.Ledger[0], p.Ledger[1]
	if fri.Income != 4280 {
		t.Fatalf("May 30 Income = %.2f, want 4280 (credited once)", fri.Income)
	}
	if fri.IncomeLabel != "Ingreso quincena" {
		t.Fatalf("May 30 IncomeLabel = %q", fri.IncomeLabel)
	}
	if sat.Income != 0 {
		t.Fatalf("May 31 Income = %.2f, want 0", sat.Income)
	}

	wantLabel := "Tarjeta, Préstamo efectivo, Universidad, Coca, Comida fuera, "
	if fri.ExpenseLabel != wantLabel {
		t.Fatalf("May 30 ExpenseLabel = %q, want %q", fri.ExpenseLabel, wantLabel)
	}
	if fri.Expense != 2750 {
		t.Fatalf("May 30 Expense = %.2f, want 2750", fri.Expense)
	}
	if sat.ExpenseLabel != "Waro, " || sat.Expense != 250 {
		t.Fatalf("May 31 = %q %.2f, want \"Waro, \" 250", sat.ExpenseLabel, sat.Expense)
	}

	if fri.Balance != 1000 {
		t.Fatalf("May 30 Balance = %.2f, want 1000", fri.Balance)
	}
	if sat.Balance != 750 {
		t.Fatalf("May 31 Balance = %.2f, want 750", sat.Balance)
	}
}

func TestProject_SundayPaydayShiftsToFriday(t *testing.T) {
	// 2025-06-15 is a Sunday: the credit lands on Friday the 13th.
	p := mustProject(t, "2025-06-01", "2025-06-30", 0, nil)

	for _, d := range p.Ledger {
		var want float64
		switch d.Day {
		case 13, 30:
			want = 4280
		}
		if d.Income != want {
			t.Fatalf("June %d Income = %.2f, want %.2f", d.Day, d.Income, want)
		}
	}
}

func TestProject_ShiftedPaydayOutOfRange(t *testing.T) {
	// Range starts Saturday 2025-06-14; Sunday the 15th shifts to the 13th.
	p := mustProject(t, "2025-06-14", "2025-06-20", 0, nil)
	for _, d := range p.Ledger {
		if d.Income != 0 {
			t.Fatalf("June %d Income = %.2f, want 0", d.Day, d.Income)
		}
	}
}

func TestProject_CocaEveryOtherRecord(t *testing.T) {
	for _, n := range []int{1, 2, 7, 42} {
		start := mustDate(t, "2025-01-01")
		p, err := Project(config.DefaultCatalog(), Input{
			Start:          start,
			End:            start.AddDate(0, 0, n-1),
			InitialBalance: 0,
		})
		if err != nil {
			t.Fatal(err)
		}

		count := 0
		for i, d := range p.Ledger {
			has := d.HasCharge("Coca")
			if has != (i%2 == 0) {
				t.Fatalf("n=%d: ledger[%d] Coca charged = %v", n, i, has)
			}
			if has {
				count++
			}
		}
		want := int(math.Ceil(float64(n) / 2))
		if count != want {
			t.Fatalf("n=%d: Coca charges = %d, want %d", n, count, want)
		}
	}
}

func TestProject_ReductionFactors(t *testing.T) {
	cat := config.DefaultCatalog()
	full := map[string]float64{}
	for _, name := range cat.VariableNames() {
		full[name] = 1
	}

	zero := mustProject(t, "2025-06-01", "2025-06-14", 0, nil)
	gone := mustProject(t, "2025-06-01", "2025-06-14", 0, full)

	for i := range zero.Ledger {
		for _, c := range zero.Ledger[i].Charges {
			v, ok := cat.LookupVariable(c.Category)
			if ok && c.Amount != v.Amount {
				t.Fatalf("factor 0: %s charged %.2f, want %.2f", c.Category, c.Amount, v.Amount)
			}
		}
		for _, c := range gone.Ledger[i].Charges {
			if _, ok := cat.LookupVariable(c.Category); ok && c.Amount != 0 {
				t.Fatalf("factor 1: %s charged %.2f, want 0", c.Category, c.Amount)
			}
		}
	}
}

func TestProject_FactorsAreNotClamped(t *testing.T) {
	// Saturday 2025-06-07 at index 0.
	p := mustProject(t, "2025-06-07", "2025-06-08", 0, map[string]float64{"Waro": 1.5})
	for _, c := range p.Ledger[1].Charges {
		if c.Category == "Waro" && c.Amount != -125 {
			t.Fatalf("Waro charge = %.2f, want -125", c.Amount)
		}
	}
}

func TestProject_Summary(t *testing.T) {
	// 2025-06-01 (Sun) .. 2025-06-07 (Sat): one of each weekday, Coca x4.
	p := mustProject(t, "2025-06-01", "2025-06-07", 0, map[string]float64{
		"Coca": 0.5,
		"Waro": 0.2,
	})

	byName := map[string]model.ReductionSummary{}
	var order []string
	for _, r := range p.Summary {
		byName[r.Category] = r
		order = append(order, r.Category)
	}

	wantOrder := "Coca,Salida,Comida fuera,Comida,Varios,Waro"
	if got := strings.Join(order, ","); got != wantOrder {
		t.Fatalf("summary order = %s, want %s", got, wantOrder)
	}

	coca := byName["Coca"]
	if coca.Occurrences != 4 || coca.AdjustedAverage != 25 || coca.TotalReduced != 100 {
		t.Fatalf("Coca = %+v, want 4 occurrences, avg 25, reduced 100", coca)
	}
	waro := byName["Waro"]
	if waro.Occurrences != 2 || waro.AdjustedAverage != 200 || waro.TotalReduced != 100 {
		t.Fatalf("Waro = %+v, want 2 occurrences, avg 200, reduced 100", waro)
	}
	if salida := byName["Salida"]; salida.AdjustedAverage != 130 || salida.TotalReduced != 0 {
		t.Fatalf("Salida = %+v, want unreduced", salida)
	}
}

func TestProject_SummarySkipsUnusedCategories(t *testing.T) {
	// Wednesday only: Coca is the sole variable charge.
	p := mustProject(t, "2025-06-04", "2025-06-04", 0, nil)
	if len(p.Summary) != 1 || p.Summary[0].Category != "Coca" {
		t.Fatalf("summary = %+v, want only Coca", p.Summary)
	}
}

func TestProject_BalanceInvariant(t *testing.T) {
	p := mustProject(t, "2025-01-01", "2025-12-31", 1234.56, map[string]float64{
		"Coca": 0.3, "Salida": 0.7, "Comida fuera": 0.1, "Varios": 0.9,
	})
	for i := 1; i < len(p.Ledger); i++ {
		prev, cur := p.Ledger[i-1], p.Ledger[i]
		want := prev.Balance + cur.Income - cur.Expense
		if math.Abs(cur.Balance-want) > 0.005+1e-9 {
			t.Fatalf("ledger[%d].Balance = %.4f, want ~%.4f", i, cur.Balance, want)
		}
		if cur.Balance != round2(cur.Balance) {
			t.Fatalf("ledger[%d].Balance = %v is not rounded to cents", i, cur.Balance)
		}
	}
}

func TestProject_CriticalDaysAndAdvice(t *testing.T) {
	// Sun 2025-06-01: Gasolina, Coca, Salida, Waro; Mon: Varios; Tue: Coca, Comida.
	p := mustProject(t, "2025-06-01", "2025-06-03", 100, nil)

	if len(p.Critical) != 3 {
		t.Fatalf("critical days = %d, want 3", len(p.Critical))
	}
	wantBalances := []float64{100, 0, -100}
	for i, d := range p.Critical {
		if d.Balance != wantBalances[i] {
			t.Fatalf("critical[%d].Balance = %.2f, want %.2f", i, d.Balance, wantBalances[i])
		}
	}

	want := []string{
		"Considera mover o reducir Waro",
		"Reduce gasto en Varios",
		"Revisa gastos de este día",
	}
	if len(p.Recommendations) != len(want) {
		t.Fatalf("recommendations = %+v", p.Recommendations)
	}
	for i, r := range p.Recommendations {
		if r.Message != want[i] {
			t.Fatalf("recommendation[%d] = %q, want %q", i, r.Message, want[i])
		}
		if !r.Date.Equal(p.Critical[i].Date) {
			t.Fatalf("recommendation[%d] date = %s", i, r.Date)
		}
	}
}

func TestProject_CriticalFridayAdvice(t *testing.T) {
	// Fri 2025-06-06: Disney, Coca, Comida fuera.
	p := mustProject(t, "2025-06-06", "2025-06-06", 100, nil)

	if len(p.Critical) != 1 {
		t.Fatalf("critical days = %d, want 1", len(p.Critical))
	}
	if !p.Critical[0].HasCharge("Comida fuera") {
		t.Fatalf("charges = %+v, want Comida fuera", p.Critical[0].Charges)
	}
	if len(p.Recommendations) != 1 || p.Recommendations[0].Message != "Evita comer fuera este día" {
		t.Fatalf("recommendations = %+v", p.Recommendations)
	}
}

func TestProject_AdviceRulesAreIndependent(t *testing.T) {
	cat := config.DefaultCatalog()
	cat.Recurring = nil
	cat.Variable = []config.VariableExpense{
		{Name: "Varios", Amount: 100, Weekdays: []time.Weekday{time.Monday}},
		{Name: "Waro", Amount: 250, Weekdays: []time.Weekday{time.Monday}},
	}
	// Mon 2025-06-02 carries Varios and Waro; Tue has no charges.
	p, err := Project(cat, Input{
		Start:          mustDate(t, "2025-06-02"),
		End:            mustDate(t, "2025-06-03"),
		InitialBalance: 100,
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		date, msg string
	}{
		{"2025-06-02", "Considera mover o reducir Waro"},
		{"2025-06-02", "Reduce gasto en Varios"},
		{"2025-06-03", "Revisa gastos de este día"},
	}
	if len(p.Recommendations) != len(want) {
		t.Fatalf("recommendations = %+v", p.Recommendations)
	}
	for i, w := range want {
		r := p.Recommendations[i]
		if r.Date.Format(DateLayout) != w.date || r.Message != w.msg {
			t.Fatalf("recommendation[%d] = %s %q, want %s %q", i, r.Date.Format(DateLayout), r.Message, w.date, w.msg)
		}
	}
}

func TestProject_CriticalSetIsExact(t *testing.T) {
	p := mustProject(t, "2025-05-20", "2025-08-31", 800, nil)

	var want []time.Time
	for _, d := range p.Ledger {
		if d.Balance < config.DefaultThreshold {
			want = append(want, d.Date)
		}
	}
	if len(want) != len(p.Critical) {
		t.Fatalf("critical = %d, want %d", len(p.Critical), len(want))
	}
	for i := range want {
		if !p.Critical[i].Date.Equal(want[i]) {
			t.Fatalf("critical[%d] = %s, want %s", i, p.Critical[i].Date, want[i])
		}
	}

	perDay := map[time.Time]int{}
	for _, r := range p.Recommendations {
		perDay[r.Date]++
	}
	for _, d := range p.Critical {
		if n := perDay[d.Date]; n < 1 || n > 3 {
			t.Fatalf("%s has %d recommendations, want 1-3", d.Date.Format("2006-01-02"), n)
		}
	}
}

func TestProject_EndBeforeStart(t *testing.T) {
	p := mustProject(t, "2025-06-10", "2025-06-01", 800, nil)
	if !p.Empty() || len(p.Summary) != 0 || len(p.Critical) != 0 || len(p.Recommendations) != 0 {
		t.Fatalf("projection = %+v, want all tables empty", p)
	}
}

func TestProject_InvalidInput(t *testing.T) {
	cat := config.DefaultCatalog()
	start := mustDate(t, "2025-06-01")

	cases := map[string]Input{
		"nan balance":  {Start: start, End: start, InitialBalance: math.NaN()},
		"inf factor":   {Start: start, End: start, Reductions: map[string]float64{"Coca": math.Inf(1)}},
		"missing date": {Start: start},
	}
	for name, in := range cases {
		if _, err := Project(cat, in); !errors.Is(err, model.ErrInvalidInput) {
			t.Fatalf("%s: err = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestProject_AlternateCatalog(t *testing.T) {
	cat := config.Catalog{
		Income:    config.IncomeRule{Label: "Pay", Amount: 100, Days: []int{1}},
		Recurring: []config.RecurringExpense{{Name: "Rent", Amount: 40, Days: []int{2}}},
		Variable: []config.VariableExpense{
			{Name: "Snacks", Amount: 10, Weekdays: []time.Weekday{time.Wednesday}},
		},
		Threshold:      50,
		Advice:         []config.AdviceRule{{Category: "Rent", Message: "rent day"}},
		FallbackAdvice: "check",
	}
	// 2025-10-01 is a Wednesday.
	p, err := Project(cat, Input{
		Start:          mustDate(t, "2025-10-01"),
		End:            mustDate(t, "2025-10-02"),
		InitialBalance: 80,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Ledger[0].Income != 100 || p.Ledger[0].Expense != 10 {
		t.Fatalf("day 0 = %+v", p.Ledger[0])
	}
	if p.Ledger[1].Balance != 40 {
		t.Fatalf("day 1 Balance = %.2f, want 40", p.Ledger[1].Balance)
	}
	if len(p.Recommendations) != 1 || p.Recommendations[0].Message != "rent day" {
		t.Fatalf("recommendations = %+v", p.Recommendations)
	}
}

func TestProject_DoesNotShareState(t *testing.T) {
	a := mustProject(t, "2025-06-01", "2025-06-03", 100, nil)
	b := mustProject(t, "2025-06-01", "2025-06-03", 100, nil)

	a.Ledger[0].Charges[0].Amount = -1
	a.Critical[0].Charges[0].Category = "x"
	if b.Ledger[0].Charges[0].Amount == -1 {
		t.Fatal("second projection shares ledger state with the first")
	}
	if a.Ledger[0].Charges[0].Category == "x" {
		t.Fatal("critical days share charge slices with the ledger")
	}
}
