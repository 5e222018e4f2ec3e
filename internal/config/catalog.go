package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/theirongolddev/cashflow/internal/model"
)

// IncomeRule credits a fixed amount on nominal paydays, shifted back off
// weekends.
type IncomeRule struct {
	Label  string
	Amount float64
	Days   []int
}

// RecurringExpense is a fixed charge on given days of the month.
type RecurringExpense struct {
	Name   string
	Amount float64
	Days   []int
}

// VariableExpense is a discretionary category scaled by a reduction factor.
// EveryOther charges ledger positions 0, 2, 4, ... regardless of the date;
// otherwise the category triggers on each listed weekday.
type VariableExpense struct {
	Name       string
	Amount     float64
	EveryOther bool
	Weekdays   []time.Weekday
}

// AdviceRule emits Message for a critical day charged with Category.
type AdviceRule struct {
	Category string
	Message  string
}

// Catalog is the full set of rules the projector runs against.
type Catalog struct {
	Income         IncomeRule
	Recurring      []RecurringExpense
	Variable       []VariableExpense
	Threshold      float64
	Advice         []AdviceRule
	FallbackAdvice string
}

// DefaultThreshold is the balance below which a day is critical.
const DefaultThreshold = 500.0

// DefaultCatalog returns a fresh copy of the built-in catalogue.
func DefaultCatalog() Catalog {
	return Catalog{
		Income: IncomeRule{Label: "Ingreso quincena", Amount: 4280.00, Days: []int{15, 30, 31}},
		Recurring: []RecurringExpense{
			{"Internet", 150, []int{4}},
			{"Disney", 160, []int{6}},
			{"ChatGPT", 160, []int{8}},
			{"Crunchyroll", 40, []int{10}},
			{"Xbox", 66, []int{12}},
			{"Préstamo banco", 650, []int{15}},
			{"Teléfono", 1050, []int{15}},
			{"Tarjeta", 700, []int{15, 30}},
			{"Overleaf", 160, []int{26}},
			{"Préstamo efectivo", 600, []int{30}},
			{"Universidad", 1300, []int{30}},
			{"Gasolina", 350, []int{1}},
			{"Vape", 210, []int{15}},
		},
		Variable: []VariableExpense{
			{Name: "Coca", Amount: 50, EveryOther: true},
			{Name: "Salida", Amount: 130, Weekdays: []time.Weekday{time.Sunday}},
			{Name: "Comida fuera", Amount: 100, Weekdays: []time.Weekday{time.Friday}},
			{Name: "Comida", Amount: 50, Weekdays: []time.Weekday{time.Tuesday}},
			{Name: "Varios", Amount: 100, Weekdays: []time.Weekday{time.Monday}},
			{Name: "Waro", Amount: 250, Weekdays: []time.Weekday{time.Saturday, time.Sunday}},
		},
		Threshold: DefaultThreshold,
		Advice: []AdviceRule{
			{"Waro", "Considera mover o reducir Waro"},
			{"Varios", "Reduce gasto en Varios"},
			{"Comida fuera", "Evita comer fuera este día"},
		},
		FallbackAdvice: "Revisa gastos de este día",
	}
}

// VariableNames returns the variable categories in catalogue order.
func (c Catalog) VariableNames() []string {
	names := make([]string, len(c.Variable))
	for i, v := range c.Variable {
		names[i] = v.Name
	}
	return names
}

// LookupVariable returns the variable category with the given name.
func (c Catalog) LookupVariable(name string) (VariableExpense, bool) {
	for _, v := range c.Variable {
		if v.Name == name {
			return v, true
		}
	}
	return VariableExpense{}, false
}

// Validate checks the catalogue for values the projector cannot use.
func (c Catalog) Validate() error {
	if !finite(c.Income.Amount) {
		return fmt.Errorf("%w: income amount %v", model.ErrInvalidInput, c.Income.Amount)
	}
	if err := checkDays(c.Income.Label, c.Income.Days); err != nil {
		return err
	}
	for _, r := range c.Recurring {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("%w: recurring expense without a name", model.ErrInvalidInput)
		}
		if !finite(r.Amount) {
			return fmt.Errorf("%w: %s amount %v", model.ErrInvalidInput, r.Name, r.Amount)
		}
		if err := checkDays(r.Name, r.Days); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(c.Variable))
	for _, v := range c.Variable {
		if strings.TrimSpace(v.Name) == "" {
			return fmt.Errorf("%w: variable expense without a name", model.ErrInvalidInput)
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("%w: duplicate variable category %q", model.ErrInvalidInput, v.Name)
		}
		seen[v.Name] = struct{}{}
		if !finite(v.Amount) {
			return fmt.Errorf("%w: %s amount %v", model.ErrInvalidInput, v.Name, v.Amount)
		}
		if !v.EveryOther && len(v.Weekdays) == 0 {
			return fmt.Errorf("%w: %s has no trigger", model.ErrInvalidInput, v.Name)
		}
	}

	if !finite(c.Threshold) {
		return fmt.Errorf("%w: threshold %v", model.ErrInvalidInput, c.Threshold)
	}
	for _, a := range c.Advice {
		if a.Category == "" || a.Message == "" {
			return fmt.Errorf("%w: advice rule needs category and message", model.ErrInvalidInput)
		}
	}
	return nil
}

func checkDays(name string, days []int) error {
	for _, d := range days {
		if d < 1 || d > 31 {
			return fmt.Errorf("%w: %s day %d out of 1-31", model.ErrInvalidInput, name, d)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps an English weekday name (any case) to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", model.ErrInvalidInput, name)
	}
	return wd, nil
}
