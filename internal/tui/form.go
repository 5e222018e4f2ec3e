package tui

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/pipeline"

	"github.com/charmbracelet/huh"
)

// formValues backs the simulation form. It lives behind a pointer so the
// form's field bindings survive App being copied by value.
type formValues struct {
	start   string
	end     string
	balance string
	names   []string
	factors []float64
}

func newFormValues(in pipeline.Input, cat config.Catalog) *formValues {
	v := &formValues{
		start:   in.Start.Format(pipeline.DateLayout),
		end:     in.End.Format(pipeline.DateLayout),
		balance: strconv.FormatFloat(in.InitialBalance, 'f', -1, 64),
		names:   cat.VariableNames(),
	}
	v.factors = make([]float64, len(v.names))
	for i, name := range v.names {
		v.factors[i] = in.Reductions[name]
	}
	return v
}

// onGrid reports whether f is one of the 0.0..1.0 steps the form offers.
func onGrid(f float64) bool {
	return f >= 0 && f <= 1 && math.Round(f*10)/10 == f
}

// factorOptions lists the 0.1 steps. A current value off that grid gets its
// own option so submitting the form unchanged keeps it exactly.
func factorOptions(current float64) []huh.Option[float64] {
	opts := make([]huh.Option[float64], 0, 12)
	for i := 0; i <= 10; i++ {
		f := float64(i) / 10
		opts = append(opts, huh.NewOption(fmt.Sprintf("%.1f", f), f))
	}
	if onGrid(current) {
		return opts
	}
	opts = append(opts, huh.NewOption(strconv.FormatFloat(current, 'f', -1, 64), current))
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Value < opts[j].Value })
	return opts
}

func validDate(s string) error {
	_, err := pipeline.ParseDate(s)
	return err
}

func validAmount(s string) error {
	_, err := pipeline.ParseAmount(s)
	return err
}

// newSimulationForm builds the input form: dates and balance, then one
// reduction selector per variable category.
func newSimulationForm(v *formValues) *huh.Form {
	selects := make([]huh.Field, len(v.names))
	for i, name := range v.names {
		selects[i] = huh.NewSelect[float64]().
			Title(name).
			Options(factorOptions(v.factors[i])...).
			Inline(true).
			Value(&v.factors[i])
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Fecha de inicio").
				Placeholder("YYYY-MM-DD").
				Value(&v.start).
				Validate(validDate),
			huh.NewInput().
				Title("Fecha de fin").
				Placeholder("YYYY-MM-DD").
				Value(&v.end).
				Validate(validDate),
			huh.NewInput().
				Title("Saldo inicial").
				Value(&v.balance).
				Validate(validAmount),
		).Title("Simulación"),
		huh.NewGroup(selects...).
			Title("Reducción de gastos variables").
			Description("Fracción del gasto base que se elimina"),
	).WithTheme(huh.ThemeBase16()).WithShowHelp(true)
}

// input converts the submitted form into a projection request. settle
// carries over from the command line since the form does not ask for it.
func (v *formValues) input(settle bool) (pipeline.Input, error) {
	start, err := pipeline.ParseDate(v.start)
	if err != nil {
		return pipeline.Input{}, err
	}
	end, err := pipeline.ParseDate(v.end)
	if err != nil {
		return pipeline.Input{}, err
	}
	balance, err := pipeline.ParseAmount(v.balance)
	if err != nil {
		return pipeline.Input{}, err
	}

	reductions := make(map[string]float64, len(v.names))
	for i, name := range v.names {
		if v.factors[i] != 0 {
			reductions[name] = v.factors[i]
		}
	}
	return pipeline.Input{
		Start:          start,
		End:            end,
		InitialBalance: balance,
		Reductions:     reductions,
		SettleFirstDay: settle,
	}, nil
}
