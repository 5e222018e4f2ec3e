package tui

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/pipeline"
	"github.com/theirongolddev/cashflow/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues backs the setup form that writes config defaults.
type SetupValues struct {
	Balance    string
	StartDate  string
	Days       int
	Threshold  string
	Settle     bool
	Theme      string
	ExportPath string
}

var daysOptions = []int{14, 30, 42, 60, 90, 180, 365}

// NewSetupValues seeds the form from an existing config.
func NewSetupValues(cfg config.Config, cat config.Catalog) *SetupValues {
	return &SetupValues{
		Balance:    strconv.FormatFloat(cfg.General.InitialBalance, 'f', -1, 64),
		StartDate:  cfg.General.StartDate,
		Days:       cfg.General.Days,
		Threshold:  strconv.FormatFloat(cat.Threshold, 'f', -1, 64),
		Settle:     cfg.General.SettleFirstDay,
		Theme:      cfg.Appearance.Theme,
		ExportPath: cfg.Export.Path,
	}
}

// NewSetupForm builds the setup wizard.
func NewSetupForm(v *SetupValues) *huh.Form {
	days := daysOptions
	if v.Days > 0 && !slices.Contains(days, v.Days) {
		days = append(slices.Clone(days), v.Days)
		slices.Sort(days)
	}
	dayOpts := make([]huh.Option[int], len(days))
	for i, d := range days {
		dayOpts[i] = huh.NewOption(fmt.Sprintf("%d días", d), d)
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Saldo inicial").
				Value(&v.Balance).
				Validate(validAmount),
			huh.NewInput().
				Title("Fecha de inicio").
				Description("Vacío para usar la fecha de hoy").
				Placeholder("YYYY-MM-DD").
				Value(&v.StartDate).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					return validDate(s)
				}),
			huh.NewSelect[int]().
				Title("Días a proyectar").
				Options(dayOpts...).
				Value(&v.Days),
			huh.NewInput().
				Title("Umbral de saldo crítico").
				Value(&v.Threshold).
				Validate(validAmount),
			huh.NewConfirm().
				Title("¿Aplicar los movimientos del primer día al saldo inicial?").
				Value(&v.Settle),
		).Title("Proyección"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Tema").
				Options(themeOpts...).
				Value(&v.Theme),
			huh.NewInput().
				Title("Archivo de exportación").
				Value(&v.ExportPath),
		).Title("Apariencia y exportación"),
	).WithTheme(huh.ThemeBase16())
}

// Apply writes the submitted values into cfg.
func (v *SetupValues) Apply(cfg *config.Config) error {
	balance, err := pipeline.ParseAmount(v.Balance)
	if err != nil {
		return err
	}
	threshold, err := pipeline.ParseAmount(v.Threshold)
	if err != nil {
		return err
	}
	if v.StartDate != "" {
		if _, err := pipeline.ParseDate(v.StartDate); err != nil {
			return err
		}
	}

	cfg.General.InitialBalance = balance
	cfg.General.StartDate = v.StartDate
	cfg.General.Days = v.Days
	cfg.General.SettleFirstDay = v.Settle
	if threshold == config.DefaultThreshold {
		cfg.General.Threshold = nil
	} else {
		cfg.General.Threshold = &threshold
	}
	cfg.Appearance.Theme = v.Theme
	if v.ExportPath != "" {
		cfg.Export.Path = v.ExportPath
	}
	return nil
}
