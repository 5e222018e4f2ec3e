// Package config loads cashflow settings and the expense catalogue.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all cashflow configuration.
type Config struct {
	General    GeneralConfig      `toml:"general"`
	Reductions map[string]float64 `toml:"reductions,omitempty"`
	Appearance AppearanceConfig   `toml:"appearance"`
	Export     ExportConfig       `toml:"export"`
	Overrides  CatalogOverrides   `toml:"catalog,omitempty"`
}

// GeneralConfig holds projection defaults.
type GeneralConfig struct {
	InitialBalance float64  `toml:"initial_balance"`
	StartDate      string   `toml:"start_date,omitempty"`
	Days           int      `toml:"days"`
	Threshold      *float64 `toml:"threshold,omitempty"`
	SettleFirstDay bool     `toml:"settle_first_day"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// ExportConfig holds default output paths.
type ExportConfig struct {
	Path  string `toml:"path"`
	Chart string `toml:"chart,omitempty"`
}

// CatalogOverrides replaces parts of the built-in catalogue.
// Each non-empty list replaces the matching default list wholesale.
type CatalogOverrides struct {
	Income         *IncomeOverride     `toml:"income,omitempty"`
	Recurring      []RecurringOverride `toml:"recurring,omitempty"`
	Variable       []VariableOverride  `toml:"variable,omitempty"`
	Advice         []AdviceOverride    `toml:"advice,omitempty"`
	FallbackAdvice string              `toml:"fallback_advice,omitempty"`
}

// IncomeOverride is the TOML form of IncomeRule.
type IncomeOverride struct {
	Label  string  `toml:"label"`
	Amount float64 `toml:"amount"`
	Days   []int   `toml:"days"`
}

// RecurringOverride is the TOML form of RecurringExpense.
type RecurringOverride struct {
	Name   string  `toml:"name"`
	Amount float64 `toml:"amount"`
	Days   []int   `toml:"days"`
}

// VariableOverride is the TOML form of VariableExpense.
type VariableOverride struct {
	Name       string   `toml:"name"`
	Amount     float64  `toml:"amount"`
	EveryOther bool     `toml:"every_other,omitempty"`
	Weekdays   []string `toml:"weekdays,omitempty"`
}

// AdviceOverride is the TOML form of AdviceRule.
type AdviceOverride struct {
	Category string `toml:"category"`
	Message  string `toml:"message"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			InitialBalance: 800,
			Days:           42,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Export: ExportConfig{
			Path: "cashflow_exportado.xlsx",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cashflow")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cashflow")
}

// Path returns the full path to the config file. CASHFLOW_CONFIG wins over
// the XDG location.
func Path() string {
	if p := os.Getenv("CASHFLOW_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile reads the config at path, returning defaults if it doesn't exist.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-chosen config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveFile(Path(), cfg)
}

// SaveFile writes the config to path, creating parent directories.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user-chosen config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// StartDate returns the configured start date, or today when unset.
func (c Config) StartDate(today time.Time) (time.Time, error) {
	if c.General.StartDate == "" {
		return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", c.General.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("general.start_date: %w", err)
	}
	return t, nil
}

// Catalog builds the effective catalogue: defaults with any overrides
// applied, then validated.
func (c Config) Catalog() (Catalog, error) {
	cat := DefaultCatalog()
	o := c.Overrides

	if o.Income != nil {
		cat.Income = IncomeRule{Label: o.Income.Label, Amount: o.Income.Amount, Days: o.Income.Days}
	}
	if len(o.Recurring) > 0 {
		cat.Recurring = make([]RecurringExpense, len(o.Recurring))
		for i, r := range o.Recurring {
			cat.Recurring[i] = RecurringExpense{Name: r.Name, Amount: r.Amount, Days: r.Days}
		}
	}
	if len(o.Variable) > 0 {
		cat.Variable = make([]VariableExpense, len(o.Variable))
		for i, v := range o.Variable {
			ve := VariableExpense{Name: v.Name, Amount: v.Amount, EveryOther: v.EveryOther}
			for _, name := range v.Weekdays {
				wd, err := ParseWeekday(name)
				if err != nil {
					return Catalog{}, fmt.Errorf("catalog.variable %q: %w", v.Name, err)
				}
				ve.Weekdays = append(ve.Weekdays, wd)
			}
			cat.Variable[i] = ve
		}
	}
	if len(o.Advice) > 0 {
		cat.Advice = make([]AdviceRule, len(o.Advice))
		for i, a := range o.Advice {
			cat.Advice[i] = AdviceRule{Category: a.Category, Message: a.Message}
		}
	}
	if o.FallbackAdvice != "" {
		cat.FallbackAdvice = o.FallbackAdvice
	}
	if c.General.Threshold != nil {
		cat.Threshold = *c.General.Threshold
	}

	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}
