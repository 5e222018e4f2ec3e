package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/model"
)

// DateLayout is the only accepted date format for user input.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: expected YYYY-MM-DD", model.ErrInvalidInput, s)
	}
	return t, nil
}

// ParseAmount parses a currency amount such as "800" or "-12.50".
func ParseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a number", model.ErrInvalidInput, s)
	}
	return d.InexactFloat64(), nil
}

// ParseFactor parses a reduction factor. Values outside [0,1] are accepted.
func ParseFactor(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: reduction factor %q is not a number", model.ErrInvalidInput, s)
	}
	return d.InexactFloat64(), nil
}

// ParseReductions parses "Category=factor" pairs. Later pairs override
// earlier ones.
func ParseReductions(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: reduction %q: expected Category=factor", model.ErrInvalidInput, pair)
		}
		f, err := ParseFactor(value)
		if err != nil {
			return nil, err
		}
		out[name] = f
	}
	return out, nil
}

// MergeReductions layers overrides on top of base into a new map.
func MergeReductions(base, overrides map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// UnknownCategories lists reduction keys that match no variable category.
// They are ignored by the projector.
func UnknownCategories(cat config.Catalog, reductions map[string]float64) []string {
	var unknown []string
	for name := range reductions {
		if _, ok := cat.LookupVariable(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// Overrides are per-run values layered over the config. Empty fields fall
// back to the config.
type Overrides struct {
	Start   string
	End     string
	Days    int
	Balance string
	Reduce  []string
	Settle  *bool
}

// ResolveInput merges overrides over cfg into a projection request. The
// start date defaults to the configured one, else today.
func ResolveInput(cfg config.Config, today time.Time, o Overrides) (Input, error) {
	var in Input
	var err error

	if o.Start != "" {
		in.Start, err = ParseDate(o.Start)
	} else {
		in.Start, err = cfg.StartDate(today)
	}
	if err != nil {
		return in, err
	}

	if o.End != "" {
		if in.End, err = ParseDate(o.End); err != nil {
			return in, err
		}
	} else {
		days := o.Days
		if days == 0 {
			days = cfg.General.Days
		}
		if days <= 0 {
			return in, fmt.Errorf("%w: days must be positive, got %d", model.ErrInvalidInput, days)
		}
		in.End = in.Start.AddDate(0, 0, days-1)
	}

	in.InitialBalance = cfg.General.InitialBalance
	if o.Balance != "" {
		if in.InitialBalance, err = ParseAmount(o.Balance); err != nil {
			return in, err
		}
	}

	overrides, err := ParseReductions(o.Reduce)
	if err != nil {
		return in, err
	}
	in.Reductions = MergeReductions(cfg.Reductions, overrides)

	in.SettleFirstDay = cfg.General.SettleFirstDay
	if o.Settle != nil {
		in.SettleFirstDay = *o.Settle
	}
	return in, nil
}
