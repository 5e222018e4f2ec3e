package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/model"
)

// Scenario is one what-if run: the base input with a single category's
// reduction factor replaced.
type Scenario struct {
	Category string
	Factor   float64
}

// ScenarioResult holds the outcome of one scenario.
type ScenarioResult struct {
	Scenario
	Stats model.Stats
	// FirstCritical is the earliest critical date, zero when there is none.
	FirstCritical time.Time
}

// ProgressFunc is called during a sweep to report progress.
// current is the number of scenarios finished so far, total is the total count.
type ProgressFunc func(current, total int)

// DefaultSteps are the factors offered by the simulator form: 0.0 to 1.0
// in steps of 0.1.
func DefaultSteps() []float64 {
	steps := make([]float64, 11)
	for i := range steps {
		steps[i] = float64(i) / 10
	}
	return steps
}

// Scenarios builds the grid of every variable category against every step,
// in catalogue order.
func Scenarios(cat config.Catalog, steps []float64) []Scenario {
	out := make([]Scenario, 0, len(cat.Variable)*len(steps))
	for _, v := range cat.Variable {
		for _, f := range steps {
			out = append(out, Scenario{Category: v.Name, Factor: f})
		}
	}
	return out
}

// Sweep projects every scenario against base using a bounded worker pool.
// Results keep scenario order. The base input is never modified.
func Sweep(cat config.Catalog, base Input, scenarios []Scenario, progressFn ProgressFunc) ([]ScenarioResult, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if err := base.validate(); err != nil {
		return nil, err
	}
	if len(scenarios) == 0 {
		return []ScenarioResult{}, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(scenarios) {
		numWorkers = len(scenarios)
	}

	work := make(chan int, len(scenarios))
	results := make([]ScenarioResult, len(scenarios))
	errs := make([]error, len(scenarios))
	var wg sync.WaitGroup
	var processed atomic.Int64

	// Feed work
	for i := range scenarios {
		work <- i
	}
	close(work)

	// Spawn workers
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx], errs[idx] = runScenario(cat, base, scenarios[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(scenarios))
				}
			}
		}()
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("scenario %s=%v: %w", scenarios[i].Category, scenarios[i].Factor, err)
		}
	}
	return results, nil
}

func runScenario(cat config.Catalog, base Input, sc Scenario) (ScenarioResult, error) {
	in := base
	in.Reductions = MergeReductions(base.Reductions, map[string]float64{sc.Category: sc.Factor})

	p, err := Project(cat, in)
	if err != nil {
		return ScenarioResult{}, err
	}
	res := ScenarioResult{Scenario: sc, Stats: ComputeStats(p)}
	if len(p.Critical) > 0 {
		res.FirstCritical = p.Critical[0].Date
	}
	return res, nil
}

// SafeFactor returns the smallest factor for category whose scenario has no
// critical days. ok is false when no swept factor clears them.
func SafeFactor(results []ScenarioResult, category string) (factor float64, ok bool) {
	for _, r := range results {
		if r.Category != category || r.Stats.CriticalDays > 0 {
			continue
		}
		if !ok || r.Factor < factor {
			factor, ok = r.Factor, true
		}
	}
	return factor, ok
}
