package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/export"
	"github.com/theirongolddev/cashflow/internal/model"
	"github.com/theirongolddev/cashflow/internal/pipeline"

	"github.com/sirupsen/logrus"
)

func sampleProjection(t *testing.T) model.Projection {
	t.Helper()
	start, _ := time.Parse("2006-01-02", "2025-05-20")
	end, _ := time.Parse("2006-01-02", "2025-06-30")
	p, err := pipeline.Project(config.DefaultCatalog(), pipeline.Input{
		Start:          start,
		End:            end,
		InitialBalance: 800,
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLedgerTable_HighlightsCriticalRows(t *testing.T) {
	p := sampleProjection(t)
	tbl := ledgerTable(p.Ledger, config.DefaultThreshold)

	if len(tbl.Rows) != len(p.Ledger) {
		t.Fatalf("rows = %d, want %d", len(tbl.Rows), len(p.Ledger))
	}
	if len(tbl.Highlight) != len(p.Critical) {
		t.Fatalf("highlighted = %d, want %d critical days", len(tbl.Highlight), len(p.Critical))
	}
	for i := range tbl.Highlight {
		if p.Ledger[i].Balance >= config.DefaultThreshold {
			t.Errorf("row %d highlighted with balance %.2f", i, p.Ledger[i].Balance)
		}
	}
	if got := tbl.Rows[0][0]; got != "2025-05-20" {
		t.Errorf("first date = %q, want 2025-05-20", got)
	}
}

func TestRecommendationTable_GroupsDates(t *testing.T) {
	d := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	tbl := recommendationTable([]model.Recommendation{
		{Date: d, Message: "Considera mover o reducir Waro"},
		{Date: d, Message: "Reduce gasto en Varios"},
		{Date: d.AddDate(0, 0, 1), Message: "Revisa gastos de este día"},
	})

	if tbl.Rows[0][0] != "2025-06-02" || tbl.Rows[1][0] != "" || tbl.Rows[2][0] != "2025-06-03" {
		t.Fatalf("date column = %q, %q, %q", tbl.Rows[0][0], tbl.Rows[1][0], tbl.Rows[2][0])
	}
}

func TestLogLevel(t *testing.T) {
	defer func() { flagQuiet, flagVerbose = false, false }()

	t.Setenv("CASHFLOW_LOG_LEVEL", "error")
	if got := logLevel(); got != logrus.ErrorLevel {
		t.Errorf("env level = %v, want error", got)
	}

	t.Setenv("CASHFLOW_LOG_LEVEL", "ruidoso")
	if got := logLevel(); got != logrus.InfoLevel {
		t.Errorf("bad env level = %v, want info", got)
	}

	flagQuiet = true
	if got := logLevel(); got != logrus.WarnLevel {
		t.Errorf("--quiet = %v, want warn", got)
	}

	flagVerbose = true
	if got := logLevel(); got != logrus.DebugLevel {
		t.Errorf("--verbose = %v, want debug", got)
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")

	cfg := config.DefaultConfig()
	cfg.General.StartDate = "2025-05-20"
	if err := config.SaveFile(cfgPath, cfg); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "flujo.xlsx")
	chart := filepath.Join(dir, "saldo.png")
	rootCmd.SetArgs([]string{
		"export", "--quiet",
		"--config", cfgPath,
		"--days", "10",
		"--reduce", "Coca=0.5",
		"--out", out,
		"--chart", chart,
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	p, err := export.ReadWorkbook(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Ledger) != 10 || p.Ledger[0].Date.Format("2006-01-02") != "2025-05-20" {
		t.Fatalf("exported %d days starting %s", len(p.Ledger), p.Ledger[0].Date)
	}
	if len(p.Summary) == 0 || p.Summary[0].Category != "Coca" {
		t.Fatalf("summary = %+v", p.Summary)
	}
	if info, err := os.Stat(chart); err != nil || info.Size() == 0 {
		t.Fatalf("chart not written: %v", err)
	}
}

func TestSweepTable(t *testing.T) {
	results := []pipeline.ScenarioResult{
		{Scenario: pipeline.Scenario{Category: "Waro", Factor: 0}, Stats: model.Stats{CriticalDays: 2}},
		{Scenario: pipeline.Scenario{Category: "Waro", Factor: 0.5}, Stats: model.Stats{CriticalDays: 0}},
		{Scenario: pipeline.Scenario{Category: "Coca", Factor: 0}, Stats: model.Stats{CriticalDays: 2}},
		{Scenario: pipeline.Scenario{Category: "Coca", Factor: 0.5}, Stats: model.Stats{CriticalDays: 1}},
	}
	tbl := sweepTable(results, []string{"Coca", "Waro"}, []float64{0, 0.5})

	want := []string{"Categoría", "0.0", "0.5", "Mínimo"}
	for i, h := range want {
		if tbl.Headers[i] != h {
			t.Fatalf("headers = %v, want %v", tbl.Headers, want)
		}
	}
	if got := tbl.Rows[0]; got[0] != "Coca" || got[2] != "1" || got[3] != "-" {
		t.Fatalf("Coca row = %v", got)
	}
	if got := tbl.Rows[1]; got[1] != "2" || got[3] != "50%" {
		t.Fatalf("Waro row = %v", got)
	}
}
