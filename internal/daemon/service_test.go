package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/export"
	"github.com/theirongolddev/cashflow/internal/model"
	"github.com/theirongolddev/cashflow/internal/pipeline"

	"github.com/sirupsen/logrus"
)

var testNow = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTestService returns a service whose config is whatever *cfg holds at
// poll time.
func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	return New(Config{
		Load:   func() (config.Config, error) { return *cfg, nil },
		Logger: quietLogger(),
		Now:    func() time.Time { return testNow },
	})
}

func get(t *testing.T, s *Service, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		Days:           42,
		ClosingBalance: 1200.5,
		MinBalance:     300,
		TotalReduced:   10,
		CriticalDays:   4,
	}
	curr := Snapshot{
		Days:           42,
		ClosingBalance: 1500.75,
		MinBalance:     450,
		TotalReduced:   60,
		CriticalDays:   1,
	}

	delta := diffSnapshots(prev, curr)
	if delta.Days != 0 {
		t.Fatalf("Days delta = %d, want 0", delta.Days)
	}
	if math.Abs(delta.ClosingBalance-300.25) > 1e-9 {
		t.Fatalf("ClosingBalance delta = %.2f, want 300.25", delta.ClosingBalance)
	}
	if delta.MinBalance != 150 {
		t.Fatalf("MinBalance delta = %.2f, want 150", delta.MinBalance)
	}
	if delta.TotalReduced != 50 {
		t.Fatalf("TotalReduced delta = %.2f, want 50", delta.TotalReduced)
	}
	if delta.CriticalDays != -3 {
		t.Fatalf("CriticalDays delta = %d, want -3", delta.CriticalDays)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("self delta is not zero")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{
		EventsBuffer: 2,
		Logger:       quietLogger(),
	})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPollOnce_EventsOnlyOnChange(t *testing.T) {
	cfg := config.DefaultConfig()
	s := newTestService(t, &cfg)

	s.pollOnce()
	st := s.snapshotStatus()
	if st.PollCount != 1 || st.EventCount != 1 {
		t.Fatalf("after first poll: polls=%d events=%d, want 1/1", st.PollCount, st.EventCount)
	}
	if st.Summary.Start != "2025-05-20" || st.Summary.End != "2025-06-30" || st.Summary.Days != 42 {
		t.Fatalf("window = %s..%s (%d days), want 2025-05-20..2025-06-30 (42)",
			st.Summary.Start, st.Summary.End, st.Summary.Days)
	}
	if st.Threshold != config.DefaultThreshold {
		t.Fatalf("Threshold = %v, want %v", st.Threshold, config.DefaultThreshold)
	}

	s.pollOnce()
	if st := s.snapshotStatus(); st.PollCount != 2 || st.EventCount != 1 {
		t.Fatalf("unchanged poll: polls=%d events=%d, want 2/1", st.PollCount, st.EventCount)
	}

	cfg.General.InitialBalance = 900
	s.pollOnce()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 2 {
		t.Fatalf("events = %d, want 2 after a balance change", len(s.events))
	}
	ev := s.events[1]
	if ev.Type != "projection_delta" || ev.ID != 2 {
		t.Fatalf("event = %s #%d, want projection_delta #2", ev.Type, ev.ID)
	}
	if math.Abs(ev.Delta.ClosingBalance-100) > 1e-6 {
		t.Fatalf("ClosingBalance delta = %.2f, want 100", ev.Delta.ClosingBalance)
	}
}

func TestPollOnce_RecordsErrors(t *testing.T) {
	s := New(Config{
		Load:   func() (config.Config, error) { return config.Config{}, errors.New("disk gone") },
		Logger: quietLogger(),
	})
	s.pollOnce()

	st := s.snapshotStatus()
	if st.LastError != "disk gone" || st.PollCount != 1 || st.EventCount != 0 {
		t.Fatalf("status = %+v", st)
	}
	if st.Threshold != config.DefaultThreshold {
		t.Fatalf("Threshold = %v before any successful poll, want %v", st.Threshold, config.DefaultThreshold)
	}
	if rec := get(t, s, "/v1/projection"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("projection before first success: HTTP %d, want 503", rec.Code)
	}
}

func TestHandleHealthAndStatus(t *testing.T) {
	cfg := config.DefaultConfig()
	s := newTestService(t, &cfg)
	s.pollOnce()

	if rec := get(t, s, "/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec := get(t, s, "/v1/status")
	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Summary.Days != 42 || st.Schedule != DefaultSchedule {
		t.Fatalf("status = %+v", st)
	}
	if st.InstanceID == "" || st.InstanceID == New(Config{Logger: quietLogger()}).snapshotStatus().InstanceID {
		t.Fatalf("InstanceID = %q, want a fresh id per service", st.InstanceID)
	}

	rec = get(t, s, "/v1/events")
	var events []Event
	if err := json.NewDecoder(rec.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Type != "snapshot" {
		t.Fatalf("events = %+v", events)
	}
}

func TestHandleProjection(t *testing.T) {
	cfg := config.DefaultConfig()
	s := newTestService(t, &cfg)
	s.pollOnce()

	rec := get(t, s, "/v1/projection")
	if rec.Code != http.StatusOK {
		t.Fatalf("HTTP %d: %s", rec.Code, rec.Body.String())
	}
	var p ProjectionJSON
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if len(p.Ledger) != 42 || p.Ledger[0].Date != "2025-05-20" || p.Ledger[0].Balance != 800 {
		t.Fatalf("ledger: %d rows, first %+v", len(p.Ledger), p.Ledger[0])
	}
	if p.Ledger[0].Day != 20 || p.Ledger[0].Month != 5 || p.Ledger[41].Day != 30 || p.Ledger[41].Month != 6 {
		t.Fatalf("day/month: first %+v, last %+v", p.Ledger[0], p.Ledger[41])
	}
	for _, d := range p.Critical {
		if d.Day == 0 || d.Month == 0 {
			t.Fatalf("critical row without day/month: %+v", d)
		}
	}
	if len(p.Critical) > 0 && len(p.Recommendations) < len(p.Critical) {
		t.Fatalf("%d critical days but %d recommendations", len(p.Critical), len(p.Recommendations))
	}
}

func TestHandleProjection_QueryOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	s := newTestService(t, &cfg)

	q := url.Values{}
	q.Set("start", "2025-05-30")
	q.Set("days", "2")
	q.Set("balance", "1000")
	q.Add("reduce", "Waro=0.2")

	rec := get(t, s, "/v1/projection?"+q.Encode())
	if rec.Code != http.StatusOK {
		t.Fatalf("HTTP %d: %s", rec.Code, rec.Body.String())
	}
	var p ProjectionJSON
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if len(p.Ledger) != 2 || p.Ledger[1].Balance != 800 {
		t.Fatalf("ledger = %+v, want 2 days closing at 800", p.Ledger)
	}
	if p.Ledger[0].IncomeLabel != "Ingreso quincena" {
		t.Fatalf("income label = %q", p.Ledger[0].IncomeLabel)
	}
	if p.Reductions["Waro"] != 0.2 {
		t.Fatalf("reductions = %v", p.Reductions)
	}
}

func TestHandleProjection_BadQuery(t *testing.T) {
	cfg := config.DefaultConfig()
	s := newTestService(t, &cfg)

	for _, target := range []string{
		"/v1/projection?start=ayer",
		"/v1/projection?days=-3",
		"/v1/projection?reduce=Coca",
		"/v1/projection?settle=quizas",
	} {
		rec := get(t, s, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: HTTP %d, want 400", target, rec.Code)
		}
	}
}

func TestHandleWorkbookAndChart(t *testing.T) {
	cfg := config.DefaultConfig()
	s := newTestService(t, &cfg)
	s.pollOnce()

	rec := get(t, s, "/v1/workbook")
	if rec.Code != http.StatusOK {
		t.Fatalf("workbook HTTP %d", rec.Code)
	}
	p, err := export.ReadWorkbook(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Ledger) != 42 {
		t.Fatalf("workbook ledger rows = %d, want 42", len(p.Ledger))
	}

	rec = get(t, s, "/v1/chart")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("chart = HTTP %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatal("chart body is not a PNG")
	}

	if rec := get(t, s, "/v1/chart?days=1"); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("one-day chart: HTTP %d, want 422", rec.Code)
	}
}

func TestOverridesFromQuery(t *testing.T) {
	base := pipeline.Overrides{End: "2025-12-31", Reduce: []string{"Coca=0.1"}}
	q := url.Values{"days": {"7"}, "reduce": {"Waro=0.5"}, "settle": {"true"}}

	o, err := overridesFromQuery(base, q)
	if err != nil {
		t.Fatal(err)
	}
	if o.Days != 7 || o.End != "" {
		t.Fatalf("days/end = %d/%q, want 7 and cleared end", o.Days, o.End)
	}
	if len(o.Reduce) != 2 || o.Reduce[1] != "Waro=0.5" {
		t.Fatalf("Reduce = %v", o.Reduce)
	}
	if o.Settle == nil || !*o.Settle {
		t.Fatal("Settle not set")
	}
	if len(base.Reduce) != 1 {
		t.Fatal("base overrides were mutated")
	}

	if _, err := overridesFromQuery(base, url.Values{"days": {"x"}}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	cfg := config.DefaultConfig()
	s := newTestService(t, &cfg)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /v1/status: HTTP %d, want 405", rec.Code)
	}
	if rec := get(t, s, "/v1/nope"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route: HTTP %d, want 404", rec.Code)
	}
}

func TestValidSchedule(t *testing.T) {
	for _, expr := range []string{DefaultSchedule, "@daily", "5 0 * * *"} {
		if err := ValidSchedule(expr); err != nil {
			t.Errorf("ValidSchedule(%q) = %v", expr, err)
		}
	}
	for _, expr := range []string{"", "every minute", "61 * * * *"} {
		if err := ValidSchedule(expr); err == nil {
			t.Errorf("ValidSchedule(%q) accepted", expr)
		}
	}
}

func TestRun_RejectsBadSchedule(t *testing.T) {
	s := New(Config{Schedule: "whenever", Logger: quietLogger(), Addr: "127.0.0.1:0"})
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("Run accepted a bad schedule")
	}
}
