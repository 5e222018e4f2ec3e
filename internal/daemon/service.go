// Package daemon provides the long-running projection service: it re-projects
// on a cron schedule and serves the latest tables over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/export"
	"github.com/theirongolddev/cashflow/internal/model"
	"github.com/theirongolddev/cashflow/internal/pipeline"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Config controls the daemon runtime behavior.
type Config struct {
	// Load returns the current configuration. It is called on every poll so
	// edits to the config file are picked up without a restart.
	Load func() (config.Config, error)
	// Overrides are layered over the loaded config on every poll.
	Overrides pipeline.Overrides
	// Schedule is a cron expression for re-projection, e.g. "@every 1m" or
	// "5 0 * * *" for just after midnight.
	Schedule     string
	Addr         string
	EventsBuffer int
	Logger       logrus.FieldLogger
	// Now defaults to time.Now. The projection window follows it.
	Now func() time.Time
}

// Snapshot is a compact projection state for status/event payloads.
type Snapshot struct {
	At             time.Time `json:"at"`
	Start          string    `json:"start"`
	End            string    `json:"end"`
	Days           int       `json:"days"`
	OpeningBalance float64   `json:"opening_balance"`
	ClosingBalance float64   `json:"closing_balance"`
	MinBalance     float64   `json:"min_balance"`
	MinBalanceDate string    `json:"min_balance_date,omitempty"`
	TotalIncome    float64   `json:"total_income"`
	TotalExpense   float64   `json:"total_expense"`
	TotalReduced   float64   `json:"total_reduced"`
	CriticalDays   int       `json:"critical_days"`
	FirstCritical  string    `json:"first_critical,omitempty"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Days           int     `json:"days"`
	ClosingBalance float64 `json:"closing_balance"`
	MinBalance     float64 `json:"min_balance"`
	TotalReduced   float64 `json:"total_reduced"`
	CriticalDays   int     `json:"critical_days"`
}

func (d Delta) isZero() bool {
	return d.Days == 0 &&
		d.ClosingBalance == 0 &&
		d.MinBalance == 0 &&
		d.TotalReduced == 0 &&
		d.CriticalDays == 0
}

// Event is emitted whenever the projection changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	// InstanceID changes on every start so stream clients can spot restarts.
	InstanceID      string    `json:"instance_id"`
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	Schedule        string    `json:"schedule"`
	PollCount       int64     `json:"poll_count"`
	Threshold       float64   `json:"threshold"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg Config
	log logrus.FieldLogger
	id  string

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	current     result
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// result is one finished projection with the catalogue it ran against.
type result struct {
	cat  config.Catalog
	in   pipeline.Input
	proj model.Projection
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8797"
	}
	if cfg.Load == nil {
		cfg.Load = config.Load
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Service{
		cfg:       cfg,
		log:       log,
		id:        uuid.New().String(),
		startedAt: cfg.Now(),
		current:   result{cat: config.DefaultCatalog()},
		subs:      make(map[int]chan Event),
	}
}

// DefaultSchedule re-projects once a minute.
const DefaultSchedule = "@every 1m"

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	api.HandleFunc("/projection", s.handleProjection).Methods(http.MethodGet)
	api.HandleFunc("/workbook", s.handleWorkbook).Methods(http.MethodGet)
	api.HandleFunc("/chart", s.handleChart).Methods(http.MethodGet)
	return r
}

// Run starts HTTP endpoints and scheduled polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	sched := cron.New()
	if _, err := sched.AddFunc(s.cfg.Schedule, s.pollOnce); err != nil {
		return fmt.Errorf("daemon schedule %q: %w", s.cfg.Schedule, err)
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce()

	sched.Start()
	defer sched.Stop()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// ValidSchedule reports whether expr is a schedule the daemon accepts.
func ValidSchedule(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}

// project loads the config and runs one projection with o layered on top.
func (s *Service) project(o pipeline.Overrides) (result, error) {
	cfg, err := s.cfg.Load()
	if err != nil {
		return result{}, err
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return result{}, fmt.Errorf("catalog: %w", err)
	}
	in, err := pipeline.ResolveInput(cfg, s.cfg.Now(), o)
	if err != nil {
		return result{}, err
	}
	p, err := pipeline.Project(cat, in)
	if err != nil {
		return result{}, err
	}
	return result{cat: cat, in: in, proj: p}, nil
}

func (s *Service) pollOnce() {
	start := time.Now()
	res, err := s.project(s.cfg.Overrides)
	now := s.cfg.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.log.WithError(err).Warn("cashflow daemon poll failed")
		return
	}

	snap := snapshotFromProjection(res, now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.current = res
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: now,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() || prev.Start != snap.Start || prev.End != snap.End {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      "projection_delta",
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}

	s.log.WithFields(logrus.Fields{
		"days":     snap.Days,
		"critical": snap.CriticalDays,
		"closing":  snap.ClosingBalance,
		"event":    publish,
		"elapsed":  time.Since(start).Round(time.Microsecond),
	}).Debug("cashflow daemon poll")
}

func snapshotFromProjection(res result, at time.Time) Snapshot {
	st := pipeline.ComputeStats(res.proj)
	snap := Snapshot{
		At:             at,
		Start:          res.in.Start.Format(pipeline.DateLayout),
		End:            res.in.End.Format(pipeline.DateLayout),
		Days:           st.Days,
		OpeningBalance: st.OpeningBalance,
		ClosingBalance: st.ClosingBalance,
		MinBalance:     st.MinBalance,
		TotalIncome:    st.TotalIncome,
		TotalExpense:   st.TotalExpense,
		TotalReduced:   st.TotalReduced,
		CriticalDays:   st.CriticalDays,
	}
	if !st.MinBalanceDate.IsZero() {
		snap.MinBalanceDate = st.MinBalanceDate.Format(pipeline.DateLayout)
	}
	if len(res.proj.Critical) > 0 {
		snap.FirstCritical = res.proj.Critical[0].Date.Format(pipeline.DateLayout)
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Days:           curr.Days - prev.Days,
		ClosingBalance: curr.ClosingBalance - prev.ClosingBalance,
		MinBalance:     curr.MinBalance - prev.MinBalance,
		TotalReduced:   curr.TotalReduced - prev.TotalReduced,
		CriticalDays:   curr.CriticalDays - prev.CriticalDays,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		InstanceID:      s.id,
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		Schedule:        s.cfg.Schedule,
		PollCount:       s.pollCount,
		Threshold:       s.current.cat.Threshold,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

// resultFor returns the polled projection, or a fresh one when the request
// carries its own parameters.
func (s *Service) resultFor(r *http.Request) (result, error) {
	q := r.URL.Query()
	if len(q) == 0 {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if !s.hasSnapshot {
			return result{}, errNotReady
		}
		return s.current, nil
	}

	o, err := overridesFromQuery(s.cfg.Overrides, q)
	if err != nil {
		return result{}, err
	}
	return s.project(o)
}

var errNotReady = errors.New("no projection yet")

// overridesFromQuery layers URL parameters over base. reduce may repeat.
func overridesFromQuery(base pipeline.Overrides, q url.Values) (pipeline.Overrides, error) {
	o := base
	if v := q.Get("start"); v != "" {
		o.Start = v
	}
	if v := q.Get("end"); v != "" {
		o.End = v
	}
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return o, fmt.Errorf("%w: days %q", model.ErrInvalidInput, v)
		}
		o.Days = n
		if q.Get("end") == "" {
			o.End = ""
		}
	}
	if v := q.Get("balance"); v != "" {
		o.Balance = v
	}
	if rs := q["reduce"]; len(rs) > 0 {
		o.Reduce = append(append([]string(nil), base.Reduce...), rs...)
	}
	if v := q.Get("settle"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return o, fmt.Errorf("%w: settle %q", model.ErrInvalidInput, v)
		}
		o.Settle = &b
	}
	return o, nil
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleProjection(w http.ResponseWriter, r *http.Request) {
	res, err := s.resultFor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newProjectionJSON(res))
}

func (s *Service) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	res, err := s.resultFor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="cashflow_exportado.xlsx"`)
	if err := export.WriteWorkbook(w, res.proj); err != nil {
		s.log.WithError(err).Error("writing workbook")
	}
}

func (s *Service) handleChart(w http.ResponseWriter, r *http.Request) {
	res, err := s.resultFor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(res.proj.Ledger) < 2 {
		s.writeError(w, export.ErrTooFewDays)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := export.WriteBalanceChart(w, res.proj.Ledger, res.cat.Threshold); err != nil {
		s.log.WithError(err).Error("writing chart")
	}
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, export.ErrTooFewDays):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, errNotReady):
		code = http.StatusServiceUnavailable
	default:
		s.log.WithError(err).Error("cashflow daemon request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: s.cfg.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
