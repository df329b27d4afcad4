// Package daemon provides the long-running budget sweeper and its HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/logging"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

// Event types published besides the ledger's own kinds.
const (
	EventSnapshot   = "snapshot"
	EventSpendDelta = "spend_delta"
)

// Config controls the daemon runtime behavior.
type Config struct {
	OwnerID      string // empty watches every owner
	StorePath    string
	Interval     time.Duration
	Addr         string
	EventsBuffer int
}

// Ledger is the ledger surface the daemon sweeps.
type Ledger interface {
	CompleteExpired(ctx context.Context) ([]model.Budget, error)
	List(ctx context.Context, f store.BudgetFilter) ([]model.Budget, error)
	Get(ctx context.Context, budgetID string) (model.Ledger, error)
	Summarize(l model.Ledger) ledger.Summary
	NearLimits(ctx context.Context, ownerID string) ([]ledger.LimitAlert, error)
}

// Suggestions lists optimization suggestions.
type Suggestions interface {
	Suggestions(ctx context.Context, f store.SuggestionFilter) ([]model.Suggestion, error)
}

// Snapshot is a compact budget state for status/event payloads.
type Snapshot struct {
	At                 time.Time      `json:"at"`
	Budgets            int            `json:"budgets"`
	ByStatus           map[string]int `json:"by_status"`
	Open               int            `json:"open"`
	Exceeded           int            `json:"exceeded"`
	Total              string         `json:"total"`
	Spent              string         `json:"spent"`
	Remaining          string         `json:"remaining"`
	Expenses           int            `json:"expenses"`
	AlertingLimits     int            `json:"alerting_limits"`
	PendingSuggestions int            `json:"pending_suggestions"`
}

// Delta captures snapshot deltas between sweeps.
type Delta struct {
	Budgets        int    `json:"budgets"`
	Exceeded       int    `json:"exceeded"`
	Expenses       int    `json:"expenses"`
	Spent          string `json:"spent"`
	AlertingLimits int    `json:"alerting_limits"`
}

func (d Delta) isZero() bool {
	return d.Budgets == 0 &&
		d.Exceeded == 0 &&
		d.Expenses == 0 &&
		d.AlertingLimits == 0 &&
		(d.Spent == "" || d.Spent == "0")
}

// Event is published on state changes.
type Event struct {
	ID        int64         `json:"id"`
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Snapshot  *Snapshot     `json:"snapshot,omitempty"`
	Delta     *Delta        `json:"delta,omitempty"`
	Ledger    *ledger.Event `json:"ledger,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt        time.Time `json:"started_at"`
	LastSweepAt      time.Time `json:"last_sweep_at"`
	SweepIntervalSec int       `json:"sweep_interval_sec"`
	SweepCount       int64     `json:"sweep_count"`
	StorePath        string    `json:"store_path,omitempty"`
	OwnerID          string    `json:"owner_id,omitempty"`
	Summary          Snapshot  `json:"summary"`
	LastError        string    `json:"last_error,omitempty"`
	EventCount       int       `json:"event_count"`
	SubscriberCount  int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg         Config
	ledger      Ledger
	suggestions Suggestions
	log         *zap.Logger
	metrics     *metrics

	mu          sync.RWMutex
	startedAt   time.Time
	lastSweepAt time.Time
	sweepCount  int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event
	alerted     map[string]bool // budget/category/kind already announced

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon over the ledger. suggestions may be nil.
func New(cfg Config, l Ledger, suggestions Suggestions, log *zap.Logger) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}

	return &Service{
		cfg:         cfg,
		ledger:      l,
		suggestions: suggestions,
		log:         logging.OrNop(log).Named("daemon"),
		metrics:     newMetrics(),
		startedAt:   time.Now(),
		alerted:     make(map[string]bool),
		subs:        make(map[int]chan Event),
	}
}

// Addr is the listen address after defaults.
func (s *Service) Addr() string { return s.cfg.Addr }

// Handler returns the daemon's HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

// Run starts HTTP endpoints and sweeping until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
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
	s.log.Info("daemon listening", zap.String("addr", s.cfg.Addr), zap.Duration("interval", s.cfg.Interval))

	// Seed initial snapshot so status is useful immediately.
	s.Sweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.Sweep(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// OnLedgerEvent forwards a committed ledger change to subscribers. It is
// meant to be installed as the ledger's event hook.
func (s *Service) OnLedgerEvent(e ledger.Event) {
	if e.Kind == ledger.EventLimitNear || e.Kind == ledger.EventLimitOver {
		s.mu.Lock()
		s.alerted[alertKey(e.BudgetID, e.Category, e.Kind)] = true
		s.mu.Unlock()
	}
	ev := e
	s.publishEvent(Event{Type: string(e.Kind), Timestamp: e.At, Ledger: &ev})
}

// Sweep completes expired budgets, announces limit alerts not yet seen and
// publishes a snapshot or delta.
func (s *Service) Sweep(ctx context.Context) {
	start := time.Now()
	defer func() { s.metrics.sweepDuration.Observe(time.Since(start).Seconds()) }()

	done, err := s.ledger.CompleteExpired(ctx)
	s.metrics.completed.Add(float64(len(done)))
	if err == nil {
		err = s.announceAlerts(ctx)
	}
	var snap Snapshot
	if err == nil {
		snap, err = s.takeSnapshot(ctx)
	}

	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastSweepAt = now
		s.sweepCount++
		s.mu.Unlock()
		s.metrics.sweeps.WithLabelValues("error").Inc()
		s.log.Warn("sweep failed", zap.Error(err))
		return
	}
	s.metrics.sweeps.WithLabelValues("ok").Inc()
	s.observe(snap)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastSweepAt = now
	s.sweepCount++
	s.lastError = ""

	if !prevExists {
		ev = Event{Type: EventSnapshot, Timestamp: now, Snapshot: &snap}
		publish = true
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		ev = Event{Type: EventSpendDelta, Timestamp: now, Snapshot: &snap, Delta: &delta}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
	s.log.Debug("sweep", zap.Int("completed", len(done)), zap.Int("budgets", snap.Budgets),
		zap.Duration("took", time.Since(start)))
}

func (s *Service) announceAlerts(ctx context.Context) error {
	alerts, err := s.ledger.NearLimits(ctx, s.cfg.OwnerID)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, a := range alerts {
		kind := ledger.EventLimitNear
		if a.Over {
			kind = ledger.EventLimitOver
		}
		key := alertKey(a.BudgetID, a.Category, kind)
		s.mu.Lock()
		seen := s.alerted[key]
		s.alerted[key] = true
		s.mu.Unlock()
		if seen {
			continue
		}
		e := ledger.Event{
			Kind:     kind,
			BudgetID: a.BudgetID,
			Category: a.Category,
			Message:  fmt.Sprintf("%s/%s at %s%% of limit", a.BudgetName, a.Category, a.PercentUsed.StringFixed(0)),
			At:       now,
		}
		s.publishEvent(Event{Type: string(kind), Timestamp: now, Ledger: &e})
	}
	return nil
}

func alertKey(budgetID, category string, kind ledger.EventKind) string {
	return budgetID + "/" + category + "/" + string(kind)
}

func (s *Service) takeSnapshot(ctx context.Context) (Snapshot, error) {
	budgets, err := s.ledger.List(ctx, store.BudgetFilter{OwnerID: s.cfg.OwnerID})
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{At: time.Now(), Budgets: len(budgets), ByStatus: make(map[string]int)}
	total, spent, remaining := decimal.Zero, decimal.Zero, decimal.Zero
	for _, b := range budgets {
		snap.ByStatus[string(b.Status)]++
		if b.Status == model.StatusExceeded {
			snap.Exceeded++
		}
		if b.Status.Terminal() {
			continue
		}
		l, err := s.ledger.Get(ctx, b.ID)
		if err != nil {
			return Snapshot{}, err
		}
		sum := s.ledger.Summarize(l)
		snap.Open++
		snap.Expenses += sum.Expenses
		snap.AlertingLimits += sum.Alerts
		total = total.Add(b.Total)
		spent = spent.Add(sum.Spent)
		remaining = remaining.Add(sum.Remaining)
	}
	snap.Total = total.String()
	snap.Spent = spent.String()
	snap.Remaining = remaining.String()

	if s.suggestions != nil {
		pending, err := s.suggestions.Suggestions(ctx, store.SuggestionFilter{UserID: s.cfg.OwnerID, PendingOnly: true})
		if err != nil {
			return Snapshot{}, err
		}
		snap.PendingSuggestions = len(pending)
	}
	return snap, nil
}

func (s *Service) observe(snap Snapshot) {
	s.metrics.budgets.Reset()
	for status, n := range snap.ByStatus {
		s.metrics.budgets.WithLabelValues(status).Set(float64(n))
	}
	s.metrics.spent.Set(decimal.RequireFromString(snap.Spent).InexactFloat64())
	s.metrics.remaining.Set(decimal.RequireFromString(snap.Remaining).InexactFloat64())
	s.metrics.alertingLimits.Set(float64(snap.AlertingLimits))
	s.metrics.pending.Set(float64(snap.PendingSuggestions))
}

func diffSnapshots(prev, curr Snapshot) Delta {
	spent := decimal.Zero
	if p, err := decimal.NewFromString(prev.Spent); err == nil {
		if c, err := decimal.NewFromString(curr.Spent); err == nil {
			spent = c.Sub(p)
		}
	}
	return Delta{
		Budgets:        curr.Budgets - prev.Budgets,
		Exceeded:       curr.Exceeded - prev.Exceeded,
		Expenses:       curr.Expenses - prev.Expenses,
		Spent:          spent.String(),
		AlertingLimits: curr.AlertingLimits - prev.AlertingLimits,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.nextEventID++
	ev.ID = s.nextEventID
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
	s.metrics.events.WithLabelValues(ev.Type).Inc()
}

// Status reports the daemon's current state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:        s.startedAt,
		LastSweepAt:      s.lastSweepAt,
		SweepIntervalSec: int(s.cfg.Interval.Seconds()),
		SweepCount:       s.sweepCount,
		StorePath:        s.cfg.StorePath,
		OwnerID:          s.cfg.OwnerID,
		Summary:          s.snapshot,
		LastError:        s.lastError,
		EventCount:       len(s.events),
		SubscriberCount:  len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Status())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
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
	summary := s.Status().Summary
	writeSSE(w, Event{Type: EventSnapshot, Timestamp: time.Now(), Snapshot: &summary})
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
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
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
	s.metrics.subscribers.Set(float64(len(s.subs)))
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	s.metrics.subscribers.Set(float64(len(s.subs)))
}
