// Package daemon provides the long-running budget service: an HTTP/SSE API over the
// tracker, prometheus metrics, and reloads when other processes change the database.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/tripburn/internal/analytics"
	"github.com/theirongolddev/tripburn/internal/cloudsync"
	"github.com/theirongolddev/tripburn/internal/logging"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/tracker"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	DBPath       string // watched for writes from other processes
	EventsBuffer int
	StartupPull  bool
	ReloadDelay  time.Duration
}

// Snapshot is a compact budget state for status/event payloads.
type Snapshot struct {
	At           time.Time `json:"at"`
	Destination  string    `json:"destination"`
	Name         string    `json:"name"`
	Budget       float64   `json:"budget"`
	Spent        float64   `json:"spent"`
	RawRemaining float64   `json:"remaining"`
	DailyTarget  float64   `json:"daily_target"`
	ProgressPct  float64   `json:"progress_pct"`
	DaysLeft     int       `json:"days_left"`
	ExpenseCount int       `json:"expense_count"`
	Pacing       string    `json:"pacing"`
	PacingLabel  string    `json:"pacing_label"`
}

// Delta captures snapshot changes between pipeline passes.
type Delta struct {
	Budget       float64 `json:"budget"`
	Spent        float64 `json:"spent"`
	ExpenseCount int     `json:"expense_count"`
}

func (d Delta) isZero() bool {
	return d.Budget == 0 && d.Spent == 0 && d.ExpenseCount == 0
}

// AlertView is the JSON form of an alert.
type AlertView struct {
	Tone    string `json:"tone"`
	Badge   string `json:"badge"`
	Message string `json:"message"`
}

// Event is emitted on budget changes, alert rotations and reloads.
type Event struct {
	ID        int64      `json:"id"`
	Type      string     `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
	Snapshot  *Snapshot  `json:"snapshot,omitempty"`
	Delta     *Delta     `json:"delta,omitempty"`
	Alert     *AlertView `json:"alert,omitempty"`
}

// SyncView is the sync part of /v1/status.
type SyncView struct {
	Connected bool      `json:"connected"`
	ShareCode string    `json:"share_code,omitempty"`
	Pending   bool      `json:"pending"`
	Message   string    `json:"message"`
	Tone      string    `json:"tone"`
	LastPush  time.Time `json:"last_push,omitzero"`
	LastPull  time.Time `json:"last_pull,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	Failures  int       `json:"consecutive_failures"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	Addr            string    `json:"addr"`
	DBPath          string    `json:"db_path"`
	Active          string    `json:"active"`
	Summary         Snapshot  `json:"summary"`
	Sync            SyncView  `json:"sync"`
	ReloadCount     int64     `json:"reload_count"`
	LastReloadAt    time.Time `json:"last_reload_at,omitzero"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	tr      *tracker.Tracker
	metrics *Metrics
	log     *logrus.Entry

	mu           sync.RWMutex
	startedAt    time.Time
	lastReloadAt time.Time
	reloadCount  int64
	lastError    string
	snapshots    map[string]Snapshot
	nextEventID  int64
	events       []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service over tr. metrics may be nil.
func New(cfg Config, tr *tracker.Tracker, metrics *Metrics, logger logrus.FieldLogger) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.ReloadDelay <= 0 {
		cfg.ReloadDelay = 300 * time.Millisecond
	}
	if metrics == nil {
		metrics = NewMetrics()
	}

	s := &Service{
		cfg:       cfg,
		tr:        tr,
		metrics:   metrics,
		log:       logging.Component(logger, "daemon"),
		startedAt: time.Now(),
		snapshots: make(map[string]Snapshot),
		subs:      make(map[int]chan Event),
	}
	tr.Subscribe(s.onChange)
	tr.Generator().OnRotate(s.onRotate)
	s.seed()
	return s
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/alerts", s.handleAlerts)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Run serves the API, pulls once when sync is configured and watches the database
// until ctx is canceled.
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

	if s.cfg.StartupPull && s.tr.Sync().Connected() {
		go s.startupPull(ctx)
	}

	if s.cfg.DBPath != "" {
		go func() {
			if err := s.watch(ctx); err != nil {
				s.setError(err)
				s.log.WithError(err).Warn("database watch stopped")
			}
		}()
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.tr.Close(shutdownCtx); err != nil {
			s.log.WithError(err).Warn("final push failed")
		}
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

func (s *Service) startupPull(ctx context.Context) {
	res, err := s.tr.Sync().Bootstrap(ctx)
	if err != nil {
		s.setError(err)
		return
	}
	s.log.WithField("records", res.Records).WithField("touched", len(res.Touched)).Info("startup sync done")
}

// seed records an initial snapshot for every destination so status is useful immediately.
func (s *Service) seed() {
	for _, cfg := range s.tr.Destinations() {
		sum, err := s.tr.Summary(cfg.Slug)
		if err != nil {
			continue
		}
		s.onChange(tracker.Change{Slug: cfg.Slug, Summary: sum})
	}
}

func (s *Service) onChange(c tracker.Change) {
	snap := s.snapshotFor(c.Slug, c.Summary)
	s.metrics.observeDestination(c.Slug, snap)

	var pending []Event
	s.mu.Lock()
	prev, existed := s.snapshots[c.Slug]
	s.snapshots[c.Slug] = snap
	if !existed {
		pending = append(pending, s.newEventLocked("snapshot", &snap, nil, nil))
	} else if d := diffSnapshots(prev, snap); !d.isZero() {
		pending = append(pending, s.newEventLocked("budget_delta", &snap, &d, nil))
	}
	if c.AlertsChanged {
		a := alertView(s.tr.Generator().Current())
		pending = append(pending, s.newEventLocked("alerts", nil, nil, &a))
	}
	s.mu.Unlock()

	s.metrics.alerts.Set(float64(len(s.tr.Alerts())))
	for _, ev := range pending {
		s.publishEvent(ev)
	}
}

func (s *Service) onRotate(a model.Alert) {
	v := alertView(a)
	s.mu.Lock()
	ev := s.newEventLocked("alert", nil, nil, &v)
	s.mu.Unlock()
	s.publishEvent(ev)
}

func (s *Service) newEventLocked(typ string, snap *Snapshot, d *Delta, a *AlertView) Event {
	s.nextEventID++
	return Event{ID: s.nextEventID, Type: typ, Timestamp: time.Now(), Snapshot: snap, Delta: d, Alert: a}
}

func (s *Service) snapshotFor(slug string, sum analytics.Summary) Snapshot {
	name := slug
	if cfg, err := s.tr.Destination(slug); err == nil {
		name = cfg.Name
	}
	return Snapshot{
		At:           time.Now(),
		Destination:  slug,
		Name:         name,
		Budget:       sum.Budget,
		Spent:        sum.TotalSpent,
		RawRemaining: sum.RawRemaining,
		DailyTarget:  sum.DailyTarget,
		ProgressPct:  sum.ProgressPct,
		DaysLeft:     sum.DaysLeft,
		ExpenseCount: sum.ExpenseCount,
		Pacing:       string(sum.Status.Pacing),
		PacingLabel:  sum.Status.Label,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Budget:       round2(curr.Budget - prev.Budget),
		Spent:        round2(curr.Spent - prev.Spent),
		ExpenseCount: curr.ExpenseCount - prev.ExpenseCount,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func alertView(a model.Alert) AlertView {
	return AlertView{Tone: string(a.Tone), Badge: a.Tone.Badge(), Message: a.Message}
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
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
	active := s.tr.Active()
	sv := syncView(s.tr.Sync().Status())

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		Addr:            s.cfg.Addr,
		DBPath:          s.cfg.DBPath,
		Active:          active,
		Summary:         s.snapshots[active],
		Sync:            sv,
		ReloadCount:     s.reloadCount,
		LastReloadAt:    s.lastReloadAt,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func syncView(st cloudsync.Status) SyncView {
	return SyncView{
		Connected: st.Connected,
		ShareCode: st.ShareCode,
		Pending:   st.Pending,
		Message:   st.Message,
		Tone:      string(st.Tone),
		LastPush:  st.LastPush,
		LastPull:  st.LastPull,
		LastError: st.LastError,
		Failures:  st.ConsecutiveFailures,
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	all := s.tr.Alerts()
	out := struct {
		Destination string      `json:"destination"`
		Current     AlertView   `json:"current"`
		Alerts      []AlertView `json:"alerts"`
	}{
		Destination: s.tr.Active(),
		Current:     alertView(s.tr.Generator().Current()),
		Alerts:      make([]AlertView, 0, len(all)),
	}
	for _, a := range all {
		out.Alerts = append(out.Alerts, alertView(a))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
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
	snap := s.snapshotStatus().Summary
	writeSSE(w, Event{Type: "snapshot", Timestamp: time.Now(), Snapshot: &snap})
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
	s.metrics.sseSubs.Set(float64(len(s.subs)))
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	s.metrics.sseSubs.Set(float64(len(s.subs)))
}
