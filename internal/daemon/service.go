// Package daemon keeps the stats cache fresh in the background and serves it
// over HTTP, with a server-sent event stream of today's usage changes.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theirongolddev/cstats/internal/model"
	"github.com/theirongolddev/cstats/internal/pipeline"
)

const (
	defaultInterval     = 30 * time.Second
	minInterval         = 2 * time.Second
	defaultEventsBuffer = 200
	defaultHistoryLimit = 50
)

// Engine is the subset of pipeline.Engine the daemon drives.
type Engine interface {
	ClaudeDir() string
	Today() string
	Recompute() (*pipeline.LoadResult, error)
	History(limit int) ([]model.HistoryEntry, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	Interval     time.Duration
	EventsBuffer int
	Logger       *zap.Logger
}

// Snapshot is the compact state carried by status and event payloads.
type Snapshot struct {
	At            time.Time          `json:"at"`
	Today         model.TodaySummary `json:"today"`
	TotalSessions uint64             `json:"totalSessions"`
	TotalMessages uint64             `json:"totalMessages"`
	Files         int                `json:"files"`
}

// Delta is the change in today's counters between two polls. Counters drop
// back when the date rolls over, so fields are signed.
type Delta struct {
	Messages  int64 `json:"messages"`
	Sessions  int64 `json:"sessions"`
	ToolCalls int64 `json:"toolCalls"`
	Tokens    int64 `json:"tokens"`
}

func (d Delta) isZero() bool {
	return d.Messages == 0 && d.Sessions == 0 && d.ToolCalls == 0 && d.Tokens == 0
}

// Event types.
const (
	EventSnapshot = "snapshot"
	EventDelta    = "usage_delta"
	EventRollover = "day_rollover"
)

// Event is emitted whenever a poll changes the snapshot.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"startedAt"`
	LastPollAt      time.Time `json:"lastPollAt"`
	PollIntervalSec int       `json:"pollIntervalSec"`
	PollCount       int64     `json:"pollCount"`
	ClaudeDir       string    `json:"claudeDir"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"lastError,omitempty"`
	EventCount      int       `json:"eventCount"`
	SubscriberCount int       `json:"subscriberCount"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	engine Engine
	log    *zap.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	stats       model.StatsCache
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service polling engine.
func New(engine Engine, cfg Config) *Service {
	if cfg.Interval == 0 {
		cfg.Interval = defaultInterval
	}
	cfg.Interval = max(cfg.Interval, minInterval)
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = defaultEventsBuffer
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		cfg:       cfg,
		engine:    engine,
		log:       log.Named("daemon"),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/today", s.handleToday)
	mux.HandleFunc("GET /v1/daily-tokens", s.handleDailyTokens)
	mux.HandleFunc("GET /v1/history", s.handleHistory)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	return mux
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("daemon listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve polls the engine and serves the HTTP API on ln until ctx is canceled.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("listening", zap.String("addr", ln.Addr().String()),
		zap.Duration("interval", s.cfg.Interval), zap.String("claude_dir", s.engine.ClaudeDir()))

	// Seed the first snapshot so status is useful immediately.
	s.pollOnce()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// pollOnce recomputes the stats cache and publishes an event when today's
// usage changed. A failed cache write is recorded but the fresh stats are
// still served.
func (s *Service) pollOnce() {
	res, err := s.engine.Recompute()
	now := time.Now()
	if err != nil {
		s.log.Warn("poll: cache write failed", zap.Error(err))
	}

	today, _ := pipeline.TodayFromCache(&res.Stats, s.engine.Today())
	snap := Snapshot{
		At:            now,
		Today:         today,
		TotalSessions: res.Stats.TotalSessions,
		TotalMessages: res.Stats.TotalMessages,
		Files:         res.TotalFiles,
	}

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev, prevExists := s.snapshot, s.hasSnapshot
	s.hasSnapshot = true
	s.snapshot = snap
	s.stats = res.Stats
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}

	switch {
	case !prevExists:
		ev, publish = Event{Type: EventSnapshot, Snapshot: snap}, true
	case prev.Today.Date != snap.Today.Date:
		ev, publish = Event{Type: EventRollover, Snapshot: snap, Delta: diffToday(prev.Today, snap.Today)}, true
	default:
		if delta := diffToday(prev.Today, snap.Today); !delta.isZero() {
			ev, publish = Event{Type: EventDelta, Snapshot: snap, Delta: delta}, true
		}
	}
	if publish {
		s.nextEventID++
		ev.ID = s.nextEventID
		ev.Timestamp = now
	}
	s.mu.Unlock()

	s.log.Debug("poll complete",
		zap.Int("files", res.TotalFiles),
		zap.Uint64("today_messages", today.Messages),
		zap.Bool("changed", publish))

	if publish {
		s.publishEvent(ev)
	}
}

func diffToday(prev, curr model.TodaySummary) Delta {
	sub := func(a, b uint64) int64 { return int64(a) - int64(b) } //nolint:gosec // counters stay far below 2^63
	return Delta{
		Messages:  sub(curr.Messages, prev.Messages),
		Sessions:  sub(curr.Sessions, prev.Sessions),
		ToolCalls: sub(curr.ToolCalls, prev.ToolCalls),
		Tokens:    sub(curr.TotalTokens, prev.TotalTokens),
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
}

func (s *Service) status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		ClaudeDir:       s.engine.ClaudeDir(),
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

// current returns the latest polled stats, or false before the first poll.
func (s *Service) current() (model.StatsCache, Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, s.snapshot, s.hasSnapshot
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Service) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats, _, ok := s.current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "first poll pending")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Service) handleToday(w http.ResponseWriter, _ *http.Request) {
	_, snap, ok := s.current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "first poll pending")
		return
	}
	writeJSON(w, http.StatusOK, snap.Today)
}

func (s *Service) handleDailyTokens(w http.ResponseWriter, _ *http.Request) {
	stats, _, ok := s.current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "first poll pending")
		return
	}
	writeJSON(w, http.StatusOK, pipeline.DailyTokenTotals(&stats))
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.engine.History(limit)
	if err != nil {
		s.log.Warn("reading activity log failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
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

	// Send the current snapshot immediately.
	writeSSE(w, Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  s.status().Summary,
	})
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
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
