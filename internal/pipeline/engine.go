package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/theirongolddev/cstats/internal/model"
	"github.com/theirongolddev/cstats/internal/source"
	"github.com/theirongolddev/cstats/internal/store"
)

// Store persists a stats cache between runs.
type Store interface {
	// Load returns the persisted cache, or an error wrapping
	// store.ErrCacheMiss when none is stored.
	Load() (*model.StatsCache, error)
	// Save replaces the persisted cache. Readers see either the previous
	// cache or the new one, never a partial write.
	Save(cache model.StatsCache) error
	// Location describes where the cache lives, for display.
	Location() string
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	ClaudeDir string
	// Store is the persisted cache; nil disables cache reads and writes.
	Store Store
	// Persist writes freshly computed caches back to Store.
	Persist bool
	Options Options
	Logger  *zap.Logger
}

// Engine answers stats queries, serving the persisted cache when it is usable
// and rebuilding from the session logs otherwise. It holds no mutable state;
// concurrent calls are safe as long as the Store is.
type Engine struct {
	claudeDir string
	store     Store
	persist   bool
	opts      Options
	log       *zap.Logger
}

// NewEngine returns an Engine for cfg.
func NewEngine(cfg EngineConfig) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		claudeDir: cfg.ClaudeDir,
		store:     cfg.Store,
		persist:   cfg.Persist,
		opts:      cfg.Options,
		log:       log.Named("engine"),
	}
}

// ClaudeDir returns the data directory the engine scans.
func (e *Engine) ClaudeDir() string { return e.claudeDir }

// Today returns the current date key in the engine's time zone.
func (e *Engine) Today() string {
	date, _ := e.opts.today()
	return date
}

// CacheLocation describes where the persisted cache lives, or "" when the
// engine has none.
func (e *Engine) CacheLocation() string {
	if e.store == nil {
		return ""
	}
	return e.store.Location()
}

// StatsCache returns the persisted cache verbatim when one can be read and
// decoded. A missing or corrupt cache triggers a full recompute, which is
// persisted when enabled. Persistence failures are logged, never returned.
func (e *Engine) StatsCache() model.StatsCache {
	if cache, ok := e.persisted(); ok {
		return *cache
	}

	res := e.rebuild()
	if e.persist {
		if err := e.save(res.Stats); err != nil {
			e.log.Warn("persisting stats cache failed", zap.Error(err))
		}
	}
	return res.Stats
}

// Recompute rebuilds the cache from the session logs, ignoring any persisted
// copy, and persists it when enabled. The returned error only reports a
// failed write; the cache is valid either way.
func (e *Engine) Recompute() (*LoadResult, error) {
	res := e.rebuild()
	if !e.persist {
		return res, nil
	}
	return res, e.save(res.Stats)
}

// TodaySummary returns today's totals. A persisted cache that already has an
// entry for today is used as-is; otherwise the today-only fast path runs.
func (e *Engine) TodaySummary() (model.TodaySummary, error) {
	date, _ := e.opts.today()
	if cache, ok := e.persisted(); ok {
		if today, ok := TodayFromCache(cache, date); ok {
			return today, nil
		}
	}

	res, err := LoadToday(e.claudeDir, e.opts)
	if err != nil {
		return model.TodaySummary{}, err
	}
	if res.HistoryMissing {
		e.log.Debug("activity log missing; reporting empty day",
			zap.String("path", source.HistoryPath(e.claudeDir)))
	}
	return res.Summary, nil
}

// DailyTokenTotals returns the per-day output token series of StatsCache.
func (e *Engine) DailyTokenTotals() []model.DailyTokenTotal {
	cache := e.StatsCache()
	return DailyTokenTotals(&cache)
}

// History returns up to limit activity-log entries, newest first. A missing
// activity log yields no entries.
func (e *Engine) History(limit int) ([]model.HistoryEntry, error) {
	records, err := source.ReadHistory(source.HistoryPath(e.claudeDir), e.opts.Limits)
	if errors.Is(err, source.ErrNoHistory) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return source.History(records, limit), nil
}

func (e *Engine) persisted() (*model.StatsCache, bool) {
	if e.store == nil {
		return nil, false
	}
	cache, err := e.store.Load()
	switch {
	case err == nil:
		return cache, true
	case errors.Is(err, store.ErrCacheMiss):
		e.log.Debug("no persisted stats cache", zap.String("location", e.store.Location()))
	default:
		e.log.Warn("persisted stats cache unusable; recomputing",
			zap.String("location", e.store.Location()), zap.Error(err))
	}
	return nil, false
}

func (e *Engine) rebuild() *LoadResult {
	res := Load(e.claudeDir, e.opts)
	e.log.Debug("stats cache recomputed",
		zap.Int("files", res.TotalFiles),
		zap.Int("projects", res.ProjectCount),
		zap.Int("lines", res.Scan.Lines),
		zap.Int("skipped", res.Scan.Skipped),
		zap.Int("oversize", res.Scan.Oversize),
		zap.Int("duplicate_users", res.Scan.DuplicateUsers),
		zap.Int("merged_chunks", res.Scan.MergedChunks),
	)
	return res
}

func (e *Engine) save(cache model.StatsCache) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Save(cache); err != nil {
		return fmt.Errorf("saving stats cache to %s: %w", e.store.Location(), err)
	}
	return nil
}
