package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/theirongolddev/cstats/internal/model"
	"github.com/theirongolddev/cstats/internal/source"
	"github.com/theirongolddev/cstats/internal/store"
)

func newTestEngine(t *testing.T, root string, st Store, persist bool, now time.Time) *Engine {
	t.Helper()
	return NewEngine(EngineConfig{
		ClaudeDir: root,
		Store:     st,
		Persist:   persist,
		Options:   testOptions(now),
		Logger:    zaptest.NewLogger(t),
	})
}

func writeHistory(t *testing.T, root string, lines ...string) {
	t.Helper()
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "history.jsonl"), []byte(content), 0o600))
}

func TestEngine_CorruptCacheRecomputes(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root)
	cachePath := source.StatsCachePath(root)
	require.NoError(t, os.WriteFile(cachePath, []byte(`{"version": 1, oops`), 0o600))

	e := newTestEngine(t, root, store.NewJSONFile(cachePath), true, scenarioNow)
	stats := e.StatsCache()

	require.Len(t, stats.DailyActivity, 1)
	assert.Equal(t, uint64(2), stats.DailyActivity[0].MessageCount)

	// The rebuilt cache replaced the corrupt file.
	persisted, err := store.NewJSONFile(cachePath).Load()
	require.NoError(t, err)
	assert.Equal(t, stats.TotalMessages, persisted.TotalMessages)
}

func TestEngine_TrustsPersistedCache(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root)

	stale := model.StatsCache{
		Version:          model.StatsCacheVersion,
		LastComputedDate: "2020-01-01",
		DailyActivity:    []model.DailyActivity{},
		DailyModelTokens: []model.DailyModelTokens{},
		ModelUsage:       map[string]model.ModelUsage{},
		TotalMessages:    999,
		HourCounts:       map[string]uint64{},
	}
	st := store.NewJSONFile(source.StatsCachePath(root))
	require.NoError(t, st.Save(stale))

	stats := newTestEngine(t, root, st, true, scenarioNow).StatsCache()
	assert.Equal(t, uint64(999), stats.TotalMessages, "served verbatim, no re-validation")
}

func TestEngine_NoStore(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root)

	e := newTestEngine(t, root, nil, true, scenarioNow)
	assert.Equal(t, uint64(2), e.StatsCache().TotalMessages)
	assert.Empty(t, e.CacheLocation())
	_, err := os.Stat(source.StatsCachePath(root))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type failingStore struct{ saves int }

func (f *failingStore) Load() (*model.StatsCache, error) {
	return nil, fmt.Errorf("%w: test", store.ErrCacheMiss)
}

func (f *failingStore) Save(model.StatsCache) error {
	f.saves++
	return errors.New("disk full")
}

func (f *failingStore) Location() string { return "memory" }

func TestEngine_PersistFailureNotFatal(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root)
	st := &failingStore{}

	e := newTestEngine(t, root, st, true, scenarioNow)
	assert.Equal(t, uint64(2), e.StatsCache().TotalMessages)
	assert.Equal(t, 1, st.saves)

	res, err := e.Recompute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, uint64(2), res.Stats.TotalMessages)
}

func TestEngine_TodayMissingHistory(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root)

	today, err := newTestEngine(t, root, nil, false, scenarioNow).TodaySummary()
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", today.Date)
	assert.True(t, today.IsZero())
	assert.Empty(t, today.TokensByModel)
}

func TestEngine_TodayFastPathMatchesFullRecompute(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root)
	writeLog(t, root, "p", "old",
		`{"type":"user","uuid":"o1","sessionId":"old","timestamp":"2025-05-31T09:00:00Z"}`,
		`{"type":"assistant","sessionId":"old","timestamp":"2025-05-31T09:00:05Z","message":{"id":"om","model":"claude-3","usage":{"output_tokens":99}}}`,
	)
	writeHistory(t, root,
		`{"display":"yesterday","timestamp":1748682000000,"sessionId":"old"}`,
		`{"display":"hello","timestamp":1748768400000,"sessionId":"A"}`,
		`{"display":"resend","timestamp":1748768520000,"sessionId":"B"}`,
	)

	e := newTestEngine(t, root, nil, false, scenarioNow)
	fast, err := e.TodaySummary()
	require.NoError(t, err)

	full := Load(root, testOptions(scenarioNow)).Stats
	fromFull, ok := TodayFromCache(&full, "2025-06-01")
	require.True(t, ok)

	assert.Equal(t, fromFull, fast)
	assert.Equal(t, uint64(15), fast.TotalTokens)
	assert.Equal(t, uint64(2), fast.Messages)
	assert.Equal(t, uint64(1), fast.Sessions)
	assert.Equal(t, uint64(1), fast.ToolCalls)
}

func TestEngine_TodayUsesCacheWhenCurrent(t *testing.T) {
	root := t.TempDir()
	cached := model.StatsCache{
		Version:          model.StatsCacheVersion,
		LastComputedDate: "2025-06-01",
		DailyActivity:    []model.DailyActivity{{Date: "2025-06-01", MessageCount: 7, SessionCount: 2, ToolCallCount: 4}},
		DailyModelTokens: []model.DailyModelTokens{{Date: "2025-06-01", TokensByModel: map[string]uint64{"a": 3, "b": 4}}},
		ModelUsage:       map[string]model.ModelUsage{},
		HourCounts:       map[string]uint64{},
	}
	st := store.NewJSONFile(source.StatsCachePath(root))
	require.NoError(t, st.Save(cached))

	today, err := newTestEngine(t, root, st, false, scenarioNow).TodaySummary()
	require.NoError(t, err)
	assert.Equal(t, model.TodaySummary{
		Date:          "2025-06-01",
		TotalTokens:   7,
		TokensByModel: map[string]uint64{"a": 3, "b": 4},
		Messages:      7,
		Sessions:      2,
		ToolCalls:     4,
	}, today)

	// A cache without today falls through to the fast path.
	later, err := newTestEngine(t, root, st, false, scenarioNow.Add(24*time.Hour)).TodaySummary()
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", later.Date)
	assert.True(t, later.IsZero())
}

func TestEngine_TodayHistoryUnreadable(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "history.jsonl"), 0o750))

	_, err := newTestEngine(t, root, nil, false, scenarioNow).TodaySummary()
	require.Error(t, err)
}

func TestEngine_DailyTokenTotalsAndHistory(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root)
	writeHistory(t, root,
		`{"display":"first","timestamp":1000,"sessionId":"A"}`,
		`{"display":"second","timestamp":2000,"sessionId":"A"}`,
	)
	e := newTestEngine(t, root, nil, false, scenarioNow)

	assert.Equal(t, []model.DailyTokenTotal{
		{Date: "2025-06-01", Total: 15, ByModel: map[string]uint64{"claude-3": 15}},
	}, e.DailyTokenTotals())

	hist, err := e.History(1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "second", hist[0].Display)

	empty, err := newTestEngine(t, t.TempDir(), nil, false, scenarioNow).History(10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
