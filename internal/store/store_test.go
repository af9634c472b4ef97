package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cstats/internal/model"
)

func sampleCache() model.StatsCache {
	first := "2025-06-01"
	return model.StatsCache{
		Version:          model.StatsCacheVersion,
		LastComputedDate: "2025-06-03",
		DailyActivity: []model.DailyActivity{
			{Date: "2025-06-01", MessageCount: 4, SessionCount: 2, ToolCallCount: 3},
			{Date: "2025-06-02", MessageCount: 1, SessionCount: 1},
		},
		DailyModelTokens: []model.DailyModelTokens{
			{Date: "2025-06-01", TokensByModel: map[string]uint64{"claude-3": 10, "claude-4": 5}},
			{Date: "2025-06-02", TokensByModel: map[string]uint64{}},
		},
		ModelUsage: map[string]model.ModelUsage{
			"claude-3": {InputTokens: 100, OutputTokens: 10, CacheReadInputTokens: 7, WebSearchRequests: 1},
			"claude-4": {OutputTokens: 5, CacheCreationInputTokens: 2},
		},
		TotalSessions: 2,
		TotalMessages: 5,
		LongestSession: &model.LongestSession{
			SessionID:    "A",
			Duration:     60000,
			MessageCount: 3,
			Timestamp:    "2025-06-01T09:00:00Z",
		},
		FirstSessionDate: &first,
		HourCounts:       map[string]uint64{"9": 4, "14": 1},
	}
}

func TestJSONFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stats-cache.json")
	s := NewJSONFile(path)
	want := sampleCache()

	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)

	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, path, s.Location())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestJSONFile_Missing(t *testing.T) {
	_, err := NewJSONFile(filepath.Join(t.TempDir(), "stats-cache.json")).Load()
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestJSONFile_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{not json`},
		{"null", `null`},
		{"array", `[]`},
		{"missing fields", `{"version":1}`},
		{"wrong types", `{"version":"one","lastComputedDate":"","dailyActivity":[],"dailyModelTokens":[],"modelUsage":{},"totalSessions":0,"totalMessages":0,"hourCounts":{},"totalSpeculationTimeSavedMs":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stats-cache.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := NewJSONFile(path).Load()
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.NotErrorIs(t, err, ErrCacheMiss)
		})
	}
}

func TestJSONFile_AcceptsForeignDocument(t *testing.T) {
	// Documents written by other tools may omit optional fields and carry extras.
	path := filepath.Join(t.TempDir(), "stats-cache.json")
	doc := `{"version":2,"lastComputedDate":"2025-01-01","dailyActivity":[],"dailyModelTokens":[],
"modelUsage":{"m":{"inputTokens":1,"outputTokens":2,"cacheReadInputTokens":0,"cacheCreationInputTokens":0,"webSearchRequests":0,"costUsd":1.5}},
"totalSessions":0,"totalMessages":0,"hourCounts":{},"totalSpeculationTimeSavedMs":9,"extra":true}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	got, err := NewJSONFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.Version)
	assert.InDelta(t, 1.5, got.ModelUsage["m"].CostUSD, 1e-9)
	assert.Equal(t, uint64(9), got.TotalSpeculationTimeSavedMs)
	assert.Nil(t, got.LongestSession)
}

func TestSQLite_RoundTrip(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Load()
	require.ErrorIs(t, err, ErrCacheMiss)

	want := sampleCache()
	require.NoError(t, db.Save(want))
	got, err := db.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// A second save replaces everything.
	empty := model.StatsCache{
		Version:          model.StatsCacheVersion,
		LastComputedDate: "2025-07-01",
		DailyActivity:    []model.DailyActivity{},
		DailyModelTokens: []model.DailyModelTokens{},
		ModelUsage:       map[string]model.ModelUsage{},
		HourCounts:       map[string]uint64{},
	}
	require.NoError(t, db.Save(empty))
	got, err = db.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(empty, *got); diff != "" {
		t.Errorf("replace mismatch (-want +got):\n%s", diff)
	}
}
