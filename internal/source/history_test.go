package source

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cstats/internal/model"
)

func writeHistory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadHistory(t *testing.T) {
	path := writeHistory(t, `{"display":"fix tests","timestamp":1000,"project":"/p","sessionId":"a"}
garbage
{"display":"later","timestamp":3000,"sessionId":"b"}
[1,2,3]
{"display":"middle","timestamp":2000,"sessionId":"a"}
`)

	records, err := ReadHistory(path, Limits{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "fix tests", string(records[0].Display))
	assert.Equal(t, looseCount(3000), records[1].Timestamp)
}

func TestReadHistory_Missing(t *testing.T) {
	_, err := ReadHistory(filepath.Join(t.TempDir(), "history.jsonl"), Limits{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoHistory)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadHistory_Directory(t *testing.T) {
	_, err := ReadHistory(t.TempDir(), Limits{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoHistory)
}

func TestSessionsSince(t *testing.T) {
	records := []HistoryRecord{
		{Timestamp: 100, SessionID: "old"},
		{Timestamp: 200, SessionID: "edge"},
		{Timestamp: 300, SessionID: "new"},
		{Timestamp: 400},
	}
	got := SessionsSince(records, 200)
	assert.Equal(t, map[string]struct{}{"edge": {}, "new": {}}, got)
}

func TestHistory(t *testing.T) {
	records := []HistoryRecord{
		{Display: "a", Timestamp: 1000, SessionID: "s1"},
		{Display: "c", Timestamp: 3000, Project: "/p"},
		{Display: "no time"},
		{Display: "b", Timestamp: 2000},
	}

	all := History(records, 0)
	assert.Equal(t, []model.HistoryEntry{
		{Display: "c", Timestamp: 3000, Project: "/p"},
		{Display: "b", Timestamp: 2000},
		{Display: "a", Timestamp: 1000, SessionID: "s1"},
	}, all)

	top := History(records, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].Display)
	assert.Equal(t, "b", top[1].Display)
}
