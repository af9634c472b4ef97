package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cstats/internal/model"
	"github.com/theirongolddev/cstats/internal/source"
)

// writeLog writes <root>/projects/<project>/<name>.jsonl.
func writeLog(t *testing.T, root, project, name string, lines ...string) {
	t.Helper()
	dir := filepath.Join(root, "projects", project)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".jsonl"), []byte(content), 0o600))
}

func testOptions(now time.Time) Options {
	return Options{
		Location: time.UTC,
		Now:      func() time.Time { return now },
	}
}

var scenarioNow = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

// writeScenario lays out two files: session A's user turn and first
// assistant chunk, and a re-sent copy of the same message with a larger
// output count and no tool blocks.
func writeScenario(t *testing.T, root string) {
	t.Helper()
	writeLog(t, root, "-Users-me-projects-demo", "A",
		`{"type":"user","uuid":"u1","sessionId":"A","timestamp":"2025-06-01T09:00:00Z"}`,
		`{"type":"assistant","uuid":"x1","sessionId":"A","timestamp":"2025-06-01T09:01:00Z","message":{"id":"m1","model":"claude-3","usage":{"output_tokens":10},"content":[{"type":"tool_use","id":"t1","name":"Read"}]}}`,
	)
	writeLog(t, root, "-Users-me-projects-demo", "B",
		`{"type":"assistant","uuid":"x2","sessionId":"A","timestamp":"2025-06-01T09:02:00Z","message":{"id":"m1","model":"claude-3","usage":{"output_tokens":15},"content":[]}}`,
	)
}

func TestLoad_Scenario(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root)

	res := Load(root, testOptions(scenarioNow))
	stats := res.Stats

	assert.Equal(t, 2, res.TotalFiles)
	assert.Equal(t, 1, res.ProjectCount)

	require.Len(t, stats.DailyActivity, 1)
	assert.Equal(t, model.DailyActivity{
		Date:          "2025-06-01",
		MessageCount:  2,
		SessionCount:  1,
		ToolCallCount: 1,
	}, stats.DailyActivity[0])

	assert.Equal(t, uint64(15), stats.ModelUsage["claude-3"].OutputTokens)
	assert.Equal(t, []model.DailyModelTokens{
		{Date: "2025-06-01", TokensByModel: map[string]uint64{"claude-3": 15}},
	}, stats.DailyModelTokens)

	assert.Equal(t, uint64(2), stats.TotalMessages)
	assert.Equal(t, uint64(1), stats.TotalSessions)
	assert.Equal(t, map[string]uint64{"9": 2}, stats.HourCounts)
	require.NotNil(t, stats.FirstSessionDate)
	assert.Equal(t, "2025-06-01", *stats.FirstSessionDate)
	assert.Equal(t, &model.LongestSession{
		SessionID:    "A",
		Duration:     60_000,
		MessageCount: 2,
		Timestamp:    "2025-06-01T09:00:00Z",
	}, stats.LongestSession)
	assert.Equal(t, "2025-06-01", stats.LastComputedDate)
	assert.Equal(t, uint32(model.StatsCacheVersion), stats.Version)
	assert.Zero(t, stats.TotalSpeculationTimeSavedMs)
	assert.Zero(t, stats.ModelUsage["claude-3"].CostUSD)
}

func TestLoad_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root)
	writeLog(t, root, "other", "C",
		`{"type":"user","timestamp":"2025-05-30T23:59:00Z"}`,
		`{"type":"assistant","timestamp":"2025-05-31T00:10:00Z","message":{"model":"claude-4","usage":{"input_tokens":3,"output_tokens":4},"content":[{"type":"tool_use","name":"Bash"}]}}`,
	)

	first := Load(root, testOptions(scenarioNow)).Stats
	second := Load(root, testOptions(scenarioNow.Add(48*time.Hour))).Stats

	assert.NotEqual(t, first.LastComputedDate, second.LastComputedDate)
	second.LastComputedDate = first.LastComputedDate
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("recompute differs (-first +second):\n%s", diff)
	}
}

func TestLoad_EmptyRoot(t *testing.T) {
	res := Load(filepath.Join(t.TempDir(), "missing"), testOptions(scenarioNow))

	assert.Zero(t, res.TotalFiles)
	assert.Empty(t, res.Stats.DailyActivity)
	assert.NotNil(t, res.Stats.DailyActivity)
	assert.Nil(t, res.Stats.LongestSession)
	assert.Nil(t, res.Stats.FirstSessionDate)
	assert.Zero(t, res.Stats.TotalMessages)
}

func TestLoad_UserDedup(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "p", "s1",
		`{"type":"user","uuid":"dup","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z"}`,
		`{"type":"user","uuid":"dup","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z"}`,
	)
	writeLog(t, root, "p", "s2",
		`{"type":"user","uuid":"dup","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z"}`,
	)

	res := Load(root, testOptions(scenarioNow))
	assert.Equal(t, uint64(1), res.Stats.TotalMessages)
	assert.Equal(t, uint64(1), res.Stats.TotalSessions)
	require.Len(t, res.Stats.DailyActivity, 1)
	assert.Equal(t, uint64(1), res.Stats.DailyActivity[0].MessageCount)
	assert.Equal(t, uint64(1), res.Stats.DailyActivity[0].SessionCount)
	assert.Equal(t, map[string]uint64{"10": 1}, res.Stats.HourCounts)
	assert.Equal(t, uint64(1), res.Stats.LongestSession.MessageCount)
	assert.Equal(t, 2, res.Scan.DuplicateUsers)
}

func TestLoad_SyntheticIdentities(t *testing.T) {
	root := t.TempDir()
	// Without uuid or message id, each line is its own message.
	writeLog(t, root, "p", "s1",
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z"}`,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z"}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"usage":{"output_tokens":1}}}`,
	)

	res := Load(root, testOptions(scenarioNow))
	assert.Equal(t, uint64(3), res.Stats.TotalMessages)
	assert.Empty(t, res.Stats.ModelUsage, "messages without a model are not attributed")
	assert.Equal(t, []model.DailyModelTokens{
		{Date: "2025-06-01", TokensByModel: map[string]uint64{}},
	}, res.Stats.DailyModelTokens)
}

func TestLoad_MalformedLinesSkipped(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "p", "s1",
		`not json`,
		`{"type":"user","timestamp":"yesterday"}`,
		`{"type":"user"}`,
		`{"type":"progress","timestamp":"2025-06-01T10:00:00Z"}`,
		`{"type":"user","uuid":"ok","timestamp":"2025-06-01T10:00:00Z"}`,
	)

	res := Load(root, testOptions(scenarioNow))
	assert.Equal(t, uint64(1), res.Stats.TotalMessages)
	assert.Equal(t, 5, res.Scan.Lines)
	assert.Equal(t, 4, res.Scan.Skipped)
	assert.Equal(t, 1, res.Scan.Parsed)
}

func TestLoad_DatePartition(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "p", "s1",
		`{"type":"user","uuid":"a","timestamp":"2025-06-03T10:00:00Z"}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"id":"m1","model":"x","usage":{"output_tokens":2}}}`,
		`{"type":"assistant","timestamp":"2025-06-02T10:00:00Z","message":{"id":"m2","usage":{"output_tokens":2}}}`,
		`{"type":"user","uuid":"b","timestamp":"2025-06-01T11:00:00Z"}`,
	)

	stats := Load(root, testOptions(scenarioNow)).Stats

	var activityDates, tokenDates []string
	for _, d := range stats.DailyActivity {
		activityDates = append(activityDates, d.Date)
	}
	for _, d := range stats.DailyModelTokens {
		tokenDates = append(tokenDates, d.Date)
	}
	want := []string{"2025-06-01", "2025-06-02", "2025-06-03"}
	assert.Equal(t, want, activityDates)
	assert.Equal(t, want, tokenDates)
}

func TestLoad_LocalDateBucketing(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "p", "s1",
		`{"type":"user","uuid":"a","timestamp":"2025-06-01T22:30:00Z"}`,
	)

	opts := testOptions(scenarioNow)
	opts.Location = time.FixedZone("UTC+3", 3*60*60)
	stats := Load(root, opts).Stats

	require.Len(t, stats.DailyActivity, 1)
	assert.Equal(t, "2025-06-02", stats.DailyActivity[0].Date)
	assert.Equal(t, map[string]uint64{"1": 1}, stats.HourCounts)
	assert.Equal(t, "2025-06-02T01:30:00+03:00", stats.LongestSession.Timestamp)
}

func TestLoad_LongestSession(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "p", "short",
		`{"type":"user","uuid":"a","timestamp":"2025-06-01T10:00:00Z"}`,
		`{"type":"user","uuid":"b","timestamp":"2025-06-01T10:05:00Z"}`,
	)
	writeLog(t, root, "p", "zeta",
		`{"type":"user","uuid":"c","timestamp":"2025-06-02T10:00:00Z"}`,
		`{"type":"user","uuid":"d","timestamp":"2025-06-02T11:00:00Z"}`,
	)
	writeLog(t, root, "p", "alpha",
		`{"type":"user","uuid":"e","timestamp":"2025-06-03T10:00:00Z"}`,
		`{"type":"user","uuid":"f","timestamp":"2025-06-03T11:00:00Z"}`,
		`{"type":"user","uuid":"g","timestamp":"2025-06-03T10:30:00Z"}`,
	)

	stats := Load(root, testOptions(scenarioNow)).Stats
	require.NotNil(t, stats.LongestSession)
	assert.Equal(t, "alpha", stats.LongestSession.SessionID, "ties go to the smallest session id")
	assert.Equal(t, uint64(time.Hour.Milliseconds()), stats.LongestSession.Duration)
	assert.Equal(t, uint64(3), stats.LongestSession.MessageCount)
	assert.Equal(t, "2025-06-01", *stats.FirstSessionDate)
	assert.Equal(t, uint64(3), stats.TotalSessions)
}

func TestLoad_OversizeLinesSkipped(t *testing.T) {
	root := t.TempDir()
	big := `{"type":"user","uuid":"big","timestamp":"2025-06-01T10:00:00Z","pad":"` + strings.Repeat("x", 512) + `"}`
	writeLog(t, root, "p", "s1",
		big,
		`{"type":"user","uuid":"small","timestamp":"2025-06-01T10:00:00Z"}`,
	)

	opts := testOptions(scenarioNow)
	opts.Limits = source.Limits{MaxLineBytes: 256}
	res := Load(root, opts)

	assert.Equal(t, uint64(1), res.Stats.TotalMessages)
	assert.Equal(t, 1, res.Scan.Oversize)
}

func TestLoad_Progress(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root)

	var calls [][2]int
	opts := testOptions(scenarioNow)
	opts.Progress = func(current, total int) { calls = append(calls, [2]int{current, total}) }
	Load(root, opts)

	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}
