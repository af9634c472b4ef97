package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cstats/internal/config"
	"github.com/theirongolddev/cstats/internal/model"
	"github.com/theirongolddev/cstats/internal/source"
)

// syntheticRoot writes sessions × messages streaming assistant chunks.
func syntheticRoot(b *testing.B, sessions, messages int) string {
	b.Helper()
	root := b.TempDir()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for s := range sessions {
		dir := filepath.Join(root, "projects", fmt.Sprintf("-Users-me-projects-p%d", s%4))
		if err := os.MkdirAll(dir, 0o750); err != nil {
			b.Fatal(err)
		}
		var sb strings.Builder
		for m := range messages {
			ts := base.Add(time.Duration(s*messages+m) * time.Minute).Format(time.RFC3339)
			fmt.Fprintf(&sb, `{"type":"user","uuid":"u-%d-%d","timestamp":%q}`+"\n", s, m, ts)
			for chunk := 1; chunk <= 3; chunk++ {
				fmt.Fprintf(&sb, `{"type":"assistant","timestamp":%q,"message":{"id":"m-%d-%d","model":"claude-sonnet-4-5","usage":{"input_tokens":100,"output_tokens":%d},"content":[{"type":"tool_use","id":"t-%d-%d"}]}}`+"\n",
					ts, s, m, chunk*10, s, m)
			}
		}
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("s%d.jsonl", s)), []byte(sb.String()), 0o600); err != nil {
			b.Fatal(err)
		}
	}
	return root
}

func BenchmarkLoad(b *testing.B) {
	root := syntheticRoot(b, 50, 200)
	opts := Options{Location: time.UTC}

	b.ResetTimer()
	for range b.N {
		res := Load(root, opts)
		if res.Stats.TotalMessages != 50*200*2 {
			b.Fatalf("TotalMessages = %d", res.Stats.TotalMessages)
		}
	}
}

func BenchmarkParseLine(b *testing.B) {
	line := []byte(`{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","sessionId":"s","message":{"id":"m","model":"claude-sonnet-4-5","usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":1000},"content":[{"type":"text","text":"hello"},{"type":"tool_use","id":"t1","name":"Read","input":{"path":"/tmp/x"}}]}}`)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		if _, ok := source.ParseLine(line, "s", 0, time.UTC); !ok {
			b.Fatal("line rejected")
		}
	}
}

func TestEstimateModelCosts(t *testing.T) {
	cache := &model.StatsCache{
		ModelUsage: map[string]model.ModelUsage{
			"claude-opus-4-5-20251101": {InputTokens: 1_000_000},
			"claude-haiku-4-5":         {OutputTokens: 500_000},
			"mystery":                  {OutputTokens: 5},
		},
	}

	rows, totals := EstimateModelCosts(cache, config.DefaultConfig())
	require.Len(t, rows, 3)
	assert.Equal(t, "claude-opus-4-5-20251101", rows[0].Model)
	assert.InDelta(t, 5.0, rows[0].Cost, 1e-9)
	assert.Equal(t, "claude-haiku-4-5", rows[1].Model)
	assert.Equal(t, "mystery", rows[2].Model)
	assert.False(t, rows[2].Priced)
	assert.InDelta(t, 7.5, totals.Cost, 1e-9)
	assert.Equal(t, 1, totals.Unpriced)
	assert.Zero(t, cache.ModelUsage["claude-haiku-4-5"].CostUSD, "estimates never touch the cache")
}
