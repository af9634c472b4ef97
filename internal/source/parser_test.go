package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSession creates a temp JSONL file and returns a DiscoveredFile for it.
func writeSession(t *testing.T, lines ...string) DiscoveredFile {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test-session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return DiscoveredFile{
		Path:      path,
		SessionID: "test-session",
		Project:   "test-project",
	}
}

func TestParseLine_User(t *testing.T) {
	ev, ok := ParseLine([]byte(`{"type":"user","timestamp":"2025-06-01T10:00:00Z","sessionId":"s1","uuid":"u1","cwd":"/tmp/proj"}`), "file", 3, time.UTC)
	require.True(t, ok)

	assert.Equal(t, KindUser, ev.Kind)
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, "u1", ev.UUID)
	assert.Equal(t, 3, ev.Index)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), ev.Time)
	assert.Equal(t, int64(1748772000000), ev.TimeMs)
}

func TestParseLine_FallbackSession(t *testing.T) {
	ev, ok := ParseLine([]byte(`{"type":"user","timestamp":"2025-06-01T10:00:00Z"}`), "from-file", 0, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "from-file", ev.SessionID)

	// A non-string sessionId counts as absent.
	ev, ok = ParseLine([]byte(`{"type":"user","timestamp":"2025-06-01T10:00:00Z","sessionId":42}`), "from-file", 0, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "from-file", ev.SessionID)
}

func TestParseLine_Assistant(t *testing.T) {
	line := `{"type":"assistant","timestamp":"2025-06-01T10:01:00+02:00","sessionId":"A","uuid":"u2",` +
		`"message":{"id":"m1","model":"claude-3","usage":{"input_tokens":100,"output_tokens":10,` +
		`"cache_read_input_tokens":500,"cache_creation_input_tokens":20,"web_search_requests":1,` +
		`"server_tool_use":{"web_search_requests":3}},` +
		`"content":[{"type":"text","text":"hi"},{"type":"tool_use","id":"t1","name":"Read"},{"type":"tool_use","name":"Bash","input":{"b":1,"a":2}}]}}`

	ev, ok := ParseLine([]byte(line), "file", 7, time.UTC)
	require.True(t, ok)

	assert.Equal(t, KindAssistant, ev.Kind)
	assert.Equal(t, "m1", ev.MessageID)
	assert.Equal(t, "claude-3", ev.Model)
	assert.Equal(t, Usage{
		InputTokens:              100,
		OutputTokens:             10,
		CacheReadInputTokens:     500,
		CacheCreationInputTokens: 20,
		WebSearchRequests:        3,
	}, ev.Usage)
	assert.Equal(t, []string{
		"id:t1",
		`anon:{"input":{"a":2,"b":1},"name":"Bash","type":"tool_use"}`,
	}, ev.ToolUses)
	assert.Equal(t, 8, ev.Time.Hour(), "converted to the requested location")
}

func TestParseLine_LocalConversion(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	ev, ok := ParseLine([]byte(`{"type":"user","timestamp":"2025-06-01T20:30:00Z"}`), "s", 0, tokyo)
	require.True(t, ok)

	assert.Equal(t, "2025-06-02", ev.Time.Format("2006-01-02"))
	assert.Equal(t, 5, ev.Time.Hour())
}

func TestParseLine_Skips(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `not json at all`},
		{"broken json", `{"type":"assistant","broken json`},
		{"other type", `{"type":"progress","timestamp":"2025-06-01T10:00:00Z"}`},
		{"system", `{"type":"system","timestamp":"2025-06-01T10:00:00Z"}`},
		{"missing timestamp", `{"type":"user"}`},
		{"timestamp without offset", `{"type":"user","timestamp":"2025-06-01T10:00:00"}`},
		{"non-string timestamp", `{"type":"user","timestamp":1748772000000}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseLine([]byte(tt.line), "s", 0, time.UTC)
			assert.False(t, ok)
		})
	}
}

func TestParseLine_LenientPayload(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		check func(t *testing.T, ev Event)
	}{
		{
			name: "message not an object",
			line: `{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","uuid":"u","message":"oops"}`,
			check: func(t *testing.T, ev Event) {
				assert.Empty(t, ev.MessageID)
				assert.Equal(t, "u", ev.UUID)
			},
		},
		{
			name: "negative and string counters",
			line: `{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"id":"m","usage":{"input_tokens":-4,"output_tokens":"12"}}}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, "m", ev.MessageID)
				assert.Zero(t, ev.Usage.InputTokens)
				assert.Zero(t, ev.Usage.OutputTokens)
			},
		},
		{
			name: "content not an array",
			line: `{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"id":"m","content":"text"}}`,
			check: func(t *testing.T, ev Event) {
				assert.Empty(t, ev.ToolUses)
			},
		},
		{
			name: "server tool use not an object",
			line: `{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"id":"m","usage":{"output_tokens":7,"server_tool_use":[1]}}}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, uint64(7), ev.Usage.OutputTokens)
				assert.Zero(t, ev.Usage.WebSearchRequests)
			},
		},
		{
			name: "tool_use with empty id",
			line: `{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"id":"m","content":[{"type":"tool_use","id":""}]}}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, []string{`anon:{"id":"","type":"tool_use"}`}, ev.ToolUses)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ParseLine([]byte(tt.line), "s", 0, time.UTC)
			require.True(t, ok)
			tt.check(t, ev)
		})
	}
}

func TestCanonicalJSON_LayoutIndependent(t *testing.T) {
	a := canonicalJSON([]byte(`{"type":"tool_use", "input": {"x": 1.50, "y": [1, 2]}}`))
	b := canonicalJSON([]byte(`{"input":{"y":[1,2],"x":1.50},"type":"tool_use"}`))
	assert.Equal(t, a, b)
	assert.Contains(t, a, "1.50", "numbers keep their literal form")
}

func TestExtractTopLevelType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"user", `{"type":"user","foo":"bar"}`, "user"},
		{"assistant", `{"type":"assistant","message":{}}`, "assistant"},
		{"system ignored", `{"type": "system","subtype":"turn_duration"}`, ""},
		{"nested type ignored", `{"data":{"type":"progress"},"type":"user"}`, "user"},
		{"type as value", `{"kind":"type","type":"assistant"}`, "assistant"},
		{"unknown type", `{"type":"progress","data":{}}`, ""},
		{"no type field", `{"message":"hello"}`, ""},
		{"empty", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTopLevelType([]byte(tt.input))
			if got != tt.want {
				t.Errorf("extractTopLevelType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// FuzzExtractTopLevelType tests that the byte-level parser never panics
// on arbitrary input, which is important since it processes untrusted files.
func FuzzExtractTopLevelType(f *testing.F) {
	f.Add([]byte(`{"type":"user","timestamp":"2025-06-01T10:00:00Z"}`))
	f.Add([]byte(`{"type":"assistant","message":{"id":"x","usage":{}}}`))
	f.Add([]byte(`{"type":"system","subtype":"turn_duration","durationMs":5000}`))
	f.Add([]byte(`{"data":{"type":"nested"},"type":"user"}`))
	f.Add([]byte(`not json`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"type":null}`))
	f.Add([]byte(`{"type":123}`))
	f.Add([]byte(``))
	f.Add([]byte(`{"type":"user`)) // unterminated string
	f.Add([]byte(`{"a":"\`))

	f.Fuzz(func(t *testing.T, data []byte) {
		result := extractTopLevelType(data)

		switch result {
		case "", "user", "assistant":
		default:
			t.Errorf("unexpected type %q from input %q", result, data)
		}
	})
}

// FuzzParseLine checks that arbitrary input never panics the full parser.
func FuzzParseLine(f *testing.F) {
	f.Add([]byte(`{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"content":[{"type":"tool_use"}]}}`))
	f.Add([]byte(`{"type":"user","timestamp":"x"}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		ev, ok := ParseLine(data, "s", 0, time.UTC)
		if ok && ev.SessionID == "" {
			t.Errorf("parsed event without session id from %q", data)
		}
	})
}
