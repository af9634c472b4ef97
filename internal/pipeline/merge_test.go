package pipeline

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cstats/internal/source"
)

func assistantEvent(session, msgID string, at time.Time, model string, u source.Usage, tools ...string) source.Event {
	return source.Event{
		Kind:      source.KindAssistant,
		SessionID: session,
		MessageID: msgID,
		Model:     model,
		Usage:     u,
		ToolUses:  tools,
		Time:      at,
		TimeMs:    at.UnixMilli(),
	}
}

func userEvent(session, uuid string, at time.Time) source.Event {
	return source.Event{
		Kind:      source.KindUser,
		SessionID: session,
		UUID:      uuid,
		Time:      at,
		TimeMs:    at.UnixMilli(),
	}
}

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestIdentityChains(t *testing.T) {
	tests := []struct {
		name string
		ev   source.Event
		want string
	}{
		{"assistant message id", source.Event{Kind: source.KindAssistant, MessageID: "m", UUID: "u", SessionID: "s", Index: 4}, "m"},
		{"assistant uuid", source.Event{Kind: source.KindAssistant, UUID: "u", SessionID: "s", Index: 4}, "u"},
		{"assistant synthetic", source.Event{Kind: source.KindAssistant, SessionID: "s", Index: 4}, "s:4:assistant"},
		{"user ignores message id", source.Event{Kind: source.KindUser, MessageID: "m", UUID: "u", SessionID: "s"}, "u"},
		{"user synthetic", source.Event{Kind: source.KindUser, SessionID: "s", Index: 0}, "s:0:user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identityFor(tt.ev))
		})
	}
}

func TestAccumulator_AssistantMaxMerge(t *testing.T) {
	chunks := []source.Event{
		assistantEvent("A", "m1", t0, "", source.Usage{InputTokens: 100, OutputTokens: 1, CacheReadInputTokens: 50}, "id:t1"),
		assistantEvent("A", "m1", t0.Add(time.Second), "claude-3", source.Usage{InputTokens: 90, OutputTokens: 40, WebSearchRequests: 2}, "id:t1", "id:t2"),
		assistantEvent("A", "m1", t0.Add(2*time.Second), "", source.Usage{OutputTokens: 25, CacheCreationInputTokens: 7}, "anon:{}"),
	}

	acc := NewAccumulator(time.UTC)
	for _, ev := range chunks {
		acc.Add(ev)
	}

	m, ok := acc.Assistant("m1")
	require.True(t, ok)
	assert.Equal(t, source.Usage{
		InputTokens:              100,
		OutputTokens:             40,
		CacheReadInputTokens:     50,
		CacheCreationInputTokens: 7,
		WebSearchRequests:        2,
	}, m.Usage)
	assert.Equal(t, uint64(3), m.ToolCalls())
	assert.Equal(t, "claude-3", m.Model)
	assert.Equal(t, t0.UnixMilli(), m.TimestampMs, "first-seen placement")
	assert.Equal(t, 2, acc.Stats.MergedChunks)
	assert.Equal(t, 1, acc.Len())
}

func TestAccumulator_ModelLatestNonEmpty(t *testing.T) {
	acc := NewAccumulator(time.UTC)
	acc.Add(assistantEvent("A", "m", t0.Add(time.Minute), "claude-sonnet", source.Usage{}))
	acc.Add(assistantEvent("A", "m", t0, "claude-haiku", source.Usage{}))
	acc.Add(assistantEvent("A", "m", t0.Add(2*time.Minute), "", source.Usage{}))

	m, _ := acc.Assistant("m")
	assert.Equal(t, "claude-sonnet", m.Model)
}

func TestAccumulator_FirstSeenPlacement(t *testing.T) {
	acc := NewAccumulator(time.UTC)
	// A copy written later under another session must not move the message.
	acc.Add(assistantEvent("B", "m", t0.Add(24*time.Hour), "x", source.Usage{}))
	acc.Add(assistantEvent("A", "m", t0, "x", source.Usage{}))

	m, _ := acc.Assistant("m")
	assert.Equal(t, "A", m.SessionID)
	assert.Equal(t, "2025-06-01", m.Date)
	assert.Equal(t, 9, m.Hour)
}

// TestAccumulator_OrderIndependent feeds the same events in many orders,
// split across two accumulators, and expects identical summaries.
func TestAccumulator_OrderIndependent(t *testing.T) {
	events := []source.Event{
		userEvent("A", "u1", t0),
		userEvent("B", "u1", t0),
		userEvent("A", "u2", t0.Add(time.Hour)),
		assistantEvent("A", "m1", t0.Add(time.Minute), "claude-3", source.Usage{OutputTokens: 10}, "id:t1"),
		assistantEvent("B", "m1", t0.Add(time.Minute), "claude-3", source.Usage{OutputTokens: 15}),
		assistantEvent("A", "m1", t0.Add(2*time.Minute), "claude-3-5", source.Usage{InputTokens: 4}, "id:t1", "id:t9"),
		assistantEvent("C", "m2", t0.Add(25*time.Hour), "claude-4", source.Usage{OutputTokens: 3}),
	}

	want := Summarize(buildAccumulator(events), t0)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 50 {
		shuffled := append([]source.Event(nil), events...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		split := i % len(shuffled)
		left := buildAccumulator(shuffled[:split])
		left.Merge(buildAccumulator(shuffled[split:]))

		if diff := cmp.Diff(want, Summarize(left, t0)); diff != "" {
			t.Fatalf("order %d changed the summary (-want +got):\n%s", i, diff)
		}
	}
}

func buildAccumulator(events []source.Event) *Accumulator {
	acc := NewAccumulator(time.UTC)
	for _, ev := range events {
		acc.Add(ev)
	}
	return acc
}

func TestAccumulator_MergeLeavesSourceUnchanged(t *testing.T) {
	a := NewAccumulator(time.UTC)
	a.Add(assistantEvent("A", "m", t0, "x", source.Usage{OutputTokens: 1}, "id:a"))
	b := NewAccumulator(time.UTC)
	b.Add(assistantEvent("A", "m", t0, "x", source.Usage{OutputTokens: 9}, "id:b"))

	a.Merge(b)
	a.Add(assistantEvent("A", "m", t0, "x", source.Usage{}, "id:c"))

	mb, _ := b.Assistant("m")
	assert.Equal(t, uint64(1), mb.ToolCalls())
	assert.Equal(t, uint64(9), mb.Usage.OutputTokens)

	ma, _ := a.Assistant("m")
	assert.Equal(t, uint64(3), ma.ToolCalls())
	assert.Equal(t, uint64(9), ma.Usage.OutputTokens)
}

func TestSummarizeDay(t *testing.T) {
	acc := NewAccumulator(time.UTC)
	acc.Add(userEvent("A", "u1", t0))
	acc.Add(assistantEvent("A", "m1", t0.Add(time.Minute), "claude-3", source.Usage{OutputTokens: 10}, "id:t1"))
	acc.Add(assistantEvent("B", "m2", t0.Add(time.Minute), "claude-4", source.Usage{OutputTokens: 5}))
	acc.Add(userEvent("C", "u2", t0.Add(-24*time.Hour)))

	got := SummarizeDay(acc, "2025-06-01")
	assert.Equal(t, "2025-06-01", got.Date)
	assert.Equal(t, uint64(15), got.TotalTokens)
	assert.Equal(t, map[string]uint64{"claude-3": 10, "claude-4": 5}, got.TokensByModel)
	assert.Equal(t, uint64(3), got.Messages)
	assert.Equal(t, uint64(2), got.Sessions)
	assert.Equal(t, uint64(1), got.ToolCalls)

	empty := SummarizeDay(acc, "2030-01-01")
	assert.True(t, empty.IsZero())
	assert.NotNil(t, empty.TokensByModel)
}
