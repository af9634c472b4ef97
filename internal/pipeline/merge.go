package pipeline

import (
	"time"

	"github.com/theirongolddev/cstats/internal/model"
	"github.com/theirongolddev/cstats/internal/source"
)

// observation holds the first-seen placement of a message.
type observation struct {
	SessionID   string
	Date        string
	Hour        int
	TimestampMs int64
	Timestamp   string // RFC 3339 in the accumulator's location
}

// earlier orders observations by time, then by session id, so the chosen
// first-seen placement does not depend on scan order.
func (o observation) earlier(than observation) bool {
	if o.TimestampMs != than.TimestampMs {
		return o.TimestampMs < than.TimestampMs
	}
	return o.SessionID < than.SessionID
}

// UserMessage is the canonical record of one user turn.
type UserMessage struct {
	ID string
	observation
}

// AssistantMessage is the canonical record of one assistant message, merged
// from every streaming chunk or re-written copy sharing its identity.
type AssistantMessage struct {
	ID string
	observation

	Model      string
	modelAtMs  int64
	Usage      source.Usage
	ToolUseIDs map[string]struct{}
}

// ToolCalls is the number of distinct tool invocations in the message.
func (m *AssistantMessage) ToolCalls() uint64 {
	return uint64(len(m.ToolUseIDs))
}

// ScanStats counts what a scan read and dropped.
type ScanStats struct {
	Files          int `json:"files"`
	Lines          int `json:"lines"`
	Parsed         int `json:"parsed"`
	Skipped        int `json:"skipped"` // malformed, untimestamped or ignored record types
	Oversize       int `json:"oversize"`
	DuplicateUsers int `json:"duplicateUsers"`
	MergedChunks   int `json:"mergedChunks"` // assistant observations folded into an existing message
}

// Accumulator collects canonical user and assistant messages. It owns all of
// its maps, so independent accumulators can be filled concurrently and
// combined with Merge. An Accumulator is not safe for concurrent use.
//
// Every merge rule is commutative and associative:
//   - counters take the maximum observed value
//   - tool invocations are a set union of identity keys
//   - model is the non-empty value of the latest observation
//   - first-seen placement comes from the earliest observation
//
// so the result does not depend on the order files or lines are scanned in.
type Accumulator struct {
	loc        *time.Location
	users      map[string]*UserMessage
	assistants map[string]*AssistantMessage
	Stats      ScanStats
}

// NewAccumulator returns an empty accumulator bucketing dates and hours in
// loc (time.Local when nil).
func NewAccumulator(loc *time.Location) *Accumulator {
	if loc == nil {
		loc = time.Local
	}
	return &Accumulator{
		loc:        loc,
		users:      make(map[string]*UserMessage),
		assistants: make(map[string]*AssistantMessage),
	}
}

// Location returns the time zone used for date and hour bucketing.
func (a *Accumulator) Location() *time.Location { return a.loc }

// Add folds one parsed event into the accumulator.
func (a *Accumulator) Add(ev source.Event) {
	ts := ev.Time.In(a.loc)
	obs := observation{
		SessionID:   ev.SessionID,
		Date:        ts.Format(model.DateLayout),
		Hour:        ts.Hour(),
		TimestampMs: ev.TimeMs,
		Timestamp:   ts.Format(time.RFC3339Nano),
	}
	id := identityFor(ev)

	switch ev.Kind {
	case source.KindUser:
		a.addUser(&UserMessage{ID: id, observation: obs})
	case source.KindAssistant:
		msg := &AssistantMessage{
			ID:          id,
			observation: obs,
			Usage:       ev.Usage,
			ToolUseIDs:  make(map[string]struct{}, len(ev.ToolUses)),
		}
		if ev.Model != "" {
			msg.Model = ev.Model
			msg.modelAtMs = ev.TimeMs
		}
		for _, k := range ev.ToolUses {
			msg.ToolUseIDs[k] = struct{}{}
		}
		a.addAssistant(msg)
	}
}

// Merge folds every message of other into a. other is left unchanged. Both
// accumulators must use the same location.
func (a *Accumulator) Merge(other *Accumulator) {
	for _, u := range other.users {
		a.addUser(u)
	}
	for _, m := range other.assistants {
		a.addAssistant(m)
	}
	a.Stats.Files += other.Stats.Files
	a.Stats.Lines += other.Stats.Lines
	a.Stats.Parsed += other.Stats.Parsed
	a.Stats.Skipped += other.Stats.Skipped
	a.Stats.Oversize += other.Stats.Oversize
	a.Stats.DuplicateUsers += other.Stats.DuplicateUsers
	a.Stats.MergedChunks += other.Stats.MergedChunks
}

// addUser keeps one record per identity. A repeated identity adds nothing;
// only the earliest placement is retained.
func (a *Accumulator) addUser(u *UserMessage) {
	cur, ok := a.users[u.ID]
	if !ok {
		a.users[u.ID] = u
		return
	}
	a.Stats.DuplicateUsers++
	if u.earlier(cur.observation) {
		a.users[u.ID] = &UserMessage{ID: u.ID, observation: u.observation}
	}
}

func (a *Accumulator) addAssistant(m *AssistantMessage) {
	cur, ok := a.assistants[m.ID]
	if !ok {
		a.assistants[m.ID] = cloneAssistant(m)
		return
	}
	a.Stats.MergedChunks++

	if m.earlier(cur.observation) {
		cur.observation = m.observation
	}
	if m.Model != "" && (cur.Model == "" || m.modelAtMs > cur.modelAtMs ||
		(m.modelAtMs == cur.modelAtMs && m.Model > cur.Model)) {
		cur.Model = m.Model
		cur.modelAtMs = m.modelAtMs
	}

	cur.Usage.InputTokens = max(cur.Usage.InputTokens, m.Usage.InputTokens)
	cur.Usage.OutputTokens = max(cur.Usage.OutputTokens, m.Usage.OutputTokens)
	cur.Usage.CacheReadInputTokens = max(cur.Usage.CacheReadInputTokens, m.Usage.CacheReadInputTokens)
	cur.Usage.CacheCreationInputTokens = max(cur.Usage.CacheCreationInputTokens, m.Usage.CacheCreationInputTokens)
	cur.Usage.WebSearchRequests = max(cur.Usage.WebSearchRequests, m.Usage.WebSearchRequests)

	for k := range m.ToolUseIDs {
		cur.ToolUseIDs[k] = struct{}{}
	}
}

func cloneAssistant(m *AssistantMessage) *AssistantMessage {
	c := *m
	c.ToolUseIDs = make(map[string]struct{}, len(m.ToolUseIDs))
	for k := range m.ToolUseIDs {
		c.ToolUseIDs[k] = struct{}{}
	}
	return &c
}

// Users returns the canonical user messages in unspecified order.
func (a *Accumulator) Users() []*UserMessage {
	out := make([]*UserMessage, 0, len(a.users))
	for _, u := range a.users {
		out = append(out, u)
	}
	return out
}

// Assistants returns the canonical assistant messages in unspecified order.
func (a *Accumulator) Assistants() []*AssistantMessage {
	out := make([]*AssistantMessage, 0, len(a.assistants))
	for _, m := range a.assistants {
		out = append(out, m)
	}
	return out
}

// Assistant returns the canonical message with the given identity.
func (a *Accumulator) Assistant(id string) (*AssistantMessage, bool) {
	m, ok := a.assistants[id]
	return m, ok
}

// Len returns the number of canonical messages (users + assistants).
func (a *Accumulator) Len() int {
	return len(a.users) + len(a.assistants)
}
