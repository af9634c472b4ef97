package source

import (
	"bytes"
	"encoding/json"
	"time"
)

// RawEntry is the top-level shape of a session log line. Only the fields the
// aggregation needs are decoded; message is decoded separately so a malformed
// message body does not discard the line.
type RawEntry struct {
	Type      looseString     `json:"type"`
	Timestamp looseString     `json:"timestamp"`
	SessionID looseString     `json:"sessionId"`
	UUID      looseString     `json:"uuid"`
	Message   json.RawMessage `json:"message,omitempty"`
}

// RawMessage represents the assistant's message envelope.
type RawMessage struct {
	ID      looseString     `json:"id"`
	Model   looseString     `json:"model"`
	Usage   json.RawMessage `json:"usage,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// RawUsage holds token counts from the API response.
type RawUsage struct {
	InputTokens              looseCount      `json:"input_tokens"`
	OutputTokens             looseCount      `json:"output_tokens"`
	CacheCreationInputTokens looseCount      `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     looseCount      `json:"cache_read_input_tokens"`
	WebSearchRequests        looseCount      `json:"web_search_requests"`
	ServerToolUse            json.RawMessage `json:"server_tool_use,omitempty"`
}

// RawServerTool holds server-side tool counters.
type RawServerTool struct {
	WebSearchRequests looseCount `json:"web_search_requests"`
}

// rawBlock is a content block; only the type and id are inspected, the raw
// bytes are kept for the content-derived fallback identity.
type rawBlock struct {
	Type looseString `json:"type"`
	ID   looseString `json:"id"`
}

// Usage holds the token counters of one assistant observation.
type Usage struct {
	InputTokens              uint64
	OutputTokens             uint64
	CacheReadInputTokens     uint64
	CacheCreationInputTokens uint64
	WebSearchRequests        uint64
}

// Kind discriminates parsed events.
type Kind uint8

const (
	KindUser Kind = iota + 1
	KindAssistant
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAssistant:
		return "assistant"
	}
	return "unknown"
}

// Event is one parsed, partially validated log record.
type Event struct {
	Kind      Kind
	SessionID string
	UUID      string
	MessageID string
	Model     string
	Usage     Usage
	// ToolUses holds one identity key per tool_use block: "id:<id>", or
	// "anon:<compact block JSON>" when the block has no id.
	ToolUses []string
	Time     time.Time // local time
	TimeMs   int64
	Index    int // physical line number within the file
}

// DiscoveredFile represents a session log found under the projects directory.
type DiscoveredFile struct {
	Path       string
	Project    string // decoded display name (e.g., "gitlore")
	ProjectDir string // raw directory name
	SessionID  string // file base name without suffix
}

// HistoryRecord is one decoded line of history.jsonl.
type HistoryRecord struct {
	Display   looseString `json:"display"`
	Timestamp looseCount  `json:"timestamp"`
	Project   looseString `json:"project"`
	SessionID looseString `json:"sessionId"`
}

// looseString decodes JSON strings and treats every other value as empty.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil //nolint:nilerr // non-string values are treated as absent
	}
	*s = looseString(v)
	return nil
}

// looseCount decodes non-negative JSON integers and treats every other value as 0.
type looseCount uint64

func (c *looseCount) UnmarshalJSON(data []byte) error {
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		*c = 0
		return nil //nolint:nilerr // non-integer values count as zero
	}
	*c = looseCount(v)
	return nil
}

// isJSONObject reports whether raw holds a JSON object.
func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
