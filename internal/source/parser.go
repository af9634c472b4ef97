// Package source locates Claude Code session logs and parses their records.
package source

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ParseLine turns one session log line into an Event. It reports false for
// lines that are not user or assistant records, are not valid JSON, or lack an
// interpretable timestamp. fallbackSession is used when the record carries no
// sessionId; index is the line's position in its file.
//
// Entry routing by top-level "type" field:
//   - "user"      → uuid, session, timestamp
//   - "assistant" → plus message id, model, usage counters and tool_use blocks
//   - everything else → skipped before any JSON decoding
func ParseLine(line []byte, fallbackSession string, index int, loc *time.Location) (Event, bool) {
	if extractTopLevelType(line) == "" {
		return Event{}, false
	}

	var entry RawEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return Event{}, false
	}

	var kind Kind
	switch entry.Type {
	case "user":
		kind = KindUser
	case "assistant":
		kind = KindAssistant
	default:
		return Event{}, false
	}

	ts, ok := ParseTimestamp(string(entry.Timestamp), loc)
	if !ok {
		return Event{}, false
	}

	ev := Event{
		Kind:      kind,
		SessionID: string(entry.SessionID),
		UUID:      string(entry.UUID),
		Time:      ts,
		TimeMs:    ts.UnixMilli(),
		Index:     index,
	}
	if ev.SessionID == "" {
		ev.SessionID = fallbackSession
	}

	if kind == KindAssistant && isJSONObject(entry.Message) {
		var msg RawMessage
		if err := json.Unmarshal(entry.Message, &msg); err == nil {
			ev.MessageID = string(msg.ID)
			ev.Model = string(msg.Model)
			ev.Usage = decodeUsage(msg.Usage)
			ev.ToolUses = toolUseKeys(msg.Content)
		}
	}

	return ev, true
}

// ParseTimestamp parses an RFC 3339 timestamp with a zone offset and converts
// it to loc (time.Local when nil).
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc), true
}

func decodeUsage(raw json.RawMessage) Usage {
	if !isJSONObject(raw) {
		return Usage{}
	}
	var u RawUsage
	if err := json.Unmarshal(raw, &u); err != nil {
		return Usage{}
	}

	webSearch := uint64(u.WebSearchRequests)
	if isJSONObject(u.ServerToolUse) {
		var st RawServerTool
		if err := json.Unmarshal(u.ServerToolUse, &st); err == nil {
			webSearch = max(webSearch, uint64(st.WebSearchRequests))
		}
	}

	return Usage{
		InputTokens:              uint64(u.InputTokens),
		OutputTokens:             uint64(u.OutputTokens),
		CacheReadInputTokens:     uint64(u.CacheReadInputTokens),
		CacheCreationInputTokens: uint64(u.CacheCreationInputTokens),
		WebSearchRequests:        webSearch,
	}
}

// toolUseKeys returns one identity key per tool_use block in content.
func toolUseKeys(content json.RawMessage) []string {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var blocks []json.RawMessage
	if err := json.Unmarshal(trimmed, &blocks); err != nil {
		return nil
	}

	var keys []string
	for _, raw := range blocks {
		if !isJSONObject(raw) {
			continue
		}
		var b rawBlock
		if err := json.Unmarshal(raw, &b); err != nil || b.Type != "tool_use" {
			continue
		}
		if b.ID != "" {
			keys = append(keys, "id:"+string(b.ID))
			continue
		}
		keys = append(keys, "anon:"+canonicalJSON(raw))
	}
	return keys
}

// canonicalJSON re-encodes raw with sorted object keys and no insignificant
// whitespace, so re-emitted blocks map to the same key regardless of layout.
func canonicalJSON(raw json.RawMessage) string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return strings.TrimSpace(string(raw))
	}
	out, err := json.Marshal(v)
	if err != nil {
		return strings.TrimSpace(string(raw))
	}
	return string(out)
}

// typeKey is the byte sequence for a JSON key named "type" (with quotes).
var typeKey = []byte(`"type"`)

// extractTopLevelType finds the top-level "type" field in a JSONL line.
// Tracks brace depth and string boundaries so nested "type" keys are ignored.
// Early-exits once found (~400 bytes in), making cost O(1) vs line length.
func extractTopLevelType(line []byte) string {
	depth := 0
	for i := 0; i < len(line); {
		switch line[i] {
		case '"':
			if depth == 1 && bytes.HasPrefix(line[i:], typeKey) {
				val, isKey := classifyType(line, i+len(typeKey))
				if isKey {
					return val
				}
			}
			i = skipJSONString(line, i)
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
		default:
			i++
		}
	}
	return ""
}

// classifyType checks whether pos follows a JSON key (expects : then value).
// Returns the type value and whether this was a valid key:value pair.
// isKey=false means "type" appeared as a value, not a key; the caller keeps scanning.
func classifyType(line []byte, pos int) (val string, isKey bool) {
	i := skipSpaces(line, pos)
	if i >= len(line) || line[i] != ':' {
		return "", false
	}
	i = skipSpaces(line, i+1)
	if i >= len(line) || line[i] != '"' {
		return "", true // key with non-string value (null, number, etc.)
	}
	i++

	end := bytes.IndexByte(line[i:], '"')
	if end < 0 || end > 20 {
		return "", true
	}
	v := string(line[i : i+end])
	switch v {
	case "assistant", "user":
		return v, true
	}
	return "", true // valid key but irrelevant type (e.g., "progress", "system")
}

// skipJSONString advances past a JSON string starting at the opening quote.
//
//nolint:gosec // manual bounds checking throughout
func skipJSONString(line []byte, i int) int {
	i++ // skip opening quote
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

func skipSpaces(line []byte, i int) int {
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return i
}
