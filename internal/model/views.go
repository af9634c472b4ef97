package model

// TodaySummary is the narrow "today" view used by status surfaces.
type TodaySummary struct {
	Date          string            `json:"date"`
	TotalTokens   uint64            `json:"totalTokens"`
	TokensByModel map[string]uint64 `json:"tokensByModel"`
	Messages      uint64            `json:"messages"`
	Sessions      uint64            `json:"sessions"`
	ToolCalls     uint64            `json:"toolCalls"`
}

// IsZero reports whether the summary carries no activity.
func (t TodaySummary) IsZero() bool {
	return t.TotalTokens == 0 && t.Messages == 0 && t.Sessions == 0 && t.ToolCalls == 0
}

// DailyTokenTotal is one point of the daily output-token series.
type DailyTokenTotal struct {
	Date    string            `json:"date"`
	Total   uint64            `json:"total"`
	ByModel map[string]uint64 `json:"byModel"`
}

// HistoryEntry is one line of the chronological activity log.
type HistoryEntry struct {
	Display   string `json:"display"`
	Timestamp uint64 `json:"timestamp"`
	Project   string `json:"project,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}
