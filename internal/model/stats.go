// Package model defines the persisted stats cache document and the views derived from it.
package model

// StatsCacheVersion is the document version written by a full recompute.
const StatsCacheVersion = 1

// DateLayout is the calendar date format used for every date key.
const DateLayout = "2006-01-02"

// StatsCache is the pre-aggregated usage summary persisted as stats-cache.json.
type StatsCache struct {
	Version          uint32                `json:"version"`
	LastComputedDate string                `json:"lastComputedDate"`
	DailyActivity    []DailyActivity       `json:"dailyActivity"`
	DailyModelTokens []DailyModelTokens    `json:"dailyModelTokens"`
	ModelUsage       map[string]ModelUsage `json:"modelUsage"`
	TotalSessions    uint64                `json:"totalSessions"`
	TotalMessages    uint64                `json:"totalMessages"`
	LongestSession   *LongestSession       `json:"longestSession"`
	FirstSessionDate *string               `json:"firstSessionDate"`
	HourCounts       map[string]uint64     `json:"hourCounts"`

	// Not computed by the scanner; always zero after a recompute.
	TotalSpeculationTimeSavedMs uint64 `json:"totalSpeculationTimeSavedMs"`
}

// DailyActivity holds message, session and tool-call counts for one date.
type DailyActivity struct {
	Date          string `json:"date"`
	MessageCount  uint64 `json:"messageCount"`
	SessionCount  uint64 `json:"sessionCount"`
	ToolCallCount uint64 `json:"toolCallCount"`
}

// DailyModelTokens holds output tokens per model for one date.
type DailyModelTokens struct {
	Date          string            `json:"date"`
	TokensByModel map[string]uint64 `json:"tokensByModel"`
}

// ModelUsage is the cumulative usage of a single model.
// CostUSD, ContextWindow and MaxOutputTokens are filled by external sources only.
type ModelUsage struct {
	InputTokens              uint64  `json:"inputTokens"`
	OutputTokens             uint64  `json:"outputTokens"`
	CacheReadInputTokens     uint64  `json:"cacheReadInputTokens"`
	CacheCreationInputTokens uint64  `json:"cacheCreationInputTokens"`
	WebSearchRequests        uint64  `json:"webSearchRequests"`
	CostUSD                  float64 `json:"costUsd"`
	ContextWindow            uint64  `json:"contextWindow"`
	MaxOutputTokens          uint64  `json:"maxOutputTokens"`
}

// LongestSession describes the session with the widest timestamp window.
// Duration is in milliseconds; Timestamp is the session's first timestamp.
type LongestSession struct {
	SessionID    string `json:"sessionId"`
	Duration     uint64 `json:"duration"`
	MessageCount uint64 `json:"messageCount"`
	Timestamp    string `json:"timestamp"`
}

// ActivityOn returns the daily activity entry for date, if any.
func (s *StatsCache) ActivityOn(date string) (DailyActivity, bool) {
	for _, a := range s.DailyActivity {
		if a.Date == date {
			return a, true
		}
	}
	return DailyActivity{}, false
}

// TokensOn returns the per-model token map for date, if any.
func (s *StatsCache) TokensOn(date string) (map[string]uint64, bool) {
	for _, t := range s.DailyModelTokens {
		if t.Date == date {
			return t.TokensByModel, true
		}
	}
	return nil, false
}
