// Package pipeline turns parsed session events into canonical messages and
// folds them into the stats cache and its derived views.
package pipeline

import (
	"slices"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/theirongolddev/cstats/internal/model"
)

// sessionAgg tracks the timestamp window of one session.
type sessionAgg struct {
	firstMs  int64
	firstISO string
	lastMs   int64
	messages uint64
}

func (s *sessionAgg) observe(o observation) {
	if s.messages == 0 || o.TimestampMs < s.firstMs {
		s.firstMs = o.TimestampMs
		s.firstISO = o.Timestamp
	}
	if s.messages == 0 || o.TimestampMs > s.lastMs {
		s.lastMs = o.TimestampMs
	}
	s.messages++
}

// durationMs is latest - earliest, floored at zero.
func (s *sessionAgg) durationMs() uint64 {
	if s.lastMs <= s.firstMs {
		return 0
	}
	return uint64(s.lastMs - s.firstMs)
}

// dayAgg holds the per-date counters of daily activity.
type dayAgg struct {
	messages  uint64
	toolCalls uint64
	sessions  map[string]struct{}
}

type fold struct {
	days        map[string]*dayAgg
	modelTokens map[string]map[string]uint64
	modelUsage  map[string]model.ModelUsage
	hours       map[string]uint64
	sessions    map[string]*sessionAgg
}

func newFold() *fold {
	return &fold{
		days:        make(map[string]*dayAgg),
		modelTokens: make(map[string]map[string]uint64),
		modelUsage:  make(map[string]model.ModelUsage),
		hours:       make(map[string]uint64),
		sessions:    make(map[string]*sessionAgg),
	}
}

func (f *fold) message(o observation) *dayAgg {
	day, ok := f.days[o.Date]
	if !ok {
		day = &dayAgg{sessions: make(map[string]struct{})}
		f.days[o.Date] = day
	}
	day.messages++
	day.sessions[o.SessionID] = struct{}{}
	f.hours[strconv.Itoa(o.Hour)]++

	s, ok := f.sessions[o.SessionID]
	if !ok {
		s = &sessionAgg{}
		f.sessions[o.SessionID] = s
	}
	s.observe(o)
	return day
}

func (f *fold) assistant(m *AssistantMessage) {
	day := f.message(m.observation)
	day.toolCalls += m.ToolCalls()

	if m.Model == "" {
		return
	}
	byModel, ok := f.modelTokens[m.Date]
	if !ok {
		byModel = make(map[string]uint64)
		f.modelTokens[m.Date] = byModel
	}
	byModel[m.Model] += m.Usage.OutputTokens

	mu := f.modelUsage[m.Model]
	mu.InputTokens += m.Usage.InputTokens
	mu.OutputTokens += m.Usage.OutputTokens
	mu.CacheReadInputTokens += m.Usage.CacheReadInputTokens
	mu.CacheCreationInputTokens += m.Usage.CacheCreationInputTokens
	mu.WebSearchRequests += m.Usage.WebSearchRequests
	f.modelUsage[m.Model] = mu
}

func foldAll(acc *Accumulator) *fold {
	f := newFold()
	for _, u := range acc.users {
		f.message(u.observation)
	}
	for _, m := range acc.assistants {
		f.assistant(m)
	}
	return f
}

// Summarize folds the canonical messages of acc into a complete stats cache.
// now only sets lastComputedDate.
func Summarize(acc *Accumulator, now time.Time) model.StatsCache {
	f := foldAll(acc)

	// Every date with a message; model-token dates are a subset.
	dates := lo.Keys(f.days)
	slices.Sort(dates)

	cache := model.StatsCache{
		Version:          model.StatsCacheVersion,
		LastComputedDate: now.In(acc.loc).Format(model.DateLayout),
		DailyActivity:    make([]model.DailyActivity, 0, len(dates)),
		DailyModelTokens: make([]model.DailyModelTokens, 0, len(dates)),
		ModelUsage:       f.modelUsage,
		TotalSessions:    uint64(len(f.sessions)),
		TotalMessages:    uint64(len(acc.users) + len(acc.assistants)),
		HourCounts:       f.hours,
	}

	for _, date := range dates {
		day := f.days[date]
		cache.DailyActivity = append(cache.DailyActivity, model.DailyActivity{
			Date:          date,
			MessageCount:  day.messages,
			SessionCount:  uint64(len(day.sessions)),
			ToolCallCount: day.toolCalls,
		})

		tokens := f.modelTokens[date]
		if tokens == nil {
			tokens = map[string]uint64{}
		}
		cache.DailyModelTokens = append(cache.DailyModelTokens, model.DailyModelTokens{
			Date:          date,
			TokensByModel: tokens,
		})
	}

	cache.LongestSession, cache.FirstSessionDate = sessionExtremes(f.sessions, acc.loc)
	return cache
}

// sessionExtremes finds the longest session (ties go to the smallest session
// id) and the earliest calendar date any session started on.
func sessionExtremes(sessions map[string]*sessionAgg, loc *time.Location) (*model.LongestSession, *string) {
	var longest *model.LongestSession
	var first *string

	for id, s := range sessions {
		date := time.UnixMilli(s.firstMs).In(loc).Format(model.DateLayout)
		if first == nil || date < *first {
			first = &date
		}

		d := s.durationMs()
		if longest == nil || d > longest.Duration || (d == longest.Duration && id < longest.SessionID) {
			longest = &model.LongestSession{
				SessionID:    id,
				Duration:     d,
				MessageCount: s.messages,
				Timestamp:    s.firstISO,
			}
		}
	}
	return longest, first
}

// SummarizeDay returns the "today" view of acc for a single date.
func SummarizeDay(acc *Accumulator, date string) model.TodaySummary {
	f := foldAll(acc)

	out := model.TodaySummary{
		Date:          date,
		TokensByModel: map[string]uint64{},
	}
	if tokens, ok := f.modelTokens[date]; ok {
		out.TokensByModel = tokens
		out.TotalTokens = lo.Sum(lo.Values(tokens))
	}
	if day, ok := f.days[date]; ok {
		out.Messages = day.messages
		out.Sessions = uint64(len(day.sessions))
		out.ToolCalls = day.toolCalls
	}
	return out
}

// TodayFromCache derives the "today" view from a stats cache. It reports
// false when the cache has no activity entry for date.
func TodayFromCache(cache *model.StatsCache, date string) (model.TodaySummary, bool) {
	out := model.TodaySummary{
		Date:          date,
		TokensByModel: map[string]uint64{},
	}
	activity, ok := cache.ActivityOn(date)
	if !ok {
		return out, false
	}
	out.Messages = activity.MessageCount
	out.Sessions = activity.SessionCount
	out.ToolCalls = activity.ToolCallCount

	if tokens, ok := cache.TokensOn(date); ok && tokens != nil {
		out.TokensByModel = tokens
		out.TotalTokens = lo.Sum(lo.Values(tokens))
	}
	return out, true
}

// DailyTokenTotals flattens the daily per-model token tallies into a series
// of {date, total, byModel}, in the cache's date order.
func DailyTokenTotals(cache *model.StatsCache) []model.DailyTokenTotal {
	return lo.Map(cache.DailyModelTokens, func(d model.DailyModelTokens, _ int) model.DailyTokenTotal {
		byModel := d.TokensByModel
		if byModel == nil {
			byModel = map[string]uint64{}
		}
		return model.DailyTokenTotal{
			Date:    d.Date,
			Total:   lo.Sum(lo.Values(byModel)),
			ByModel: byModel,
		}
	})
}
