package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/cstats/internal/model"
	"github.com/theirongolddev/cstats/internal/source"
)

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Options control how logs are scanned.
type Options struct {
	// Location buckets dates and hours; nil means time.Local.
	Location *time.Location
	Limits   source.Limits
	// Now returns the current time; nil means time.Now.
	Now      func() time.Time
	Progress ProgressFunc
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now().In(o.location())
	}
	return o.Now().In(o.location())
}

// today returns the current date key and the epoch ms of local midnight.
func (o Options) today() (string, int64) {
	now := o.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return now.Format(model.DateLayout), midnight.UnixMilli()
}

// LoadResult holds the output of the full data loading pipeline.
type LoadResult struct {
	Stats        model.StatsCache `json:"stats"`
	TotalFiles   int              `json:"totalFiles"`
	ProjectCount int              `json:"projectCount"`
	Scan         ScanStats        `json:"scan"`
}

// Load discovers every session log under claudeDir and rebuilds the stats
// cache from scratch. Files are read one after another; unreadable
// directories and files contribute nothing and malformed lines are skipped,
// so Load cannot fail.
func Load(claudeDir string, opts Options) *LoadResult {
	files := source.SessionFiles(claudeDir)

	acc := NewAccumulator(opts.location())
	scanFiles(acc, files, opts)

	return &LoadResult{
		Stats:        Summarize(acc, opts.now()),
		TotalFiles:   len(files),
		ProjectCount: source.CountProjects(files),
		Scan:         acc.Stats,
	}
}

// TodayResult holds the output of the today-only pipeline.
type TodayResult struct {
	Summary model.TodaySummary
	// ActiveSessions is the number of sessions the activity log lists for today.
	ActiveSessions int
	// HistoryMissing is set when history.jsonl does not exist.
	HistoryMissing bool
	Scan           ScanStats
}

// LoadToday builds the "today" view without a full rescan: it reads the
// activity log, keeps the sessions active since local midnight and scans only
// their files. The merge rules are the same as Load's. A missing activity log
// yields an all-zero summary; other activity-log I/O failures are returned.
func LoadToday(claudeDir string, opts Options) (*TodayResult, error) {
	date, midnightMs := opts.today()
	result := &TodayResult{
		Summary: model.TodaySummary{Date: date, TokensByModel: map[string]uint64{}},
	}

	records, err := source.ReadHistory(source.HistoryPath(claudeDir), opts.Limits)
	if errors.Is(err, source.ErrNoHistory) {
		result.HistoryMissing = true
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading today's sessions: %w", err)
	}

	active := source.SessionsSince(records, midnightMs)
	result.ActiveSessions = len(active)
	if len(active) == 0 {
		return result, nil
	}

	files := source.FilterSessions(source.SessionFiles(claudeDir), active)
	acc := NewAccumulator(opts.location())
	scanFiles(acc, files, opts)

	result.Summary = SummarizeDay(acc, date)
	result.Scan = acc.Stats
	return result, nil
}

// scanFiles parses every line of files into acc.
func scanFiles(acc *Accumulator, files []source.DiscoveredFile, opts Options) {
	loc := acc.Location()
	for i := range files {
		for line := range source.Lines(files[i:i+1], opts.Limits) {
			acc.Stats.Lines++
			if line.Oversize {
				acc.Stats.Oversize++
				continue
			}
			ev, ok := source.ParseLine(line.Data, line.File.SessionID, line.Index, loc)
			if !ok {
				acc.Stats.Skipped++
				continue
			}
			acc.Stats.Parsed++
			acc.Add(ev)
		}
		acc.Stats.Files++
		if opts.Progress != nil {
			opts.Progress(i+1, len(files))
		}
	}
}
