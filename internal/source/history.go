package source

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/theirongolddev/cstats/internal/model"
)

// ErrNoHistory is returned when history.jsonl does not exist.
var ErrNoHistory = fmt.Errorf("activity log not found: %w", fs.ErrNotExist)

// ReadHistory decodes every well-formed line of the activity log at path.
// Lines that are not JSON objects are skipped. A missing file yields
// ErrNoHistory; any other open or read failure is returned wrapped.
func ReadHistory(path string, lim Limits) ([]HistoryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoHistory
		}
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []HistoryRecord
	err = eachLine(f, lim, func(_ int, data []byte, oversize bool) bool {
		if oversize || !isJSONObject(data) {
			return true
		}
		var rec HistoryRecord
		if json.Unmarshal(data, &rec) == nil {
			records = append(records, rec)
		}
		return true
	})
	if err != nil {
		return records, fmt.Errorf("reading activity log: %w", err)
	}
	return records, nil
}

// SessionsSince returns the ids of sessions with an activity record at or
// after sinceMs (epoch milliseconds).
func SessionsSince(records []HistoryRecord, sinceMs int64) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, r := range records {
		if r.SessionID == "" || int64(r.Timestamp) < sinceMs { //nolint:gosec // epoch ms fits int64
			continue
		}
		ids[string(r.SessionID)] = struct{}{}
	}
	return ids
}

// History converts records into display entries, newest first, keeping at
// most limit entries (all when limit <= 0). Records without a timestamp are
// dropped.
func History(records []HistoryRecord, limit int) []model.HistoryEntry {
	out := make([]model.HistoryEntry, 0, len(records))
	for _, r := range records {
		if r.Timestamp == 0 {
			continue
		}
		out = append(out, model.HistoryEntry{
			Display:   string(r.Display),
			Timestamp: uint64(r.Timestamp),
			Project:   string(r.Project),
			SessionID: string(r.SessionID),
		})
	}

	slices.SortStableFunc(out, func(a, b model.HistoryEntry) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
