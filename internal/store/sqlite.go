package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/theirongolddev/cstats/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLite stores the cache in relational tables, one row per day, model and
// hour bucket.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the cache database at the given path.
func OpenSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{db: db, path: dbPath}, nil
}

// Close closes the cache database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Location returns the database path.
func (s *SQLite) Location() string { return s.path }

// Save replaces the stored cache in a single transaction.
func (s *SQLite) Save(c model.StatsCache) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"stats_meta", "daily_activity", "daily_model_tokens", "model_usage", "hour_counts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil { //nolint:gosec // fixed table names
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	var firstDate, longestID, longestTS sql.NullString
	var longestDur, longestMsgs sql.NullInt64
	if c.FirstSessionDate != nil {
		firstDate = sql.NullString{String: *c.FirstSessionDate, Valid: true}
	}
	if ls := c.LongestSession; ls != nil {
		longestID = sql.NullString{String: ls.SessionID, Valid: true}
		longestTS = sql.NullString{String: ls.Timestamp, Valid: true}
		longestDur = sql.NullInt64{Int64: int64(ls.Duration), Valid: true}      //nolint:gosec // ms durations fit int64
		longestMsgs = sql.NullInt64{Int64: int64(ls.MessageCount), Valid: true} //nolint:gosec // counts fit int64
	}

	_, err = tx.Exec(`INSERT INTO stats_meta
		(id, version, last_computed_date, total_sessions, total_messages,
		 first_session_date, longest_session_id, longest_duration_ms,
		 longest_message_count, longest_timestamp, speculation_saved_ms, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Version, c.LastComputedDate, c.TotalSessions, c.TotalMessages,
		firstDate, longestID, longestDur, longestMsgs, longestTS,
		c.TotalSpeculationTimeSavedMs, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing stats_meta: %w", err)
	}

	for _, d := range c.DailyActivity {
		_, err = tx.Exec(`INSERT INTO daily_activity (date, message_count, session_count, tool_call_count)
			VALUES (?, ?, ?, ?)`, d.Date, d.MessageCount, d.SessionCount, d.ToolCallCount)
		if err != nil {
			return fmt.Errorf("writing daily_activity: %w", err)
		}
	}

	for _, d := range c.DailyModelTokens {
		for modelName, tokens := range d.TokensByModel {
			_, err = tx.Exec(`INSERT INTO daily_model_tokens (date, model, output_tokens)
				VALUES (?, ?, ?)`, d.Date, modelName, tokens)
			if err != nil {
				return fmt.Errorf("writing daily_model_tokens: %w", err)
			}
		}
	}

	for modelName, mu := range c.ModelUsage {
		_, err = tx.Exec(`INSERT INTO model_usage
			(model, input_tokens, output_tokens, cache_read_input_tokens,
			 cache_creation_input_tokens, web_search_requests, cost_usd,
			 context_window, max_output_tokens)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			modelName, mu.InputTokens, mu.OutputTokens, mu.CacheReadInputTokens,
			mu.CacheCreationInputTokens, mu.WebSearchRequests, mu.CostUSD,
			mu.ContextWindow, mu.MaxOutputTokens,
		)
		if err != nil {
			return fmt.Errorf("writing model_usage: %w", err)
		}
	}

	for hour, count := range c.HourCounts {
		if _, err = tx.Exec(`INSERT INTO hour_counts (hour, count) VALUES (?, ?)`, hour, count); err != nil {
			return fmt.Errorf("writing hour_counts: %w", err)
		}
	}

	return tx.Commit()
}

// Load reads the stored cache. An empty database wraps ErrCacheMiss. The
// daily token series covers every date present in either daily table.
func (s *SQLite) Load() (*model.StatsCache, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	c := model.StatsCache{
		DailyActivity:    []model.DailyActivity{},
		DailyModelTokens: []model.DailyModelTokens{},
		ModelUsage:       map[string]model.ModelUsage{},
		HourCounts:       map[string]uint64{},
	}

	var firstDate, longestID, longestTS sql.NullString
	var longestDur, longestMsgs sql.NullInt64
	err = tx.QueryRow(`SELECT version, last_computed_date, total_sessions, total_messages,
		first_session_date, longest_session_id, longest_duration_ms,
		longest_message_count, longest_timestamp, speculation_saved_ms
		FROM stats_meta WHERE id = 1`).Scan(
		&c.Version, &c.LastComputedDate, &c.TotalSessions, &c.TotalMessages,
		&firstDate, &longestID, &longestDur, &longestMsgs, &longestTS,
		&c.TotalSpeculationTimeSavedMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if firstDate.Valid {
		c.FirstSessionDate = &firstDate.String
	}
	if longestID.Valid {
		c.LongestSession = &model.LongestSession{
			SessionID:    longestID.String,
			Duration:     uint64(max(longestDur.Int64, 0)),
			MessageCount: uint64(max(longestMsgs.Int64, 0)),
			Timestamp:    longestTS.String,
		}
	}

	dates := make(map[string]struct{})

	rows, err := tx.Query(`SELECT date, message_count, session_count, tool_call_count
		FROM daily_activity ORDER BY date`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var d model.DailyActivity
		if err := rows.Scan(&d.Date, &d.MessageCount, &d.SessionCount, &d.ToolCallCount); err != nil {
			_ = rows.Close()
			return nil, err
		}
		c.DailyActivity = append(c.DailyActivity, d)
		dates[d.Date] = struct{}{}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	tokens := make(map[string]map[string]uint64)
	rows, err = tx.Query(`SELECT date, model, output_tokens FROM daily_model_tokens`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var date, modelName string
		var n uint64
		if err := rows.Scan(&date, &modelName, &n); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if tokens[date] == nil {
			tokens[date] = make(map[string]uint64)
		}
		tokens[date][modelName] = n
		dates[date] = struct{}{}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	sorted := make([]string, 0, len(dates))
	for d := range dates {
		sorted = append(sorted, d)
	}
	slices.Sort(sorted)
	for _, d := range sorted {
		byModel := tokens[d]
		if byModel == nil {
			byModel = map[string]uint64{}
		}
		c.DailyModelTokens = append(c.DailyModelTokens, model.DailyModelTokens{Date: d, TokensByModel: byModel})
	}

	rows, err = tx.Query(`SELECT model, input_tokens, output_tokens, cache_read_input_tokens,
		cache_creation_input_tokens, web_search_requests, cost_usd, context_window,
		max_output_tokens FROM model_usage`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var name string
		var mu model.ModelUsage
		err := rows.Scan(&name, &mu.InputTokens, &mu.OutputTokens, &mu.CacheReadInputTokens,
			&mu.CacheCreationInputTokens, &mu.WebSearchRequests, &mu.CostUSD,
			&mu.ContextWindow, &mu.MaxOutputTokens)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		c.ModelUsage[name] = mu
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = tx.Query(`SELECT hour, count FROM hour_counts`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var hour string
		var n uint64
		if err := rows.Scan(&hour, &n); err != nil {
			_ = rows.Close()
			return nil, err
		}
		c.HourCounts[hour] = n
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	return &c, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}
