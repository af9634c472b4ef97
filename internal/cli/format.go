// Package cli formats stats values and renders them as terminal tables.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/cstats/internal/model"
)

// FormatTokens formats a token count with a K/M/B suffix.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M"
func FormatTokens(n uint64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatUint(n, 10)
	}
}

// FormatNumber adds comma separators to a count.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n uint64) string {
	s := strconv.FormatUint(n, 10)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatCost formats an estimated USD amount, dropping precision as it grows.
func FormatCost(cost float64) string {
	switch {
	case cost >= 1000:
		return "$" + FormatNumber(uint64(math.Round(cost)))
	case cost >= 100:
		return fmt.Sprintf("$%.0f", cost)
	case cost >= 10:
		return fmt.Sprintf("$%.1f", cost)
	default:
		return fmt.Sprintf("$%.2f", cost)
	}
}

// FormatDuration formats a millisecond span.
// e.g., 3_725_000 -> "1h 2m", 125_000 -> "2m", 45_000 -> "45s"
func FormatDuration(ms uint64) string {
	secs := ms / 1000
	if secs == 0 {
		return "0s"
	}
	hours := secs / 3600
	mins := (secs % 3600) / 60

	switch {
	case hours >= 24:
		return fmt.Sprintf("%dd %dh", hours/24, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm", mins)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// FormatPercent formats a 0-1 ratio as a percentage.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatWeekday returns the three-letter weekday of a YYYY-MM-DD date, or
// "???" when the date does not parse.
func FormatWeekday(date string) string {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return "???"
	}
	return t.Weekday().String()[:3]
}

// FormatEpochMs renders an epoch-millisecond timestamp in loc.
func FormatEpochMs(ms uint64, loc *time.Location) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(int64(ms)).In(loc).Format("2006-01-02 15:04")
}

// ShortModel trims the "claude-" prefix and any date suffix for table cells.
// e.g., "claude-opus-4-5-20251101" -> "opus-4-5"
func ShortModel(name string) string {
	name = strings.TrimPrefix(name, "claude-")
	if i := strings.LastIndexByte(name, '-'); i > 0 {
		suffix := name[i+1:]
		if len(suffix) == 8 && strings.Trim(suffix, "0123456789") == "" {
			name = name[:i]
		}
	}
	return name
}

// Truncate collapses whitespace runs in s and shortens it to at most n runes,
// marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if n <= 0 || len(r) <= n {
		return string(r)
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
