package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/theirongolddev/cstats/internal/model"
)

// requiredKeys are the stats cache fields a document must carry to be
// trusted; longestSession and firstSessionDate may be absent.
var requiredKeys = []string{
	"version",
	"lastComputedDate",
	"dailyActivity",
	"dailyModelTokens",
	"modelUsage",
	"totalSessions",
	"totalMessages",
	"hourCounts",
	"totalSpeculationTimeSavedMs",
}

// JSONFile stores the cache as a single JSON document.
type JSONFile struct {
	path string
}

// NewJSONFile returns a store backed by the document at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Location returns the document path.
func (j *JSONFile) Location() string { return j.path }

// Load reads and decodes the document. A missing file wraps ErrCacheMiss;
// a document that is not a complete stats cache wraps ErrCorrupt.
func (j *JSONFile) Load() (*model.StatsCache, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCacheMiss, j.path)
		}
		return nil, fmt.Errorf("reading %s: %w", j.path, err)
	}
	return decodeCache(data)
}

func decodeCache(data []byte) (*model.StatsCache, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrCorrupt)
	}
	for _, k := range requiredKeys {
		if _, ok := fields[k]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrCorrupt, k)
		}
	}

	var cache model.StatsCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &cache, nil
}

// Save writes the document to a temporary file in the same directory and
// renames it over the old one.
func (j *JSONFile) Save(cache model.StatsCache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats cache: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stats-cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		return fmt.Errorf("replacing %s: %w", j.path, err)
	}
	return nil
}
