// Package store persists the stats cache: a JSON document by default, or a
// SQLite database.
package store

import "errors"

var (
	// ErrCacheMiss is returned by Load when no cache has been stored.
	ErrCacheMiss = errors.New("no persisted stats cache")
	// ErrCorrupt is returned by Load when the stored cache cannot be decoded.
	ErrCorrupt = errors.New("persisted stats cache is corrupt")
)
