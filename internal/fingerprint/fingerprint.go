// Package fingerprint implements the mtime-fast-path, content-hash-fallback
// change detection the teacher's internal/indexer/change_detector.go uses to
// skip re-processing a file that was merely touched: compare the disk mtime
// to the last recorded mtime first, and only fall back to hashing when it
// differs. Unlike the teacher's detector, which compares against a database
// row per file, this cache is a single JSON value kept in a store setting
// between scans: it exists to save duplicate extraction work across
// repeated uncommitted-mode scans of the same working tree, not to replace
// the Repository Walker's git-level diff.
package fingerprint

import (
	"encoding/json"
	"time"
)

// Entry records the last-seen state of one file.
type Entry struct {
	ModTime     time.Time `json:"mtime"`
	ContentHash string    `json:"hash"`
}

// Cache is a path -> Entry map, round-tripped to JSON for storage under a
// single settings key.
type Cache struct {
	entries map[string]Entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: map[string]Entry{}}
}

// Load decodes a cache previously produced by Dump. An empty or malformed
// string yields an empty cache rather than an error, since a missing
// fingerprint cache is equivalent to "nothing has been scanned yet".
func Load(data string) *Cache {
	c := New()
	if data == "" {
		return c
	}
	var entries map[string]Entry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return c
	}
	c.entries = entries
	return c
}

// Dump encodes the cache to JSON for storage in a single settings value.
func (c *Cache) Dump() string {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return ""
	}
	return string(data)
}

// NeedsExtraction reports whether path must be (re-)extracted: true when the
// path has never been seen, or when both its mtime and its content hash
// changed. A file whose mtime drifted without its content changing reports
// false, so the caller skips extraction for it.
func (c *Cache) NeedsExtraction(path string, mtime time.Time, hash string) bool {
	prev, ok := c.entries[path]
	if !ok {
		return true
	}
	if prev.ModTime.Equal(mtime) {
		return false
	}
	return prev.ContentHash != hash
}

// Update records path's current mtime and content hash.
func (c *Cache) Update(path string, mtime time.Time, hash string) {
	c.entries[path] = Entry{ModTime: mtime, ContentHash: hash}
}

// Forget removes path from the cache, for files the walker reports deleted.
func (c *Cache) Forget(path string) {
	delete(c.entries, path)
}
