// Package cache implements the Provider's two TTL caches: a
// file-backed PriceCache and an in-memory, single-flight
// RegisteredBondCache.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
)

// PriceCache is a single-file TTL cache of the last full PriceSnapshot.
// Writers use a tmp-file-then-rename discipline so concurrent readers
// never observe a half-written file (spec.md §4.5, §5).
type PriceCache struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewPriceCache builds a PriceCache backed by path with the given TTL.
func NewPriceCache(path string, ttl time.Duration) *PriceCache {
	return &PriceCache{path: path, ttl: ttl, now: time.Now}
}

// Get returns the stored snapshot iff the file's mtime is within TTL.
// A missing file, a stale file, or unreadable JSON all return
// (nil, false) — corruption is treated as absence, never an error
// (spec.md §4.5, §7 CacheCorruption).
func (c *PriceCache) Get() (*oracle.PriceSnapshot, bool) {
	info, err := os.Stat(c.path)
	if err != nil {
		return nil, false
	}
	if c.now().Sub(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false
	}

	var snap oracle.PriceSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	return &snap, true
}

// Put overwrites the cache atomically: write to a sibling tmp file,
// fsync, then rename over the target path.
func (c *PriceCache) Put(snap *oracle.PriceSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, c.path)
}
