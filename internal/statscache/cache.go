// Package statscache is a file-backed freshness cache for derived symbol
// statistics. One JSON file exists per (provider namespace, period); the
// file's modification time drives the freshness window.
package statscache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/wonny/volsync/internal/marketdata"
	"github.com/wonny/volsync/pkg/logger"
)

// DefaultTTL is the freshness window after which cached statistics are
// recomputed.
const DefaultTTL = 24 * time.Hour

// Cache stores symbol statistics per (namespace, period) in JSON files.
// Cache trouble is never fatal: unreadable files count as misses, failed
// writes are logged and skipped.
type Cache struct {
	dir    string
	ttl    time.Duration
	logger *logger.Logger
}

// New creates a cache rooted at dir with the default 24 hour freshness window.
func New(dir string, log *logger.Logger) *Cache {
	return &Cache{dir: dir, ttl: DefaultTTL, logger: log}
}

// WithTTL overrides the freshness window.
func (c *Cache) WithTTL(ttl time.Duration) *Cache {
	c.ttl = ttl
	return c
}

// filePath builds the cache file path for a provider namespace and period.
// Namespacing keeps period- and source-dependent values from cross-
// contaminating each other.
func (c *Cache) filePath(namespace, period string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_volatility_cache_%s.json", namespace, period))
}

func (c *Cache) lockPath(namespace, period string) string {
	return c.filePath(namespace, period) + ".lock"
}

// Lookup returns cached statistics for the requested symbols if the cache is
// usable: the file exists, is younger than the freshness window, and covers
// every requested symbol. Partial coverage is a miss for the whole batch.
func (c *Cache) Lookup(namespace, period string, symbols []string) (marketdata.StatsMap, bool) {
	path := c.filePath(namespace, period)

	if !c.isFresh(path) {
		return nil, false
	}

	lock := flock.New(c.lockPath(namespace, period))
	if err := lock.RLock(); err != nil {
		c.logger.WithError(err).Warn("Cache lock failed, treating as miss")
		return nil, false
	}
	defer lock.Unlock()

	entries, err := c.read(path)
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Warn("Error reading cache")
		return nil, false
	}

	results := make(marketdata.StatsMap, len(symbols))
	for _, symbol := range symbols {
		stats, ok := entries[symbol]
		if !ok {
			// Missing even one symbol forces a full recompute.
			return nil, false
		}
		results[symbol] = stats
	}

	return results, true
}

// Store merges freshly computed statistics into the cache file and rewrites
// it whole. Prior contents survive only while still fresh; a stale file is
// discarded rather than merged. Failures are logged, never propagated.
func (c *Cache) Store(namespace, period string, fresh marketdata.StatsMap) {
	if len(fresh) == 0 {
		return
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.WithError(err).Warn("Error creating cache dir")
		return
	}

	lock := flock.New(c.lockPath(namespace, period))
	if err := lock.Lock(); err != nil {
		c.logger.WithError(err).Warn("Cache lock failed, skipping write")
		return
	}
	defer lock.Unlock()

	path := c.filePath(namespace, period)

	merged := make(marketdata.StatsMap)
	if c.isFresh(path) {
		if prior, err := c.read(path); err == nil {
			merged = prior
		}
	}
	for symbol, stats := range fresh {
		merged[symbol] = stats
	}

	data, err := json.Marshal(merged)
	if err != nil {
		c.logger.WithError(err).Warn("Error encoding cache")
		return
	}

	// Write to a temp file first so a failure never truncates the old cache.
	tmp, err := os.CreateTemp(c.dir, filepath.Base(path)+".tmp")
	if err != nil {
		c.logger.WithError(err).Warn("Error writing cache")
		return
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		c.logger.WithError(err).Warn("Error writing cache")
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		c.logger.WithError(err).Warn("Error writing cache")
		return
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		c.logger.WithError(err).Warn("Error writing cache")
		return
	}

	c.logger.WithFields(map[string]interface{}{
		"namespace": namespace,
		"period":    period,
		"symbols":   len(merged),
	}).Debug("Cache updated")
}

// isFresh reports whether the file exists and is younger than the TTL.
func (c *Cache) isFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < c.ttl
}

func (c *Cache) read(path string) (marketdata.StatsMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries marketdata.StatsMap
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	return entries, nil
}
