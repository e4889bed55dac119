// Package cache provides a content-addressed store for expensive transformation
// results, such as optimised images, so unchanged inputs are never processed twice.
//
// Entries live on disk under a directory outside the build trees, which keeps
// them across "clean", and the hottest entries are also kept in an in-memory LRU.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/conneroisu/assetsmith/internal/fileset"
)

// DefaultEntries is the in-memory capacity when none is configured.
const DefaultEntries = 512

// Cache stores transformation results keyed by their inputs.
type Cache struct {
	dir    string
	memory *lru.Cache[string, []byte]

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits   int64
	Misses int64
	Sets   int64
	Memory int
}

// New creates a cache rooted at dir. An empty dir selects the user cache
// directory; entries <= 0 selects DefaultEntries.
func New(dir string, entries int) (*Cache, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "assetsmith")
	}
	if entries <= 0 {
		entries = DefaultEntries
	}

	memory, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}

	return &Cache{dir: dir, memory: memory}, nil
}

// Dir returns the on-disk location.
func (c *Cache) Dir() string {
	return c.dir
}

// Key derives a cache key from a namespace, an options fingerprint and content.
func Key(namespace, fingerprint string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for key.
func (c *Cache) Get(key string) ([]byte, bool) {
	if value, ok := c.memory.Get(key); ok {
		c.hits.Add(1)
		return value, true
	}

	value, err := os.ReadFile(c.path(key))
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}

	c.memory.Add(key, value)
	c.hits.Add(1)
	return value, true
}

// Set stores value under key in memory and on disk.
func (c *Cache) Set(key string, value []byte) error {
	c.memory.Add(key, value)
	c.sets.Add(1)
	if err := fileset.WriteFile(c.path(key), value); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// GetOrCompute returns the cached value for key, computing and storing it on a miss.
func (c *Cache) GetOrCompute(key string, compute func() ([]byte, error)) ([]byte, bool, error) {
	if value, ok := c.Get(key); ok {
		return value, true, nil
	}
	value, err := compute()
	if err != nil {
		return nil, false, err
	}
	if err := c.Set(key, value); err != nil {
		return value, false, err
	}
	return value, false, nil
}

// Clear drops every entry, in memory and on disk, and resets statistics.
func (c *Cache) Clear() error {
	c.memory.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
	return os.RemoveAll(c.dir)
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
		Memory: c.memory.Len(),
	}
}

func (c *Cache) path(key string) string {
	if len(key) < 3 {
		return filepath.Join(c.dir, key)
	}
	return filepath.Join(c.dir, key[:2], key[2:])
}
