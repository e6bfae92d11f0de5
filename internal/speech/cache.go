package speech

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// CacheKey returns the content key for a rendered announcement: hex
// SHA-256 over the length-prefixed text, voice and language. Length
// prefixes keep ("ab","c") and ("a","bc") apart.
func CacheKey(text, voice, language string) string {
	h := sha256.New()
	var n [binary.MaxVarintLen64]byte
	for _, field := range [...]string{text, voice, language} {
		h.Write(n[:binary.PutUvarint(n[:], uint64(len(field)))])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AudioCache is a thread-safe two-tier cache for rendered WAV bytes: an
// in-memory map in front of an optional ArtifactStore (disk, redis, or a
// tiered combination). Entries found in the store are promoted to memory.
// A missing store entry is a miss, never an error.
type AudioCache struct {
	mu      sync.RWMutex
	entries map[string][]byte // key -> WAV bytes
	store   domain.ArtifactStore
	log     *logger.Logger
	hits    int64
	misses  int64
}

// NewAudioCache creates an audio cache. store may be nil for a pure
// in-memory cache.
func NewAudioCache(store domain.ArtifactStore, log *logger.Logger) *AudioCache {
	return &AudioCache{
		entries: make(map[string][]byte),
		store:   store,
		log:     log,
	}
}

// Get returns cached audio for the key and true, or nil and false.
func (c *AudioCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.count(true)
		c.log.Debug("cache hit (mem): %s (%d bytes)", shortKey(key), len(data))
		return data, true
	}

	if c.store != nil {
		stored, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			c.mu.Lock()
			c.entries[key] = stored
			c.hits++
			c.mu.Unlock()
			c.log.Debug("cache hit (store): %s (%d bytes)", shortKey(key), len(stored))
			return stored, true
		case !errors.Is(err, domain.ErrCacheMiss):
			c.log.Warn("cache: store lookup for %s failed: %v", shortKey(key), err)
		}
	}

	c.count(false)
	return nil, false
}

// Put stores audio under the key in memory and in the backing store.
func (c *AudioCache) Put(ctx context.Context, key string, audio []byte) {
	c.mu.Lock()
	c.entries[key] = audio
	size := len(c.entries)
	c.mu.Unlock()

	c.log.Debug("cache store (mem): %s (%d bytes, %d entries)", shortKey(key), len(audio), size)

	if c.store != nil {
		if err := c.store.Put(ctx, key, audio); err != nil {
			c.log.Error("cache: store write for %s failed: %v", shortKey(key), err)
		}
	}
}

// Len returns the number of in-memory cached entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Clear empties the in-memory tier. The backing store is NOT cleared.
func (c *AudioCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
	c.mu.Unlock()
	c.log.Debug("cache cleared (mem)")
}

func (c *AudioCache) count(hit bool) {
	c.mu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
}

func shortKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:12]
}

// truncate shortens s to at most maxLen runes for log lines.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
