package service

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"pulsewire.app/ingest/internal/model"
)

// ContentHash keys summarization results by what was summarized, not by
// which post carried it. Posts with identical text hash identically, so
// a cache hit skips the provider call entirely.
func ContentHash(kind, text string) string {
	sum := sha256.Sum256([]byte(kind + "\n" + text))
	return hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	record    model.SummaryRecord
	expiresAt time.Time
}

// SummaryCache is a process-local TTL cache of summarization results,
// keyed by content hash. Storage remains the durable tier; the cache
// only short-circuits repeat work within one process lifetime.
type SummaryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewSummaryCache(ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *SummaryCache) Get(hash string) (model.SummaryRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[hash]
	if !ok {
		return model.SummaryRecord{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, hash)
		return model.SummaryRecord{}, false
	}
	return entry.record, true
}

func (c *SummaryCache) Put(hash string, record model.SummaryRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[hash] = cacheEntry{
		record:    record,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *SummaryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
