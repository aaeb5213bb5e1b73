// Package bibcache provides a small bounded cache of enriched bibliographic
// metadata, keyed by citation key. It holds the last MaxEntries written
// entries (oldest by write time evicted first) and persists itself as one
// JSON document through the storage collaborator. Persistence failures are
// never fatal: the cache degrades to cold.
package bibcache

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/matsen/shelf/internal/paper"
	"github.com/matsen/shelf/internal/storage"
)

// MaxEntries is the cache capacity.
const MaxEntries = 10

// BlobName is the name of the persisted cache document.
const BlobName = "bibcache"

// Entry is one cached enrichment result.
type Entry struct {
	Key      string        `json:"-"`
	BibTeX   string        `json:"bibtex"`
	BibInfo  paper.BibInfo `json:"bibInfo"`
	Abstract *string       `json:"abstract"`
	CachedAt int64         `json:"cachedAt"` // Unix milliseconds
}

// Stats summarizes cache occupancy.
type Stats struct {
	Count int      `json:"count"`
	Max   int      `json:"max"`
	Keys  []string `json:"keys"`
}

// Cache is the in-memory cache plus its persistence hookup.
type Cache struct {
	kv      storage.KV
	entries map[string]Entry
	now     func() time.Time
	logf    func(format string, args ...any)
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the write-time clock (for eviction tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogf sets the logger used when persistence errors are swallowed.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(c *Cache) { c.logf = logf }
}

// New loads the cache document from kv. A missing, unreadable, or corrupt
// document yields an empty cache.
func New(kv storage.KV, opts ...Option) *Cache {
	c := &Cache{
		kv:      kv,
		entries: make(map[string]Entry),
		now:     time.Now,
		logf:    func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(c)
	}

	data, err := kv.Get(BlobName)
	if err != nil {
		if err != storage.ErrNotFound {
			c.logf("bibcache: loading cache: %v (starting cold)", err)
		}
		return c
	}

	var doc map[string]Entry
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logf("bibcache: corrupt cache document: %v (starting cold)", err)
		return c
	}
	for key, e := range doc {
		e.Key = key
		c.entries[key] = e
	}
	return c
}

// Get returns the entry for key, if cached.
func (c *Cache) Get(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Has reports whether key is cached.
func (c *Cache) Has(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// Put stores an entry for key, stamps its write time, evicts the oldest
// entries beyond capacity, and persists.
func (c *Cache) Put(key, bibtex string, info paper.BibInfo, abstract *string) {
	c.entries[key] = Entry{
		Key:      key,
		BibTeX:   bibtex,
		BibInfo:  info,
		Abstract: abstract,
		CachedAt: c.now().UnixMilli(),
	}
	c.evict()
	c.persist()
}

// PutMany stores a batch of entries in one shot, as during bulk load. The
// input is truncated to the first MaxEntries entries in input order before
// writing; entries already present are overwritten. The batch shares one
// write stamp, so eviction afterwards only displaces older residents.
func (c *Cache) PutMany(entries []Entry) {
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	stamp := c.now().UnixMilli()
	for _, e := range entries {
		e.CachedAt = stamp
		c.entries[e.Key] = e
	}
	c.evict()
	c.persist()
}

// Rekey moves the entry at oldKey to newKey. A missing oldKey is a no-op.
func (c *Cache) Rekey(oldKey, newKey string) {
	e, ok := c.entries[oldKey]
	if !ok {
		return
	}
	delete(c.entries, oldKey)
	e.Key = newKey
	c.entries[newKey] = e
	c.persist()
}

// Remove drops the entry for key, if present.
func (c *Cache) Remove(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	c.persist()
}

// Stats returns current occupancy with keys sorted for stable output.
func (c *Cache) Stats() Stats {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Stats{Count: len(c.entries), Max: MaxEntries, Keys: keys}
}

// evict drops oldest-by-CachedAt entries until the cache fits its capacity.
func (c *Cache) evict() {
	for len(c.entries) > MaxEntries {
		oldestKey := ""
		oldestAt := int64(0)
		for k, e := range c.entries {
			if oldestKey == "" || e.CachedAt < oldestAt {
				oldestKey = k
				oldestAt = e.CachedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// persist writes the cache document. Failures are logged and swallowed.
func (c *Cache) persist() {
	doc := make(map[string]Entry, len(c.entries))
	for k, e := range c.entries {
		doc[k] = e
	}
	data, err := json.Marshal(doc)
	if err != nil {
		c.logf("bibcache: encoding cache: %v", err)
		return
	}
	if err := c.kv.Set(BlobName, data); err != nil {
		c.logf("bibcache: persisting cache: %v", err)
	}
}
