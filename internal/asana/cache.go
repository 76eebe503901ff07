package asana

import (
	"log"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	modTime time.Time
	ref     *Reference
	report  *Report
}

// CachedAggregator memoizes references per asana label in memory.
// An entry is recomputed once the index's ModTime changes. Callers receive
// their own copy of a cached reference.
type CachedAggregator struct {
	inner   ReferenceSource
	index   Index
	entries map[string]cacheEntry
	mu      sync.Mutex
}

// NewCachedAggregator wraps inner, using index to detect dataset changes.
func NewCachedAggregator(inner ReferenceSource, index Index) *CachedAggregator {
	return &CachedAggregator{
		inner:   inner,
		index:   index,
		entries: make(map[string]cacheEntry),
	}
}

// AverageForAsana returns the cached reference for name while the dataset is
// unchanged, and recomputes it otherwise.
func (c *CachedAggregator) AverageForAsana(name string) (*Reference, *Report) {
	modTime, err := c.index.ModTime()
	if err != nil {
		// No version stamp: bypass the cache.
		return c.inner.AverageForAsana(name)
	}

	key := strings.ToLower(name)

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok && entry.modTime.Equal(modTime) {
		report := *entry.report
		report.Asana = name
		report.Cached = true
		return entry.ref.clone(), &report
	}

	ref, report := c.inner.AverageForAsana(name)

	c.mu.Lock()
	c.entries[key] = cacheEntry{modTime: modTime, ref: ref.clone(), report: report}
	c.mu.Unlock()

	if ok {
		log.Printf("Dataset changed, recomputed reference for %s", name)
	}
	return ref, report
}

// Invalidate drops every cached reference.
func (c *CachedAggregator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
