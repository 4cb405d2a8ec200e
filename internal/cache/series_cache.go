package cache

import (
	"container/list"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hooksink/hooksink/internal/metric"
)

// Entry is one cached series: the most recent record for a series identity
// plus its cache bookkeeping.
type Entry struct {
	Record      metric.Record
	LastUpdated time.Time
	ExpiresAt   time.Time
}

// Stats are point-in-time cache counters, exposed through the exporter's
// self-metrics.
type Stats struct {
	Size              int
	CapacityEvictions uint64
	ExpiredEvictions  uint64
}

// SeriesCache holds the most recent value per unique series identity
// (metric name plus sorted label set), bounded by entry count and TTL.
//
// Eviction policy is recency-of-write LRU: Upsert moves an entry to the
// front of the order list, reads never touch it. When the cache is full the
// back of the list goes first. Expired entries are skipped by Snapshot and
// removed by EvictExpired, which also runs on the optional sweeper ticker.
//
// One RWMutex guards all state; the cache is safe for concurrent ingestion
// writers and scrape readers.
type SeriesCache struct {
	mu      sync.RWMutex
	maxSize int
	ttl     time.Duration

	entries map[string]*list.Element
	order   *list.List // front = most recently written

	capacityEvictions uint64
	expiredEvictions  uint64

	now  func() time.Time
	log  *zap.Logger
	done chan struct{}
	once sync.Once
}

type cacheEntry struct {
	key   string
	entry Entry
}

func New(maxSize int, ttl time.Duration, log *zap.Logger) *SeriesCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &SeriesCache{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Upsert inserts or refreshes the series for rec. An existing identity gets
// its value replaced and its TTL clock reset; a new identity beyond capacity
// evicts the least recently written entry first.
func (c *SeriesCache) Upsert(rec metric.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	key := seriesKey(rec.Name, rec.Labels)
	entry := Entry{
		Record:      rec,
		LastUpdated: now,
		ExpiresAt:   now.Add(c.ttl),
	}

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).entry = entry
		c.order.MoveToFront(el)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.removeExpiredLocked(now)
	}
	for len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, entry: entry})
}

// Snapshot returns a copy of all live entries sorted by series identity.
// Expired entries are excluded; nothing about cache state, LRU order
// included, is mutated.
func (c *SeriesCache) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	out := make([]Entry, 0, len(c.entries))
	keys := make([]string, 0, len(c.entries))
	for key, el := range c.entries {
		ce := el.Value.(*cacheEntry)
		if now.Before(ce.entry.ExpiresAt) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		out = append(out, c.entries[key].Value.(*cacheEntry).entry)
	}
	return out
}

// EvictExpired actively removes every entry past its TTL and reports how
// many were dropped.
func (c *SeriesCache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeExpiredLocked(c.now())
}

// Delete removes every series of the given metric name and reports the
// number of series dropped.
func (c *SeriesCache) Delete(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.entries {
		if el.Value.(*cacheEntry).entry.Record.Name == name {
			c.order.Remove(el)
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently held, expired ones included.
func (c *SeriesCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats reports cache counters for self-metrics.
func (c *SeriesCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Size:              len(c.entries),
		CapacityEvictions: c.capacityEvictions,
		ExpiredEvictions:  c.expiredEvictions,
	}
}

// StartSweeper proactively evicts expired entries every interval until
// Close is called.
func (c *SeriesCache) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := c.EvictExpired(); n > 0 {
					c.log.Debug("swept expired series", zap.Int("evicted", n))
				}
			case <-c.done:
				return
			}
		}
	}()
}

// Close stops the sweeper goroutine if one is running.
func (c *SeriesCache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *SeriesCache) removeExpiredLocked(now time.Time) int {
	removed := 0
	for key, el := range c.entries {
		if !now.Before(el.Value.(*cacheEntry).entry.ExpiresAt) {
			c.order.Remove(el)
			delete(c.entries, key)
			c.expiredEvictions++
			removed++
		}
	}
	return removed
}

func (c *SeriesCache) evictOldestLocked() {
	el := c.order.Back()
	if el == nil {
		return
	}
	ce := el.Value.(*cacheEntry)
	c.order.Remove(el)
	delete(c.entries, ce.key)
	c.capacityEvictions++
	c.log.Debug("evicted least recently written series",
		zap.String("series", ce.entry.Record.Name),
		zap.Int("max_size", c.maxSize))
}

// seriesKey builds the series identity: metric name plus the sorted label
// set, joined with separators that cannot occur in label names.
func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte(0xff)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	return b.String()
}
