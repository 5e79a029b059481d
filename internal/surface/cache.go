package surface

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/banshee-data/groundmotion/internal/monitoring"
)

// Loader reads a table resource from path. gridstore.Load is the
// production implementation.
type Loader func(path string) (*Table, error)

// Cache memoizes loaded tables by resource path. It is owned by the caller
// (typically one per process, shared by every table-backed model) and is
// safe for concurrent use.
//
// Concurrent first requests for the same path share a single load. Failed
// loads are not remembered, so a later Get retries. A load that is still
// running when its path is invalidated or the cache is purged is returned to
// the callers already waiting on it but is not stored.
type Cache struct {
	load    Loader
	clock   clockwork.Clock
	metrics *monitoring.Metrics
	logf    func(format string, v ...interface{})

	mu     sync.RWMutex
	tables map[string]*Table
	// gens counts invalidations per path and epoch counts purges. Their sum
	// is a path's generation.
	gens   map[string]uint64
	epoch  uint64
	flight singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock sets the clock used to time loads.
func WithClock(c clockwork.Clock) CacheOption {
	return func(cache *Cache) { cache.clock = c }
}

// WithMetrics records cache and load metrics.
func WithMetrics(m *monitoring.Metrics) CacheOption {
	return func(cache *Cache) { cache.metrics = m }
}

// NewCache returns an empty cache that loads with load.
func NewCache(load Loader, opts ...CacheOption) *Cache {
	c := &Cache{
		load:   load,
		clock:  clockwork.NewRealClock(),
		logf:   monitoring.Component("surface"),
		tables: make(map[string]*Table),
		gens:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// key normalises a resource path so different spellings of one file share
// an entry.
func key(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve table path %q: %w", path, err)
	}
	return abs, nil
}

func (c *Cache) lookup(k string) (t *Table, gen uint64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok = c.tables[k]
	return t, c.epoch + c.gens[k], ok
}

// Get returns the table at path, loading it on first use.
func (c *Cache) Get(path string) (*Table, error) {
	k, err := key(path)
	if err != nil {
		return nil, err
	}
	t, gen, ok := c.lookup(k)
	if ok {
		c.metrics.CacheHit()
		return t, nil
	}

	// Loads started before an invalidation never share a flight with loads
	// started after it.
	v, err, _ := c.flight.Do(k+"@"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		// A flight that finished between our lookup and Do has already
		// stored its table.
		if t, _, ok := c.lookup(k); ok {
			c.metrics.CacheHit()
			return t, nil
		}
		c.metrics.CacheMiss()

		start := c.clock.Now()
		t, err := c.load(k)
		elapsed := c.clock.Since(start)
		c.metrics.ObserveLoad(elapsed, err)
		if err != nil {
			c.logf("load %s failed after %v: %v", k, elapsed, err)
			return nil, err
		}

		c.mu.Lock()
		stale := c.epoch+c.gens[k] != gen
		if !stale {
			c.tables[k] = t
		}
		n := len(c.tables)
		c.mu.Unlock()
		if stale {
			c.logf("discarded %s: invalidated while loading", k)
			return t, nil
		}
		c.metrics.SetCachedTables(n)

		meta := t.Metadata()
		c.logf("loaded %s (id=%s region=%q imts=%d) in %v", k, meta.ID, meta.Region, len(t.IMTs()), elapsed)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// Invalidate drops the entry for path so the next Get reloads it.
func (c *Cache) Invalidate(path string) {
	k, err := key(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	_, had := c.tables[k]
	delete(c.tables, k)
	c.gens[k]++
	n := len(c.tables)
	c.mu.Unlock()
	c.metrics.SetCachedTables(n)
	if had {
		c.logf("invalidated %s", k)
	}
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	n := len(c.tables)
	c.tables = make(map[string]*Table)
	c.epoch++
	c.mu.Unlock()
	c.metrics.SetCachedTables(0)
	if n > 0 {
		c.logf("purged %d tables", n)
	}
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
