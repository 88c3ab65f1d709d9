package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/cachedmethod/internal/singleflight"
	"github.com/IvanBrykalov/cachedmethod/internal/util"
	"github.com/IvanBrykalov/cachedmethod/memo"
	"github.com/IvanBrykalov/cachedmethod/policy/lru"
)

var (
	// ErrNoLoader is returned by GetOrLoad when Options.Loader is nil.
	ErrNoLoader = errors.New("cache: no Loader provided")

	// ErrTooLarge rejects a value whose cost exceeds a shard's cost budget.
	ErrTooLarge = fmt.Errorf("cache: value too large: %w", memo.ErrUncacheable)

	// ErrClosed rejects writes after Close.
	ErrClosed = fmt.Errorf("cache: closed: %w", memo.ErrUncacheable)
)

// Cache is a sharded in-memory store. All methods are safe for concurrent
// use.
type Cache[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	opt Options[K, V]

	sf   singleflight.Group[K, V]
	size totals
}

var _ memo.Store[string, int] = (*Cache[string, int])(nil)

// New builds a cache. It panics if opt.Capacity is not positive.
func New[K comparable, V any](opt Options[K, V]) *Cache[K, V] {
	if opt.Capacity <= 0 {
		panic("cache: Capacity must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K, V]()
	}

	n := util.ShardCount(opt.Shards)
	// Never more shards than entries (or cost units): every shard needs a
	// non-zero budget.
	for n > 1 && (n > opt.Capacity || (opt.MaxCost > 0 && int64(n) > opt.MaxCost)) {
		n /= 2
	}
	opt.Shards = n

	c := &Cache[K, V]{
		shards: make([]*shard[K, V], n),
		hash:   util.Hash[K],
		opt:    opt,
	}
	for i := range c.shards {
		capacity, maxCost := split(opt.Capacity, opt.MaxCost, i, n)
		c.shards[i] = newShard(capacity, maxCost, opt, &c.size)
	}
	return c
}

// split gives shard i of n its share of the limits. The shares sum exactly
// to the totals; the first capacity%n shards take one extra entry.
func split(capacity int, maxCost int64, i, n int) (int, int64) {
	cp := capacity / n
	if i < capacity%n {
		cp++
	}
	if maxCost <= 0 {
		return cp, 0
	}
	mc := maxCost / int64(n)
	if int64(i) < maxCost%int64(n) {
		mc++
	}
	return cp, mc
}

// Add stores k→v only if k is absent. It reports false when the key exists,
// the value is too large, or the cache is closed.
func (c *Cache[K, V]) Add(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	return c.shardFor(k).add(k, v, c.defaultDeadline(), c.costOf(v))
}

// Set stores or replaces k→v with the default TTL.
func (c *Cache[K, V]) Set(k K, v V) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.shardFor(k).set(k, v, c.defaultDeadline(), c.costOf(v))
}

// SetWithTTL stores or replaces k→v expiring after ttl; ttl <= 0 never
// expires.
func (c *Cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.shardFor(k).set(k, v, c.deadline(ttl), c.costOf(v))
}

// Get returns the live value for k and records a use.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.shardFor(k).get(k)
}

// Remove deletes k and reports whether it was present. A GetOrLoad for k
// still in flight is detached: later callers start a fresh load.
func (c *Cache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	c.sf.Forget(k)
	return c.shardFor(k).remove(k)
}

// Len returns the number of resident entries, expired ones included until
// they are noticed.
func (c *Cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.length()
	}
	return total
}

// Cap returns the configured entry capacity.
func (c *Cache[K, V]) Cap() int { return c.opt.Capacity }

// Size reports (maximum, current) entry counts.
func (c *Cache[K, V]) Size() (maxSize, currSize int) {
	return c.Cap(), c.Len()
}

// Clear drops every entry. Evictions are not reported for cleared entries.
func (c *Cache[K, V]) Clear() {
	for _, s := range c.shards {
		s.clear()
	}
}

// Stats sums the lifetime counters of all shards.
func (c *Cache[K, V]) Stats() Stats {
	var st Stats
	for _, s := range c.shards {
		st.Hits += uint64(s.hits.Load())
		st.Misses += uint64(s.misses.Load())
		st.Evictions += s.evicts.Load()
	}
	return st
}

// Close makes the cache reject further use. It is idempotent.
func (c *Cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// GetOrLoad returns the value for k, loading it through Options.Loader on a
// miss. Concurrent loads of the same key share one Loader call. Load errors
// are returned and not cached; a loaded value that the cache rejects is
// still returned.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}
	v, _, err := c.sf.Do(ctx, k, func() (V, error) {
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err != nil {
			return v, err
		}
		if err := c.Set(k, v); err != nil && !errors.Is(err, memo.ErrUncacheable) {
			return v, err
		}
		return v, nil
	})
	return v, err
}

func (c *Cache[K, V]) shardFor(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(c.hash(k), len(c.shards))]
}

func (c *Cache[K, V]) defaultDeadline() int64 {
	return c.deadline(c.opt.DefaultTTL)
}

func (c *Cache[K, V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return c.now() + int64(ttl)
}

func (c *Cache[K, V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// costOf clamps Options.Cost into [0, MaxInt32].
func (c *Cache[K, V]) costOf(v V) int32 {
	if c.opt.Cost == nil || c.opt.MaxCost <= 0 {
		return 0
	}
	w := c.opt.Cost(v)
	if w < 0 {
		return 0
	}
	if w > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(w)
}
