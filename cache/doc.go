// Package cache is a sharded, generic, in-memory store with pluggable
// eviction, per-entry TTL, cost accounting and coalesced loading. It is the
// default store behind memo.Method: a *Cache satisfies memo.Store.
//
// Design
//
//   - Concurrency: keys are spread over a power-of-two number of shards by
//     an xxhash of the key; each shard has its own mutex, key index and
//     intrusive MRU↔LRU list.
//
//   - Policies: eviction is delegated to the policy package. LRU is the
//     default; 2Q resists scan pollution.
//
//   - TTL: per-entry deadlines, enforced lazily on read and while trimming.
//
//   - Cost: with Options.Cost and Options.MaxCost the cache evicts until both
//     the entry count and the cost budget hold. MaxCost is split evenly
//     across shards, and a single value costing more than its shard's budget
//     is rejected with ErrTooLarge instead of flushing the shard. ErrTooLarge
//     matches memo.ErrUncacheable, so memoized methods still return such
//     values, they are simply not retained.
//
//   - GetOrLoad coalesces concurrent loads of a missing key.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals
//     (NoopMetrics by default; see metrics/prom). Size carries the totals
//     over all shards.
//
//   - Limits: Capacity and MaxCost are divided so the shard shares sum to
//     exactly the configured values; Size never reports currSize > maxSize.
//
// Basic usage
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	_ = c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//
// Bounded by bytes
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Capacity: 1 << 20,
//	    Shards:   16,
//	    Cost:     func(v []byte) int { return len(v) },
//	    MaxCost:  64 << 20,
//	})
//	err := c.Set("blob", make([]byte, 8<<20)) // errors.Is(err, cache.ErrTooLarge)
package cache
