package cache

import (
	"context"
	"time"

	"github.com/IvanBrykalov/cachedmethod/policy"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy: chosen by the eviction policy or the entry-count limit.
	EvictPolicy EvictReason = iota
	// EvictTTL: the deadline passed.
	EvictTTL
	// EvictCapacity: removed to get back under MaxCost.
	EvictCapacity
)

// String returns a stable lowercase label for r.
func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	case EvictCapacity:
		return "capacity"
	default:
		return "policy"
	}
}

// Metrics receives store-level signals. Implementations must be safe for
// concurrent use; they are called with a shard lock held.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	// Size reports the resident entries and cost summed over all shards.
	Size(entries int, cost int64)
}

// Clock provides time in UnixNano; tests use it to step time.
type Clock interface{ NowUnixNano() int64 }

// Options configures a cache. Zero values are safe; New applies:
//   - nil Policy   => LRU
//   - Shards <= 0  => auto (power of two, about 2*GOMAXPROCS)
//   - nil Metrics  => NoopMetrics
//   - nil Clock    => wall clock
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit; it is reported as the maximum size.
	Capacity int

	// Shards is rounded up to a power of two.
	Shards int

	Policy policy.Policy[K, V]

	// DefaultTTL applies to Add and Set (0 = no expiry).
	DefaultTTL time.Duration

	// Cost weighs a value (e.g. bytes). Used only when MaxCost > 0.
	Cost    func(v V) int
	MaxCost int64

	// Loader fills misses for GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict runs under the shard lock; keep it short.
	OnEvict func(k K, v V, reason EvictReason)
	Metrics Metrics

	Clock Clock
}
