package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/cachedmethod/internal/util"
	"github.com/IvanBrykalov/cachedmethod/policy"
)

// shard is one partition of the cache: a key index plus an intrusive
// recency list (head = MRU, tail = LRU), guarded by mu.
type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	m       map[K]*node[K, V]
	head    *node[K, V]
	tail    *node[K, V]
	len     int
	cost    int64
	cap     int
	maxCost int64 // 0 = unlimited

	pol policy.ShardPolicy[K, V]
	opt Options[K, V]

	// total aggregates every shard's size; reported is this shard's share
	// already folded into it.
	total        *totals
	reportedLen  int
	reportedCost int64

	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

// totals is the cache-wide size that Metrics.Size reports.
type totals struct {
	entries atomic.Int64
	cost    atomic.Int64
}

func newShard[K comparable, V any](capacity int, maxCost int64, opt Options[K, V], total *totals) *shard[K, V] {
	s := &shard[K, V]{
		m:       make(map[K]*node[K, V], capacity),
		cap:     capacity,
		maxCost: maxCost,
		opt:     opt,
		total:   total,
	}
	s.pol = opt.Policy.New(shardHooks[K, V]{s: s})
	return s
}

func (s *shard[K, V]) tooLarge(cost int32) bool {
	return s.maxCost > 0 && int64(cost) > s.maxCost
}

func (s *shard[K, V]) add(k K, v V, exp int64, cost int32) bool {
	if s.tooLarge(cost) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.m[k]; ok {
		if !s.expiredLocked(n) {
			return false
		}
		s.evictLocked(n, EvictTTL)
	}
	s.insertLocked(k, v, exp, cost)
	return true
}

func (s *shard[K, V]) set(k K, v V, exp int64, cost int32) error {
	if s.tooLarge(cost) {
		return ErrTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.m[k]; ok {
		s.cost += int64(cost) - int64(n.cost)
		n.val, n.exp, n.cost = v, exp, cost
		s.pol.OnUpdate(n)
		s.enforceLimitsLocked()
		return nil
	}
	s.insertLocked(k, v, exp, cost)
	return nil
}

func (s *shard[K, V]) insertLocked(k K, v V, exp int64, cost int32) {
	n := &node[K, V]{key: k, val: v, exp: exp, cost: cost}
	s.m[k] = n
	if victim := s.pol.OnAdd(n); victim != nil {
		s.evictLocked(victim.(*node[K, V]), EvictPolicy)
	}
	s.enforceLimitsLocked()
}

// get promotes on hit; an expired entry is evicted and reported as a miss.
func (s *shard[K, V]) get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if ok && s.expiredLocked(n) {
		s.evictLocked(n, EvictTTL)
		ok = false
	}
	if !ok {
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	s.pol.OnGet(n)
	s.hits.Add(1)
	s.opt.Metrics.Hit()
	return n.val, true
}

// remove is an explicit delete, not an eviction: OnEvict is not called.
func (s *shard[K, V]) remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		return false
	}
	s.pol.OnRemove(n)
	s.unlink(n)
	delete(s.m, k)
	s.reportSizeLocked()
	return true
}

func (s *shard[K, V]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.m)
	s.head, s.tail = nil, nil
	s.len, s.cost = 0, 0
	s.pol.Reset()
	s.reportSizeLocked()
}

func (s *shard[K, V]) length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.len
}

// ---- mu held below ----

func (s *shard[K, V]) expiredLocked(n *node[K, V]) bool {
	return n.exp != 0 && s.now() > n.exp
}

func (s *shard[K, V]) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

func (s *shard[K, V]) pushFront(n *node[K, V]) {
	n.prev, n.next = nil, s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.len++
	s.cost += int64(n.cost)
}

func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	if s.head == n {
		return
	}
	s.detach(n)
	n.prev, n.next = nil, s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// detach splices n out of the list without touching counters.
func (s *shard[K, V]) detach(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else if s.head == n {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (s *shard[K, V]) unlink(n *node[K, V]) {
	s.detach(n)
	s.len--
	s.cost -= int64(n.cost)
	if s.cost < 0 {
		s.cost = 0
	}
}

func (s *shard[K, V]) evictLocked(n *node[K, V], reason EvictReason) {
	s.pol.OnRemove(n)
	s.unlink(n)
	delete(s.m, n.key)
	s.evicts.Add(1)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		cb(n.key, n.val, reason)
	}
}

// enforceLimitsLocked trims from the LRU end until both the entry and the
// cost limits hold.
func (s *shard[K, V]) enforceLimitsLocked() {
	for s.len > s.cap || (s.maxCost > 0 && s.cost > s.maxCost) {
		victim := s.tail
		if victim == nil {
			break
		}
		reason := EvictPolicy
		switch {
		case s.expiredLocked(victim):
			reason = EvictTTL
		case s.len <= s.cap:
			reason = EvictCapacity
		}
		s.evictLocked(victim, reason)
	}
	s.reportSizeLocked()
}

// reportSizeLocked folds this shard's change into the cache totals and
// reports them.
func (s *shard[K, V]) reportSizeLocked() {
	entries := s.total.entries.Add(int64(s.len - s.reportedLen))
	cost := s.total.cost.Add(s.cost - s.reportedCost)
	s.reportedLen, s.reportedCost = s.len, s.cost
	s.opt.Metrics.Size(int(entries), cost)
}

// shardHooks exposes the shard list to the policy.
type shardHooks[K comparable, V any] struct{ s *shard[K, V] }

func (h shardHooks[K, V]) MoveToFront(x policy.Node[K, V]) { h.s.moveToFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) PushFront(x policy.Node[K, V])   { h.s.pushFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) Remove(x policy.Node[K, V])      { h.s.unlink(x.(*node[K, V])) }
func (h shardHooks[K, V]) Len() int                        { return h.s.len }

// Back returns nil (not a typed nil node) on an empty list.
func (h shardHooks[K, V]) Back() policy.Node[K, V] {
	if h.s.tail == nil {
		return nil
	}
	return h.s.tail
}
