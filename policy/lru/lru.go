// Package lru implements least-recently-used eviction.
package lru

import "github.com/IvanBrykalov/cachedmethod/policy"

// New returns the LRU policy factory. It is the cache default.
func New[K comparable, V any]() policy.Policy[K, V] { return factory[K, V]{} }

type factory[K comparable, V any] struct{}

func (factory[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &lru[K, V]{h: h}
}

// lru keeps no state of its own: the shard list order is the recency order
// and the shard trims from the back when it is over capacity.
type lru[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

func (p *lru[K, V]) OnAdd(n policy.Node[K, V]) policy.Node[K, V] {
	p.h.PushFront(n)
	return nil
}

func (p *lru[K, V]) OnGet(n policy.Node[K, V])    { p.h.MoveToFront(n) }
func (p *lru[K, V]) OnUpdate(n policy.Node[K, V]) { p.h.MoveToFront(n) }
func (p *lru[K, V]) OnRemove(policy.Node[K, V])   {}
func (p *lru[K, V]) Reset()                       {}
