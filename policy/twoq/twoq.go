// Package twoq implements the simplified 2Q eviction policy.
package twoq

import (
	"container/list"

	"github.com/IvanBrykalov/cachedmethod/policy"
)

// New returns a 2Q factory. inCap bounds the probation queue (A1in) and
// ghostCap the remembered keys of entries evicted from it (A1out). Both are
// per shard; around 25% and 50% of the shard capacity are good defaults.
func New[K comparable, V any](inCap, ghostCap int) policy.Policy[K, V] {
	return factory[K, V]{inCap: max(inCap, 1), ghostCap: max(ghostCap, 1)}
}

type factory[K comparable, V any] struct {
	inCap, ghostCap int
}

func (f factory[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	q := &twoQ[K, V]{h: h, inCap: f.inCap, ghostCap: f.ghostCap}
	q.Reset()
	return q
}

// twoQ admits first-time keys into a probation FIFO. A key re-admitted while
// still remembered as a ghost skips probation and lands straight in the main
// area, which the shard list orders by recency. One-off scans therefore
// churn only the probation queue.
type twoQ[K comparable, V any] struct {
	h policy.Hooks[K, V]

	inCap, ghostCap int

	probation *list.List // of policy.Node, MRU at front
	onProb    map[policy.Node[K, V]]*list.Element

	ghosts  *list.List // of K, MRU at front
	ghostOf map[K]*list.Element
}

func (q *twoQ[K, V]) Reset() {
	q.probation = list.New()
	q.onProb = make(map[policy.Node[K, V]]*list.Element)
	q.ghosts = list.New()
	q.ghostOf = make(map[K]*list.Element)
}

func (q *twoQ[K, V]) OnAdd(n policy.Node[K, V]) policy.Node[K, V] {
	q.h.PushFront(n)
	if g, ok := q.ghostOf[n.Key()]; ok {
		q.ghosts.Remove(g)
		delete(q.ghostOf, n.Key())
		return nil
	}
	q.onProb[n] = q.probation.PushFront(n)
	if q.probation.Len() > q.inCap {
		return q.probation.Back().Value.(policy.Node[K, V])
	}
	return nil
}

// OnGet promotes a probation node into the main area.
func (q *twoQ[K, V]) OnGet(n policy.Node[K, V]) {
	if e, ok := q.onProb[n]; ok {
		q.probation.Remove(e)
		delete(q.onProb, n)
	}
	q.h.MoveToFront(n)
}

func (q *twoQ[K, V]) OnUpdate(n policy.Node[K, V]) { q.OnGet(n) }

// OnRemove remembers keys that leave probation. Main-area removals are
// forgotten.
func (q *twoQ[K, V]) OnRemove(n policy.Node[K, V]) {
	e, ok := q.onProb[n]
	if !ok {
		return
	}
	q.probation.Remove(e)
	delete(q.onProb, n)

	k := n.Key()
	if old, ok := q.ghostOf[k]; ok {
		q.ghosts.Remove(old)
	}
	q.ghostOf[k] = q.ghosts.PushFront(k)
	for q.ghosts.Len() > q.ghostCap {
		last := q.ghosts.Back()
		delete(q.ghostOf, last.Value.(K))
		q.ghosts.Remove(last)
	}
}
