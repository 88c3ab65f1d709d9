package memo

import (
	"runtime"
	"sync"
	"weak"

	"github.com/IvanBrykalov/cachedmethod/internal/util"
)

// State is the per-owner bookkeeping of one Method: the keys currently being
// computed and the hit/miss counters. The zero value is ready to use. A
// State embedded in an owner must not be copied after first use and must
// serve a single Method.
//
// The pending set is guarded by the owner's lock; the counters are atomic
// so that Stats never has to take it.
type State[K comparable] struct {
	pending map[K]struct{}

	hits   util.PaddedAtomicUint64
	misses util.PaddedAtomicUint64
}

func (s *State[K]) isPending(k K) bool {
	_, ok := s.pending[k]
	return ok
}

func (s *State[K]) markPending(k K) {
	if s.pending == nil {
		s.pending = make(map[K]struct{})
	}
	s.pending[k] = struct{}{}
}

func (s *State[K]) release(k K) {
	delete(s.pending, k)
}

// Pending returns the number of keys in flight. Only meaningful when the
// caller holds the owner's lock.
func (s *State[K]) Pending() int { return len(s.pending) }

func (s *State[K]) counts() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

func (s *State[K]) reset() {
	s.hits.Store(0)
	s.misses.Store(0)
}

// recorder is the instrumentation overlay. counting updates the owner's
// counters; plain leaves them alone. Both forward to Metrics.
type recorder[K comparable] interface {
	hit(*State[K])
	miss(*State[K])
}

type plain[K comparable] struct{ m Metrics }

func (r plain[K]) hit(*State[K])  { r.m.Hit() }
func (r plain[K]) miss(*State[K]) { r.m.Miss() }

type counting[K comparable] struct{ m Metrics }

func (r counting[K]) hit(s *State[K]) {
	s.hits.Add(1)
	r.m.Hit()
}

func (r counting[K]) miss(s *State[K]) {
	s.misses.Add(1)
	r.m.Miss()
}

// owners associates owners with their State without keeping them alive.
// Keys are weak pointers; a cleanup registered on the owner drops the entry
// once the owner has been collected.
type owners[T any, K comparable] struct {
	m sync.Map // weak.Pointer[T] -> *State[K]
}

// load returns the owner's State, creating it on first use.
func (o *owners[T, K]) load(owner *T) *State[K] {
	wp := weak.Make(owner)
	if s, ok := o.m.Load(wp); ok {
		return s.(*State[K])
	}
	s, loaded := o.m.LoadOrStore(wp, new(State[K]))
	if !loaded {
		runtime.AddCleanup(owner, o.forget, wp)
	}
	return s.(*State[K])
}

// lookup returns the owner's State or nil if it has none yet.
func (o *owners[T, K]) lookup(owner *T) *State[K] {
	if s, ok := o.m.Load(weak.Make(owner)); ok {
		return s.(*State[K])
	}
	return nil
}

func (o *owners[T, K]) forget(wp weak.Pointer[T]) {
	o.m.Delete(wp)
}

func (o *owners[T, K]) len() int {
	n := 0
	o.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
