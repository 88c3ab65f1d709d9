package memo

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// Func is the computation being memoized.
type Func[T, A, V any] func(ctx context.Context, owner *T, args A) (V, error)

// Options supplies the collaborators of a Method. Which of Cache, Lock and
// Cond are set decides the Strategy (see Resolve).
type Options[T any, A any, K comparable, V any] struct {
	// Cache returns the owner's store. A nil Cache selects Bypass; a nil
	// Store returned for one owner makes that call compute directly.
	Cache func(*T) Store[K, V]

	// Key derives the cache key. Required.
	Key func(*T, A) K

	// Lock returns the owner's mutex.
	Lock func(*T) sync.Locker

	// Cond returns the owner's condition variable. When Lock is set too,
	// Lock(owner) must be Cond(owner).L.
	Cond func(*T) *sync.Cond

	// Stats enables hit/miss counting and builds the snapshots.
	Stats StatsFunc

	// State returns bookkeeping embedded in the owner; it must not return
	// nil. When State is nil, a weak side table is used. Owners smaller than
	// minWeakOwnerSize bytes may share an allocation with unrelated objects
	// and are never reclaimed individually, so New requires State for them
	// whenever the table would be used (SingleFlight, or Stats set).
	State func(*T) *State[K]

	// Metrics receives per-call signals; nil => NoopMetrics.
	Metrics Metrics
}

// Method is a memoized computation. It is safe for concurrent use to the
// extent of its Strategy.
type Method[T any, A any, K comparable, V any] struct {
	fn       Func[T, A, V]
	opt      Options[T, A, K, V]
	strategy Strategy
	rec      recorder[K]
	metrics  Metrics
	owners   owners[T, K]

	call  func(ctx context.Context, owner *T, args A) (V, error)
	clear func(owner *T)
}

// minWeakOwnerSize is the smallest owner the weak side table accepts.
// Pointer-free objects below it come from the runtime's tiny allocator.
const minWeakOwnerSize = 16

// New wraps fn. It panics if fn or opt.Key is nil, or if the owner type is
// too small for the side table and opt.State is nil.
func New[T any, A any, K comparable, V any](fn Func[T, A, V], opt Options[T, A, K, V]) *Method[T, A, K, V] {
	if fn == nil {
		panic("memo: fn must not be nil")
	}
	if opt.Key == nil {
		panic("memo: Options.Key must not be nil")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}

	m := &Method[T, A, K, V]{
		fn:       fn,
		opt:      opt,
		strategy: Resolve(opt.Cache != nil, opt.Lock != nil, opt.Cond != nil),
		metrics:  opt.Metrics,
	}
	if m.usesSideTable() && reflect.TypeFor[T]().Size() < minWeakOwnerSize {
		panic("memo: owner type " + reflect.TypeFor[T]().String() +
			" is too small for the weak side table; set Options.State")
	}
	if opt.Stats != nil {
		m.rec = counting[K]{m: opt.Metrics}
	} else {
		m.rec = plain[K]{m: opt.Metrics}
	}

	switch m.strategy {
	case SingleFlight:
		m.call, m.clear = m.singleFlight, m.clearLocked
	case BestEffort:
		m.call, m.clear = m.bestEffort, m.clearLocked
	case Unsynchronized:
		m.call, m.clear = m.unsynchronized, m.clearUnlocked
	default:
		m.call, m.clear = m.direct, m.clearBypass
	}
	return m
}

// Strategy reports the strategy chosen at construction.
func (m *Method[T, A, K, V]) Strategy() Strategy { return m.strategy }

// Instrumented reports whether hits and misses are counted.
func (m *Method[T, A, K, V]) Instrumented() bool { return m.opt.Stats != nil }

// Call returns the memoized result of fn(ctx, owner, args).
func (m *Method[T, A, K, V]) Call(ctx context.Context, owner *T, args A) (V, error) {
	if owner == nil {
		var zero V
		return zero, ErrNilOwner
	}
	return m.call(ctx, owner, args)
}

// Clear empties the owner's store and zeroes its counters, under the
// owner's lock when the strategy has one.
func (m *Method[T, A, K, V]) Clear(owner *T) {
	if owner == nil {
		return
	}
	m.clear(owner)
}

// Stats returns the owner's snapshot. ok is false when the Method is not
// instrumented. An owner that was never called reports zero counters.
// The counters are read without locking; MaxSize and CurrSize are read
// from the store under the owner's lock when the strategy has one, so
// Stats waits for a caller holding it but never for a pending computation.
func (m *Method[T, A, K, V]) Stats(owner *T) (s Stats, ok bool) {
	if m.opt.Stats == nil || owner == nil {
		return Stats{}, false
	}
	var hits, misses uint64
	if st := m.lookup(owner); st != nil {
		hits, misses = st.counts()
	}
	s = m.opt.Stats(hits, misses)
	if m.opt.Cache == nil {
		return s, true
	}
	store := m.opt.Cache(owner)
	if store == nil {
		return s, true
	}
	if l := m.locker(owner); l != nil {
		l.Lock()
		defer l.Unlock()
	}
	s.MaxSize, s.CurrSize = store.Size()
	return s, true
}

// usesSideTable reports whether per-owner State lives in the weak table.
func (m *Method[T, A, K, V]) usesSideTable() bool {
	return m.opt.State == nil && (m.opt.Stats != nil || m.strategy == SingleFlight)
}

// state returns the owner's State, creating it if needed. It panics with
// ErrNilState when Options.State yields nil.
func (m *Method[T, A, K, V]) state(owner *T) *State[K] {
	if m.opt.State == nil {
		return m.owners.load(owner)
	}
	st := m.opt.State(owner)
	if st == nil {
		panic(ErrNilState)
	}
	return st
}

// counters returns the State a recorder needs: nil when nothing is counted.
func (m *Method[T, A, K, V]) counters(owner *T) *State[K] {
	if m.opt.Stats == nil {
		return nil
	}
	return m.state(owner)
}

// lookup is state without creation.
func (m *Method[T, A, K, V]) lookup(owner *T) *State[K] {
	if m.opt.State != nil {
		return m.opt.State(owner)
	}
	return m.owners.lookup(owner)
}

// locker returns the lock guarding the owner's store, or nil.
func (m *Method[T, A, K, V]) locker(owner *T) sync.Locker {
	switch {
	case m.opt.Lock != nil:
		return m.opt.Lock(owner)
	case m.opt.Cond != nil:
		return m.opt.Cond(owner).L
	default:
		return nil
	}
}

// put stores v, absorbing a rejection.
func (m *Method[T, A, K, V]) put(store Store[K, V], k K, v V) error {
	err := store.Set(k, v)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUncacheable) {
		m.metrics.Reject()
		return nil
	}
	return err
}

// direct runs fn without a store: the Bypass strategy, or an owner whose
// Cache returned nil.
func (m *Method[T, A, K, V]) direct(ctx context.Context, owner *T, args A) (V, error) {
	m.rec.miss(m.counters(owner))
	return m.fn(ctx, owner, args)
}

func (m *Method[T, A, K, V]) clearLocked(owner *T) {
	l := m.locker(owner)
	l.Lock()
	defer l.Unlock()
	if store := m.opt.Cache(owner); store != nil {
		store.Clear()
	}
	if st := m.lookup(owner); st != nil {
		st.reset()
	}
}

func (m *Method[T, A, K, V]) clearUnlocked(owner *T) {
	if store := m.opt.Cache(owner); store != nil {
		store.Clear()
	}
	if st := m.lookup(owner); st != nil {
		st.reset()
	}
}

func (m *Method[T, A, K, V]) clearBypass(owner *T) {
	if st := m.lookup(owner); st != nil {
		st.reset()
	}
}
