package memo

import (
	"context"
	"sync"
)

// singleFlight: per (owner, key) the state goes ABSENT -> PENDING ->
// (PRESENT | ABSENT). Exactly one caller owns a PENDING key; everybody else
// for that key waits on the condition and re-runs the whole decision when
// woken.
func (m *Method[T, A, K, V]) singleFlight(ctx context.Context, owner *T, args A) (V, error) {
	store := m.opt.Cache(owner)
	if store == nil {
		return m.direct(ctx, owner, args)
	}
	l, cond, err := m.condLocks(owner)
	if err != nil {
		var zero V
		return zero, err
	}
	k := m.opt.Key(owner, args)
	st := m.state(owner)

	l.Lock()
	for st.isPending(k) {
		m.metrics.Wait()
		cond.Wait()
	}
	if v, ok := store.Get(k); ok {
		m.rec.hit(st)
		l.Unlock()
		return v, nil
	}
	st.markPending(k)
	m.rec.miss(st)
	l.Unlock()

	computed := false
	defer func() {
		// fn panicked: free the key so waiters do not block forever.
		if !computed {
			l.Lock()
			st.release(k)
			cond.Broadcast()
			l.Unlock()
		}
	}()
	v, err := m.fn(ctx, owner, args)
	computed = true

	l.Lock()
	defer l.Unlock()
	defer func() {
		st.release(k)
		cond.Broadcast()
	}()
	if err != nil {
		return v, err
	}
	return v, m.put(store, k, v)
}

// condLocks returns the owner's lock and condition, checking that they
// belong together.
func (m *Method[T, A, K, V]) condLocks(owner *T) (sync.Locker, *sync.Cond, error) {
	cond := m.opt.Cond(owner)
	if m.opt.Lock == nil {
		return cond.L, cond, nil
	}
	l := m.opt.Lock(owner)
	if l != cond.L {
		return nil, nil, ErrLockMismatch
	}
	return l, cond, nil
}

// bestEffort never blocks on another caller's computation. Duplicate
// computations are possible; the store keeps the first value and every
// finisher returns what it holds.
func (m *Method[T, A, K, V]) bestEffort(ctx context.Context, owner *T, args A) (V, error) {
	store := m.opt.Cache(owner)
	if store == nil {
		return m.direct(ctx, owner, args)
	}
	k := m.opt.Key(owner, args)
	st := m.counters(owner)
	l := m.opt.Lock(owner)

	l.Lock()
	if v, ok := store.Get(k); ok {
		m.rec.hit(st)
		l.Unlock()
		return v, nil
	}
	m.rec.miss(st)
	l.Unlock()

	v, err := m.fn(ctx, owner, args)
	if err != nil {
		return v, err
	}

	l.Lock()
	defer l.Unlock()
	if cur, ok := store.Get(k); ok {
		return cur, nil
	}
	return v, m.put(store, k, v)
}

func (m *Method[T, A, K, V]) unsynchronized(ctx context.Context, owner *T, args A) (V, error) {
	store := m.opt.Cache(owner)
	if store == nil {
		return m.direct(ctx, owner, args)
	}
	k := m.opt.Key(owner, args)
	st := m.counters(owner)

	if v, ok := store.Get(k); ok {
		m.rec.hit(st)
		return v, nil
	}
	m.rec.miss(st)

	v, err := m.fn(ctx, owner, args)
	if err != nil {
		return v, err
	}
	return v, m.put(store, k, v)
}
