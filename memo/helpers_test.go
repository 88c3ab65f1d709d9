package memo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mapStore is a bounded map; it is not safe for concurrent use on its own.
type mapStore struct {
	max    int
	m      map[int]int
	reject bool
	err    error
}

func newMapStore(capacity int) *mapStore { return &mapStore{max: capacity, m: make(map[int]int)} }

func (s *mapStore) Get(k int) (int, bool) {
	v, ok := s.m[k]
	return v, ok
}

func (s *mapStore) Set(k, v int) error {
	if s.reject {
		return fmt.Errorf("mapStore: %w", ErrUncacheable)
	}
	if s.err != nil {
		return s.err
	}
	if _, ok := s.m[k]; !ok && len(s.m) >= s.max {
		for old := range s.m {
			delete(s.m, old)
			break
		}
	}
	s.m[k] = v
	return nil
}

func (s *mapStore) Clear()                        { clear(s.m) }
func (s *mapStore) Size() (maxSize, currSize int) { return s.max, len(s.m) }

// svc is an owner with every collaborator a Method may ask for.
type svc struct {
	mu    sync.Mutex
	cond  *sync.Cond
	store *mapStore
	own   State[int]
}

func newSvc(capacity int) *svc {
	s := &svc{store: newMapStore(capacity)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func storeOf(s *svc) Store[int, int] { return s.store }
func lockOf(s *svc) sync.Locker      { return &s.mu }
func condOf(s *svc) *sync.Cond       { return s.cond }
func keyOf(_ *svc, a int) int        { return a }
func ownState(s *svc) *State[int]    { return &s.own }

func square(_ context.Context, _ *svc, a int) (int, error) {
	return a * a, nil
}

// options returns the collaborators that select strategy st.
func options(st Strategy, stats bool) Options[svc, int, int, int] {
	o := Options[svc, int, int, int]{Key: keyOf}
	switch st {
	case SingleFlight:
		o.Cache, o.Cond = storeOf, condOf
	case BestEffort:
		o.Cache, o.Lock = storeOf, lockOf
	case Unsynchronized:
		o.Cache = storeOf
	}
	if stats {
		o.Stats = NewStats
	}
	return o
}

// countingMetrics counts every signal.
type countingMetrics struct {
	hits, misses, waits, rejects atomic.Int64
}

func (c *countingMetrics) Hit()    { c.hits.Add(1) }
func (c *countingMetrics) Miss()   { c.misses.Add(1) }
func (c *countingMetrics) Wait()   { c.waits.Add(1) }
func (c *countingMetrics) Reject() { c.rejects.Add(1) }

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func mustStats(t *testing.T, m *Method[svc, int, int, int], s *svc) Stats {
	t.Helper()
	st, ok := m.Stats(s)
	if !ok {
		t.Fatal("method is not instrumented")
	}
	return st
}
