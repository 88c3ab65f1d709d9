package memo

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

var allStrategies = []Strategy{SingleFlight, BestEffort, Unsynchronized}

// Repeated calls with a cached key return the stored value without
// recomputing, and every call is either a hit or a miss.
func TestMethod_IdempotentHitAndAccounting(t *testing.T) {
	t.Parallel()

	for _, st := range allStrategies {
		t.Run(st.String(), func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			m := New(func(_ context.Context, _ *svc, a int) (int, error) {
				calls.Add(1)
				return a * 10, nil
			}, options(st, true))
			s := newSvc(8)

			for i := 0; i < 5; i++ {
				v, err := m.Call(context.Background(), s, 3)
				if err != nil || v != 30 {
					t.Fatalf("Call = %d, %v", v, err)
				}
			}
			if _, err := m.Call(context.Background(), s, 4); err != nil {
				t.Fatal(err)
			}
			if calls.Load() != 2 {
				t.Fatalf("computations = %d, want 2", calls.Load())
			}
			got := mustStats(t, m, s)
			if got.Hits != 4 || got.Misses != 2 {
				t.Fatalf("stats = %+v, want 4 hits, 2 misses", got)
			}
			if got.MaxSize != 8 || got.CurrSize != 2 {
				t.Fatalf("sizes = (%d, %d), want (8, 2)", got.MaxSize, got.CurrSize)
			}
		})
	}
}

func TestMethod_ClearResetsStoreAndCounters(t *testing.T) {
	t.Parallel()

	for _, st := range append(allStrategies, Bypass) {
		t.Run(st.String(), func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			m := New(func(_ context.Context, _ *svc, a int) (int, error) {
				calls.Add(1)
				return a, nil
			}, options(st, true))
			s := newSvc(8)

			_, _ = m.Call(context.Background(), s, 1)
			_, _ = m.Call(context.Background(), s, 1)
			m.Clear(s)

			if got := mustStats(t, m, s); got.Hits != 0 || got.Misses != 0 || got.CurrSize != 0 {
				t.Fatalf("after Clear: %+v", got)
			}
			before := calls.Load()
			_, _ = m.Call(context.Background(), s, 1)
			if calls.Load() != before+1 {
				t.Fatal("a cleared key must be recomputed")
			}
		})
	}
}

func TestMethod_Bypass(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := New(func(_ context.Context, _ *svc, a int) (int, error) {
		calls.Add(1)
		return a, nil
	}, options(Bypass, true))
	s := newSvc(8)

	for i := 0; i < 7; i++ {
		_, _ = m.Call(context.Background(), s, 1)
	}
	if calls.Load() != 7 {
		t.Fatalf("bypass must compute every call, computed %d", calls.Load())
	}
	got := mustStats(t, m, s)
	if got.Hits != 0 || got.Misses != 7 || got.MaxSize != 0 {
		t.Fatalf("stats = %+v", got)
	}
	if len(s.store.m) != 0 {
		t.Fatal("bypass must not touch any store")
	}
}

func TestMethod_StatsWithoutInstrumentation(t *testing.T) {
	t.Parallel()

	m := New(square, options(SingleFlight, false))
	s := newSvc(2)
	_, _ = m.Call(context.Background(), s, 2)
	if _, ok := m.Stats(s); ok {
		t.Fatal("Stats must report ok=false when not instrumented")
	}

	im := New(square, options(SingleFlight, true))
	got, ok := im.Stats(newSvc(2))
	if !ok || got.Hits != 0 || got.Misses != 0 {
		t.Fatalf("unknown owner: %+v ok=%v", got, ok)
	}
	if im.owners.len() != 0 {
		t.Fatal("Stats must not create per-owner state")
	}
}

// A store that refuses every value still lets every caller get its value.
func TestMethod_RejectionTransparency(t *testing.T) {
	t.Parallel()

	for _, st := range allStrategies {
		t.Run(st.String(), func(t *testing.T) {
			t.Parallel()

			met := &countingMetrics{}
			opt := options(st, true)
			opt.Metrics = met
			var calls atomic.Int32
			m := New(func(_ context.Context, _ *svc, a int) (int, error) {
				calls.Add(1)
				return a + 1, nil
			}, opt)
			s := newSvc(8)
			s.store.reject = true

			for i := 0; i < 3; i++ {
				v, err := m.Call(context.Background(), s, 41)
				if err != nil || v != 42 {
					t.Fatalf("Call = %d, %v", v, err)
				}
			}
			if calls.Load() != 3 {
				t.Fatalf("computations = %d, want 3", calls.Load())
			}
			got := mustStats(t, m, s)
			if got.CurrSize != 0 || got.Misses != 3 {
				t.Fatalf("stats = %+v", got)
			}
			if met.rejects.Load() != 3 {
				t.Fatalf("rejects = %d, want 3", met.rejects.Load())
			}
		})
	}
}

func TestMethod_StoreErrorPropagates(t *testing.T) {
	t.Parallel()

	broken := errors.New("disk on fire")
	for _, st := range allStrategies {
		m := New(square, options(st, false))
		s := newSvc(4)
		s.store.err = broken

		v, err := m.Call(context.Background(), s, 3)
		if !errors.Is(err, broken) || v != 9 {
			t.Fatalf("%v: Call = %d, %v; want 9 and the store error", st, v, err)
		}
		if st == SingleFlight {
			if p := m.owners.lookup(s); p == nil || p.Pending() != 0 {
				t.Fatal("pending key leaked")
			}
		}
	}
}

func TestMethod_ComputationErrorNotCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	for _, st := range allStrategies {
		var calls atomic.Int32
		m := New(func(context.Context, *svc, int) (int, error) {
			calls.Add(1)
			return 0, boom
		}, options(st, true))
		s := newSvc(4)

		for i := 0; i < 2; i++ {
			if _, err := m.Call(context.Background(), s, 1); !errors.Is(err, boom) {
				t.Fatalf("%v: err = %v", st, err)
			}
		}
		if calls.Load() != 2 {
			t.Fatalf("%v: failures must not be cached", st)
		}
		if got := mustStats(t, m, s); got.Misses != 2 || got.CurrSize != 0 {
			t.Fatalf("%v: stats = %+v", st, got)
		}
	}
}

func TestMethod_NilOwnerAndNilStore(t *testing.T) {
	t.Parallel()

	m := New(square, options(SingleFlight, true))
	if _, err := m.Call(context.Background(), nil, 1); !errors.Is(err, ErrNilOwner) {
		t.Fatalf("err = %v, want ErrNilOwner", err)
	}

	opt := options(BestEffort, true)
	opt.Cache = func(*svc) Store[int, int] { return nil }
	m = New(square, opt)
	s := newSvc(4)
	for i := 0; i < 2; i++ {
		if v, _ := m.Call(context.Background(), s, 3); v != 9 {
			t.Fatalf("v = %d", v)
		}
	}
	if got := mustStats(t, m, s); got.Misses != 2 || got.Hits != 0 {
		t.Fatalf("nil store must compute directly: %+v", got)
	}
}

func TestMethod_LockMismatch(t *testing.T) {
	t.Parallel()

	opt := options(SingleFlight, false)
	var other sync.Mutex
	opt.Lock = func(*svc) sync.Locker { return &other }
	m := New(square, opt)
	if _, err := m.Call(context.Background(), newSvc(2), 1); !errors.Is(err, ErrLockMismatch) {
		t.Fatalf("err = %v, want ErrLockMismatch", err)
	}

	opt.Lock = lockOf
	m = New(square, opt)
	if v, err := m.Call(context.Background(), newSvc(2), 3); err != nil || v != 9 {
		t.Fatalf("matching lock: %d, %v", v, err)
	}
}

// Counters are kept per owner.
func TestMethod_OwnersAreIndependent(t *testing.T) {
	t.Parallel()

	m := New(square, options(BestEffort, true))
	a, b := newSvc(4), newSvc(4)
	_, _ = m.Call(context.Background(), a, 2)
	_, _ = m.Call(context.Background(), a, 2)
	_, _ = m.Call(context.Background(), b, 2)

	if got := mustStats(t, m, a); got.Hits != 1 || got.Misses != 1 {
		t.Fatalf("a: %+v", got)
	}
	if got := mustStats(t, m, b); got.Hits != 0 || got.Misses != 1 {
		t.Fatalf("b: %+v", got)
	}
}

func TestMethod_EmbeddedState(t *testing.T) {
	t.Parallel()

	opt := options(SingleFlight, true)
	opt.State = ownState
	m := New(square, opt)
	s := newSvc(4)
	_, _ = m.Call(context.Background(), s, 5)
	_, _ = m.Call(context.Background(), s, 5)

	if h, mi := s.own.counts(); h != 1 || mi != 1 {
		t.Fatalf("embedded counters = (%d, %d)", h, mi)
	}
	if m.owners.len() != 0 {
		t.Fatal("embedded state must bypass the weak table")
	}
}

// Per-owner state must not keep the owner alive.
func TestMethod_StateDroppedWithOwner(t *testing.T) {
	m := New(square, options(Unsynchronized, true))

	func() {
		s := newSvc(4)
		_, _ = m.Call(context.Background(), s, 2)
		if m.owners.len() != 1 {
			t.Fatalf("table size = %d, want 1", m.owners.len())
		}
	}()

	eventually(t, "owner state to be reclaimed", func() bool {
		runtime.GC()
		return m.owners.len() == 0
	})
}

func TestMethod_ConcurrentDistinctKeys(t *testing.T) {
	t.Parallel()

	for _, st := range []Strategy{SingleFlight, BestEffort} {
		m := New(square, options(st, true))
		s := newSvc(1024)

		var g errgroup.Group
		for i := 0; i < 200; i++ {
			g.Go(func() error {
				v, err := m.Call(context.Background(), s, i%50)
				if err != nil {
					return err
				}
				if v != (i%50)*(i%50) {
					return errors.New("wrong value")
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("%v: %v", st, err)
		}
		got := mustStats(t, m, s)
		if got.Hits+got.Misses != 200 {
			t.Fatalf("%v: hits+misses = %d, want 200", st, got.Hits+got.Misses)
		}
	}
}
