package memo

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// tiny is pointer-free and below the tiny allocator's limit.
type tiny struct{ n int }

// pair is pointer-free but large enough for its own allocation.
type pair struct{ a, b int }

// mustPanic runs f and returns the recovered value.
func mustPanic(t *testing.T, f func()) (r any) {
	t.Helper()
	defer func() { r = recover() }()
	f()
	t.Fatal("expected a panic")
	return nil
}

func TestNew_SmallOwnerRequiresState(t *testing.T) {
	t.Parallel()

	store := newMapStore(4)
	cache := func(*tiny) Store[int, int] { return store }
	fn := func(_ context.Context, o *tiny, a int) (int, error) { return o.n + a, nil }

	cases := map[string]Options[tiny, int, int, int]{
		"instrumented": {Cache: cache, Key: ArgsKey[tiny, int], Stats: NewStats},
		"single-flight": {
			Cache: cache,
			Key:   ArgsKey[tiny, int],
			Cond:  func(*tiny) *sync.Cond { return sync.NewCond(&sync.Mutex{}) },
		},
		"bypass instrumented": {Key: ArgsKey[tiny, int], Stats: NewStats},
	}
	for name, opt := range cases {
		r := mustPanic(t, func() { New(fn, opt) })
		if msg := fmt.Sprint(r); !strings.Contains(msg, "Options.State") {
			t.Fatalf("%s: panic %q does not name Options.State", name, msg)
		}
	}

	// No side table needed: plain best-effort and unsynchronized are fine.
	var mu sync.Mutex
	New(fn, Options[tiny, int, int, int]{Cache: cache, Key: ArgsKey[tiny, int], Lock: func(*tiny) sync.Locker { return &mu }})
	New(fn, Options[tiny, int, int, int]{Cache: cache, Key: ArgsKey[tiny, int]})

	// Embedded-style State lifts the restriction.
	var st State[int]
	m := New(fn, Options[tiny, int, int, int]{
		Cache: cache,
		Key:   ArgsKey[tiny, int],
		Stats: NewStats,
		State: func(*tiny) *State[int] { return &st },
	})
	o := &tiny{n: 1}
	_, _ = m.Call(context.Background(), o, 1)
	_, _ = m.Call(context.Background(), o, 1)
	if h, mi := st.counts(); h != 1 || mi != 1 {
		t.Fatalf("counters = (%d, %d)", h, mi)
	}
}

// Many small owners dropped together leave nothing behind in the table.
func TestMethod_SmallOwnersReclaimed(t *testing.T) {
	store := newMapStore(8)
	m := New(func(_ context.Context, o *pair, a int) (int, error) {
		return o.a + a, nil
	}, Options[pair, int, int, int]{
		Cache: func(*pair) Store[int, int] { return store },
		Key:   ArgsKey[pair, int],
		Stats: NewStats,
	})

	for i := 0; i < 1000; i++ {
		_, _ = m.Call(context.Background(), &pair{a: i}, i%8)
	}

	eventually(t, "small owners to be reclaimed", func() bool {
		runtime.GC()
		return m.owners.len() == 0
	})
}

func TestMethod_NilStatePanics(t *testing.T) {
	t.Parallel()

	opt := options(SingleFlight, true)
	opt.State = func(*svc) *State[int] { return nil }
	m := New(square, opt)
	s := newSvc(4)

	r := mustPanic(t, func() { _, _ = m.Call(context.Background(), s, 3) })
	if err, ok := r.(error); !ok || !errors.Is(err, ErrNilState) {
		t.Fatalf("panic = %v, want ErrNilState", r)
	}

	// Stats takes the owner's lock: the panic must not have left it held.
	if st, ok := m.Stats(s); !ok || st.Hits+st.Misses != 0 {
		t.Fatalf("stats = %+v, %v", st, ok)
	}
}
