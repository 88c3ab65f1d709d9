// Package memo memoizes methods on shared objects while controlling how
// concurrent callers for the same key behave on a cache miss.
//
// A Method wraps a computation func(ctx, owner, args) (V, error). Each call
// derives a key from (owner, args), consults the owner's Store and, on a
// miss, coordinates the computation according to a Strategy chosen once in
// New from the collaborators supplied in Options:
//
//	Cache  Lock  Cond   Strategy
//	nil    -     -      Bypass          (always compute)
//	set    set   set    SingleFlight
//	set    nil   set    SingleFlight    (Cond.L is the lock)
//	set    set   nil    BestEffort
//	set    nil   nil    Unsynchronized
//
// The strategies behave as follows.
//
//   - SingleFlight: at most one computation per (owner, key) is in flight.
//     Other callers block on the owner's condition until the key is no
//     longer pending and then decide again from scratch: they may hit, or
//     compute themselves if the value was rejected, evicted or the
//     computation failed.
//
//   - BestEffort: the computation runs outside the lock and may run
//     concurrently for the same key; the first value stored wins and is
//     what every finisher returns.
//
//   - Unsynchronized: no locking at all. The Store must tolerate concurrent
//     use if the owner is shared between goroutines.
//
//   - Bypass: no store; with Options.Stats every call counts as a miss.
//
// Setting Options.Stats adds hit/miss counting to any strategy without
// changing its concurrency behaviour; Method.Stats and Method.Clear expose
// and reset the counters.
//
// # Per-owner state
//
// Pending keys and counters live in a State. By default a Method keeps
// them in a side table keyed by weak pointers to the owner; the entry is
// dropped once the owner is garbage collected, so memoization never keeps
// an owner alive. Alternatively, embed a State in the owner and return it
// from Options.State; its lifetime is then exactly the owner's. An
// instrumented or single-flight Method over an owner type smaller than 16
// bytes must use Options.State: the runtime packs such objects together,
// so their collection cannot be observed one by one.
//
// # Errors
//
// A Store may refuse a value by returning an error matching ErrUncacheable;
// the value is still returned to the caller, just not retained. Computation
// errors are returned unchanged and never cached.
//
// # Limitations
//
// Waiting for a pending key cannot be cancelled: ctx is handed to the
// computation only. A computation that never returns blocks every caller
// waiting on its key.
//
// # Example
//
//	type Catalog struct {
//	    mu    sync.Mutex
//	    cond  *sync.Cond
//	    cache *cache.Cache[string, Product]
//	    memo  memo.State[string]
//	}
//
//	var lookup = memo.New(fetchProduct, memo.Options[Catalog, string, string, Product]{
//	    Cache: func(c *Catalog) memo.Store[string, Product] { return c.cache },
//	    Key:   memo.ArgsKey[Catalog, string],
//	    Cond:  func(c *Catalog) *sync.Cond { return c.cond },
//	    State: func(c *Catalog) *memo.State[string] { return &c.memo },
//	    Stats: memo.NewStats,
//	})
//
//	p, err := lookup.Call(ctx, catalog, "sku-42")
package memo
