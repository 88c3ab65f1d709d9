// Command stampede fires many concurrent callers at one memoized key and
// prints how the chosen strategy coordinated them. Optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/cachedmethod/cache"
	"github.com/IvanBrykalov/cachedmethod/memo"
	pmet "github.com/IvanBrykalov/cachedmethod/metrics/prom"
	"github.com/IvanBrykalov/cachedmethod/policy/twoq"
	"github.com/IvanBrykalov/cachedmethod/store/golru"
)

// service is the shared object whose method is memoized.
type service struct {
	mu    sync.Mutex
	cond  *sync.Cond
	store memo.Store[int, int]
	calls atomic.Int64
	delay time.Duration
}

func (s *service) slowSquare(ctx context.Context, n int) (int, error) {
	s.calls.Add(1)
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return n * n, nil
}

func main() {
	// ---- Flags ----
	var (
		workers  = flag.Int("workers", 1000, "number of concurrent callers")
		strategy = flag.String("strategy", "single-flight", "single-flight | best-effort | unsynchronized | bypass")
		delay    = flag.Duration("delay", time.Second, "duration of the memoized computation")
		key      = flag.Int("key", 42, "argument every caller passes")

		storeKind = flag.String("store", "shard", "store backend: shard | golru")
		capacity  = flag.Int("cap", 1, "store capacity (entries)")
		ttl       = flag.Duration("ttl", time.Hour, "entry TTL (0 = none)")
		policy    = flag.String("policy", "lru", "shard store eviction policy: lru | 2q")
		maxCost   = flag.Int64("maxcost", 0, "shard store cost limit; values costing more than a shard's share are rejected (0 = off)")
		noStats   = flag.Bool("nostats", false, "disable hit/miss counting")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", "", "serve Prometheus metrics at addr (e.g. :8080); empty = disabled")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	storeMetrics := cache.Metrics(cache.NoopMetrics{})
	methodMetrics := memo.Metrics(memo.NoopMetrics{})
	if *metricsAddr != "" {
		storeMetrics = pmet.New(nil, "cachedmethod", "store", nil)
		methodMetrics = pmet.New(nil, "cachedmethod", "method", nil)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("metrics: serving at %s", *metricsAddr)
			log.Println(http.ListenAndServe(*metricsAddr, nil))
		}()
	}

	// ---- Build store ----
	svc := &service{delay: *delay}
	svc.cond = sync.NewCond(&svc.mu)
	switch *storeKind {
	case "shard":
		opt := cache.Options[int, int]{
			Capacity:   *capacity,
			DefaultTTL: *ttl,
			Metrics:    storeMetrics,
		}
		switch *policy {
		case "lru":
			// nil => LRU by default
		case "2q":
			opt.Policy = twoq.New[int, int](max(*capacity/4, 1), max(*capacity/2, 1))
		default:
			log.Fatalf("unknown policy: %q (use lru or 2q)", *policy)
		}
		if *maxCost > 0 {
			opt.MaxCost = *maxCost
			opt.Cost = func(v int) int { return v }
		}
		c := cache.New(opt)
		defer func() { _ = c.Close() }()
		svc.store = c
	case "golru":
		s, err := golru.New(golru.Options[int, int]{Size: *capacity, TTL: *ttl})
		if err != nil {
			log.Fatalf("golru: %v", err)
		}
		svc.store = s
	default:
		log.Fatalf("unknown store: %q (use shard or golru)", *storeKind)
	}

	// ---- Wire the method ----
	opt := memo.Options[service, int, int, int]{
		Key:     memo.ArgsKey[service, int],
		Metrics: methodMetrics,
	}
	if !*noStats {
		opt.Stats = memo.NewStats
	}
	storeOf := func(s *service) memo.Store[int, int] { return s.store }
	switch *strategy {
	case "single-flight":
		opt.Cache = storeOf
		opt.Cond = func(s *service) *sync.Cond { return s.cond }
	case "best-effort":
		opt.Cache = storeOf
		opt.Lock = func(s *service) sync.Locker { return &s.mu }
	case "unsynchronized":
		opt.Cache = storeOf
	case "bypass":
	default:
		log.Fatalf("unknown strategy: %q", *strategy)
	}
	square := memo.New(func(ctx context.Context, s *service, n int) (int, error) {
		return s.slowSquare(ctx, n)
	}, opt)

	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Stampede ----
	start := time.Now()
	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < workersN; w++ {
		g.Go(func() error {
			_, err := square.Call(ctx, svc, *key)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("stampede: %v", err)
	}
	elapsed := time.Since(start)

	// ---- Report ----
	fmt.Printf("strategy=%s instrumented=%v store=%s cap=%d workers=%d delay=%v elapsed=%v\n",
		square.Strategy(), square.Instrumented(), *storeKind, *capacity, workersN, *delay, elapsed)
	fmt.Printf("computations=%d\n", svc.calls.Load())
	if s, ok := square.Stats(svc); ok {
		fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  maxsize=%d  currsize=%d\n",
			s.Hits, s.Misses, s.HitRatio()*100, s.MaxSize, s.CurrSize)
	}

	if *metricsAddr != "" {
		log.Printf("metrics: still serving at %s (Ctrl-C to exit)", *metricsAddr)
		select {}
	}
}
