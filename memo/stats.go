package memo

// Stats is a snapshot of one owner's counters. MaxSize and CurrSize come
// from the owner's Store and stay zero under Bypass.
type Stats struct {
	Hits     uint64
	Misses   uint64
	MaxSize  int
	CurrSize int
}

// HitRatio returns Hits/(Hits+Misses), or 0 before the first call.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// StatsFunc builds a snapshot from the counters. Setting Options.Stats
// turns instrumentation on.
type StatsFunc func(hits, misses uint64) Stats

// NewStats is the plain StatsFunc.
func NewStats(hits, misses uint64) Stats {
	return Stats{Hits: hits, Misses: misses}
}
