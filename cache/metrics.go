package cache

// NoopMetrics discards every signal. It is the default Metrics.
type NoopMetrics struct{}

func (NoopMetrics) Hit()              {}
func (NoopMetrics) Miss()             {}
func (NoopMetrics) Evict(EvictReason) {}
func (NoopMetrics) Size(int, int64)   {}

var _ Metrics = NoopMetrics{}

// Stats are lifetime counters summed over all shards. Clear does not reset
// them.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}
