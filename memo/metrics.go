package memo

// Metrics receives per-call signals from every strategy, instrumented or
// not. Implementations must be safe for concurrent use and cheap: Hit and
// Miss may be called with the owner's lock held.
type Metrics interface {
	Hit()
	Miss()
	// Wait is signalled each time a caller blocks on a pending key.
	Wait()
	// Reject is signalled when the store refuses a computed value.
	Reject()
}

// NoopMetrics discards every signal. It is the default.
type NoopMetrics struct{}

func (NoopMetrics) Hit()    {}
func (NoopMetrics) Miss()   {}
func (NoopMetrics) Wait()   {}
func (NoopMetrics) Reject() {}

var _ Metrics = NoopMetrics{}
