package memo

// Strategy identifies how a Method coordinates concurrent misses.
type Strategy uint8

const (
	// Bypass computes every call; there is no store.
	Bypass Strategy = iota
	// SingleFlight allows one in-flight computation per (owner, key).
	SingleFlight
	// BestEffort computes outside the lock; the first stored value wins.
	BestEffort
	// Unsynchronized does no locking.
	Unsynchronized
)

func (s Strategy) String() string {
	switch s {
	case Bypass:
		return "bypass"
	case SingleFlight:
		return "single-flight"
	case BestEffort:
		return "best-effort"
	case Unsynchronized:
		return "unsynchronized"
	default:
		return "unknown"
	}
}

// Resolve picks the strategy for a set of collaborators. A missing store
// wins over everything else; a condition implies its own lock.
func Resolve(hasCache, hasLock, hasCond bool) Strategy {
	switch {
	case !hasCache:
		return Bypass
	case hasCond:
		return SingleFlight
	case hasLock:
		return BestEffort
	default:
		return Unsynchronized
	}
}
