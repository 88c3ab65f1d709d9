package memo

import "errors"

var (
	// ErrUncacheable marks a value the Store refused to retain (typically
	// because it is too large). Stores wrap it; Method swallows it.
	ErrUncacheable = errors.New("memo: value not cacheable")

	// ErrLockMismatch is returned when Options.Lock and Options.Cond are
	// both set but the lock is not the condition's L.
	ErrLockMismatch = errors.New("memo: Lock(owner) must be Cond(owner).L")

	// ErrNilOwner is returned by Call for a nil owner.
	ErrNilOwner = errors.New("memo: nil owner")

	// ErrNilState is the panic value when Options.State returns nil.
	ErrNilState = errors.New("memo: Options.State returned nil")
)

// Store is the bounded key/value mapping backing a Method. The coordinated
// strategies only touch it under the owner's lock, so it need not be safe
// for concurrent use unless the Unsynchronized strategy is shared across
// goroutines.
type Store[K comparable, V any] interface {
	// Get returns the stored value and whether it was present.
	Get(k K) (V, bool)
	// Set stores v. An error matching ErrUncacheable means v was refused.
	Set(k K, v V) error
	Clear()
	// Size reports (maximum, current) entry counts.
	Size() (maxSize, currSize int)
}
