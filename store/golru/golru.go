// Package golru adapts github.com/hashicorp/golang-lru/v2 to memo.Store.
//
// Without a TTL the store is a plain LRU; with one it is the expirable LRU,
// where every entry lives for TTL after its last write.
package golru

import (
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/IvanBrykalov/cachedmethod/memo"
)

// ErrRejected is returned by Set when Admit refuses a value. It matches
// memo.ErrUncacheable.
var ErrRejected = fmt.Errorf("golru: value rejected: %w", memo.ErrUncacheable)

// Options configures a Store.
type Options[K comparable, V any] struct {
	// Size is the maximum number of entries. Required.
	Size int

	// TTL > 0 selects the expirable LRU.
	TTL time.Duration

	// Admit decides whether a value may be stored; nil admits everything.
	Admit func(k K, v V) bool

	// OnEvict runs when an entry is dropped for capacity or expiry.
	OnEvict func(k K, v V)
}

// backend is the method set both golang-lru flavours share.
type backend[K comparable, V any] interface {
	Get(k K) (V, bool)
	Add(k K, v V) bool
	Purge()
	Len() int
}

// Store is a memo.Store over golang-lru. It is safe for concurrent use.
type Store[K comparable, V any] struct {
	size  int
	admit func(K, V) bool
	b     backend[K, V]
}

var _ memo.Store[string, int] = (*Store[string, int])(nil)

// New builds a Store.
func New[K comparable, V any](opt Options[K, V]) (*Store[K, V], error) {
	if opt.Size <= 0 {
		return nil, errors.New("golru: Size must be > 0")
	}
	s := &Store[K, V]{size: opt.Size, admit: opt.Admit}

	if opt.TTL > 0 {
		s.b = expirable.NewLRU[K, V](opt.Size, opt.OnEvict, opt.TTL)
		return s, nil
	}

	var (
		c   *lru.Cache[K, V]
		err error
	)
	if opt.OnEvict != nil {
		c, err = lru.NewWithEvict[K, V](opt.Size, opt.OnEvict)
	} else {
		c, err = lru.New[K, V](opt.Size)
	}
	if err != nil {
		return nil, fmt.Errorf("golru: %w", err)
	}
	s.b = c
	return s, nil
}

// Get returns the value for k and marks it recently used.
func (s *Store[K, V]) Get(k K) (V, bool) { return s.b.Get(k) }

// Set stores v, evicting the least recently used entry when full.
func (s *Store[K, V]) Set(k K, v V) error {
	if s.admit != nil && !s.admit(k, v) {
		return ErrRejected
	}
	s.b.Add(k, v)
	return nil
}

// Clear drops every entry.
func (s *Store[K, V]) Clear() { s.b.Purge() }

// Len is the number of resident entries. Expired entries of the TTL
// flavour may be counted until they are reaped.
func (s *Store[K, V]) Len() int { return s.b.Len() }

// Size reports the configured capacity and the current length.
func (s *Store[K, V]) Size() (maxSize, currSize int) { return s.size, s.b.Len() }
