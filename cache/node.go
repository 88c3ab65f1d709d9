package cache

// node is a resident entry and its link in the shard's recency list.
type node[K comparable, V any] struct {
	key K
	val V

	prev, next *node[K, V] // toward MRU / toward LRU

	exp  int64 // deadline in UnixNano; 0 = none
	cost int32
}

func (n *node[K, V]) Key() K { return n.key }

// Value must only be dereferenced under the shard lock.
func (n *node[K, V]) Value() *V { return &n.val }
