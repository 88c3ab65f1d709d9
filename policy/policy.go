// Package policy defines the contract between a cache shard and its
// eviction policy.
package policy

// Node is a resident cache entry as seen by a policy.
type Node[K comparable, V any] interface {
	Key() K
	// Value points at the stored value; only valid under the shard lock.
	Value() *V
}

// Hooks are the O(1) recency-list operations a shard offers its policy.
// The list runs from MRU (front) to LRU (back). Hooks never touch the
// shard's key index; the shard owns it.
//
// All hooks are called with the shard lock held.
type Hooks[K comparable, V any] interface {
	MoveToFront(Node[K, V])
	PushFront(Node[K, V])
	Remove(Node[K, V])
	// Back returns the LRU node, or nil when the list is empty.
	Back() Node[K, V]
	Len() int
}

// ShardPolicy is one policy instance bound to one shard.
//
//   - OnAdd admits a new node and may nominate a victim; the shard evicts
//     it and then reports it back through OnRemove.
//   - OnGet and OnUpdate record a use.
//   - OnRemove lets the policy drop its own bookkeeping for the node.
type ShardPolicy[K comparable, V any] interface {
	OnAdd(Node[K, V]) (evict Node[K, V])
	OnGet(Node[K, V])
	OnUpdate(Node[K, V])
	OnRemove(Node[K, V])
	// Reset forgets all policy state; the shard calls it when it is cleared.
	Reset()
}

// Policy creates shard-local policy instances.
type Policy[K comparable, V any] interface {
	New(Hooks[K, V]) ShardPolicy[K, V]
}
