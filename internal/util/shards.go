package util

import "runtime"

// MaxShards caps the automatic shard count.
const MaxShards = 256

// ReasonableShardCount returns nextPow2(2*GOMAXPROCS) clamped to [1, MaxShards].
func ReasonableShardCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p * 2)))
	if n > MaxShards {
		n = MaxShards
	}
	return n
}

// ShardCount normalizes a requested shard count: non-positive values pick
// ReasonableShardCount, everything else is rounded up to a power of two.
func ShardCount(requested int) int {
	switch {
	case requested <= 0:
		return ReasonableShardCount()
	case IsPowerOfTwo(uint64(requested)):
		return requested
	}
	return int(NextPow2(uint64(requested)))
}

// ShardIndex maps a hash to a shard index. shards must be a power of two.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	return int(hash & uint64(shards-1))
}
