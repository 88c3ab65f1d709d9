// Package util contains internal helpers (hashing, sharding, padding).
//
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a 64-bit xxhash of common key types.
// Supported: string, []byte, [16|32]byte, all int/uint widths, uintptr, bool,
// fmt.Stringer. Any other type panics: convert the key to a supported type or
// hash it upstream.
func Hash[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return xxhash.Sum64String(v)
	case []byte:
		return xxhash.Sum64(v)
	case [16]byte:
		return xxhash.Sum64(v[:])
	case [32]byte:
		return xxhash.Sum64(v[:])
	case bool:
		if v {
			return HashUint64(1)
		}
		return HashUint64(0)
	case uint8:
		return HashUint64(uint64(v))
	case uint16:
		return HashUint64(uint64(v))
	case uint32:
		return HashUint64(uint64(v))
	case uint64:
		return HashUint64(v)
	case uint:
		return HashUint64(uint64(v))
	case uintptr:
		return HashUint64(uint64(v))
	case int8:
		return HashUint64(uint64(uint8(v)))
	case int16:
		return HashUint64(uint64(uint16(v)))
	case int32:
		return HashUint64(uint64(uint32(v)))
	case int64:
		return HashUint64(uint64(v))
	case int:
		return HashUint64(uint64(v))
	case fmt.Stringer:
		return xxhash.Sum64String(v.String())
	default:
		panic(fmt.Sprintf("util.Hash: unsupported key type %T", k))
	}
}

// HashUint64 hashes the little-endian bytes of u without allocating.
func HashUint64(u uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	return xxhash.Sum64(b[:])
}

// Mix folds the hashes of several key parts into one value.
// The order of parts matters.
func Mix(parts ...uint64) uint64 {
	d := xxhash.New()
	var b [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(b[:], p)
		_, _ = d.Write(b[:])
	}
	return d.Sum64()
}
