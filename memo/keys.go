package memo

import "github.com/IvanBrykalov/cachedmethod/internal/util"

// ArgsKey uses the argument value itself as the key. Use a comparable
// struct to key on several arguments.
func ArgsKey[T any, A comparable](_ *T, args A) A { return args }

// HashKey folds the xxhash of each part into a single key. Parts must be
// strings, byte slices, integers, bools or fmt.Stringers; other types
// panic. Distinct arguments can collide, so prefer ArgsKey when the
// arguments are comparable.
func HashKey(parts ...any) uint64 {
	hs := make([]uint64, len(parts))
	for i, p := range parts {
		hs[i] = util.Hash(p)
	}
	return util.Mix(hs...)
}
