package vector

import "github.com/cespare/xxhash/v2"

// originalIDPayloadKey is the payload field a hashed point's original
// string id survives under, per spec.md §4.5's "stores the original string
// id in the payload under a stable key so it survives round-trips."
const originalIDPayloadKey = "_id"

// HashID deterministically hashes a string chunk id into the 32-bit numeric
// id Qdrant point ids require. Grounded on cespare/xxhash/v2, already part
// of the corpus's dependency graph via redis/go-redis/v9's hashing, reused
// here directly rather than reaching for a hand-rolled hash function.
func HashID(id string) uint32 {
	return uint32(xxhash.Sum64String(id))
}
