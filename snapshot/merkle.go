package snapshot

import (
	"lukechampine.com/blake3"
)

// numBuckets is the fan-out of the Merkle index's top level. Every key
// falls into exactly one bucket based on the high byte of its own content
// hash, so insertions/deletions of unrelated keys never move a key between
// buckets. 256 keeps bucket hash lists small for the tree sizes this engine
// is meant for (a handful to a few thousand nodes).
const numBuckets = 256

// Hasher is a Merkle-indexed view of a Map: a content hash per key plus one
// combined hash per bucket of keys, letting DiffKeys skip whole buckets
// that are provably identical between two snapshots instead of walking
// every entry (spec.md §4.7).
//
// It is rebuilt from scratch by UpdateHashes, which the spec explicitly
// allows ("lazy, at diff time") rather than maintained incrementally across
// every Put/Delete.
type Hasher struct {
	src     Map
	leaf    map[Key][32]byte
	buckets [numBuckets][32]byte
	members [numBuckets][]Key // keys whose digest falls in this bucket
}

// UpdateHashes computes a Hasher over m. It is cheap relative to a tree
// mutation (one blake3 hash per entry) and is meant to be called once per
// diff, not kept in sync incrementally.
func UpdateHashes(m Map) *Hasher {
	h := &Hasher{
		src:  m,
		leaf: make(map[Key][32]byte, len(m)),
	}
	// accumulate each bucket's member hashes (and which keys they belong
	// to), then fold the hashes into one bucket hash so bucket order
	// inside the source map never matters. members lets DiffKeys visit
	// only the keys of a differing bucket instead of rescanning src.
	var digests [numBuckets][][32]byte
	for k, v := range m {
		digest := leafHash(k, v)
		h.leaf[k] = digest
		b := bucketOf(digest)
		digests[b] = append(digests[b], digest)
		h.members[b] = append(h.members[b], k)
	}
	for b := 0; b < numBuckets; b++ {
		h.buckets[b] = foldHashes(digests[b])
	}
	return h
}

func leafHash(k Key, v Value) [32]byte {
	buf := make([]byte, 0, 64)
	buf = encodeKey(buf, k)
	buf = encodeValue(buf, v)
	return blake3.Sum256(buf)
}

func bucketOf(digest [32]byte) int {
	return int(digest[0])
}

// foldHashes combines a bucket's member leaf hashes order-independently by
// XOR-ing them together under one more hash, so adding/removing one member
// doesn't require re-hashing the others in sequence.
func foldHashes(members [][32]byte) [32]byte {
	var acc [32]byte
	for _, m := range members {
		for i := range acc {
			acc[i] ^= m[i]
		}
	}
	return blake3.Sum256(acc[:])
}

// DiffKeys returns every key whose value differs between the two snapshots
// a and b was built from, including keys present in only one of them
// (spec.md §4.7). Buckets whose combined hash matches are skipped entirely;
// a differing bucket is resolved by walking only that bucket's own member
// lists (Hasher.members), not the full source maps, so cost is one
// comparison per bucket plus the members of the buckets that differ.
func DiffKeys(a, b *Hasher) []Key {
	var diff []Key
	for bucket := 0; bucket < numBuckets; bucket++ {
		if a.buckets[bucket] == b.buckets[bucket] {
			continue
		}
		seen := make(map[Key]bool, len(a.members[bucket]))
		for _, k := range a.members[bucket] {
			seen[k] = true
			av := a.src[k]
			if bv, ok := b.src[k]; !ok || !av.Equal(bv) {
				diff = append(diff, k)
			}
		}
		for _, k := range b.members[bucket] {
			if seen[k] {
				continue
			}
			if _, ok := a.src[k]; !ok {
				diff = append(diff, k)
			}
		}
	}
	return diff
}
