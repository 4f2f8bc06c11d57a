// Package crdt specifies the delta-CRDT the replication layer consumes
// (spec.md §6.3): the core only ever talks to this interface. The CRDT's
// own implementation is an external collaborator per spec.md §1 — this
// package additionally ships Fake, an in-memory add-wins map used to
// exercise package replicate and package instance in tests without a real
// CRDT fabric (spec.md §9's design note).
package crdt

import "github.com/tormol/rtreesync/snapshot"

// Op is one entry of a delta: either an add carrying the key's current
// value, or a remove naming just the key. Tag and RemoveTags are set by a
// CRDT implementation's Mutate, not by callers — the replicator only ever
// builds the Remove/Key/Value fields from a snapshot diff.
type Op struct {
	Remove     bool
	Key        snapshot.Key
	Value      snapshot.Value // meaningful only when !Remove
	Tag        Tag            // set on Add ops; used for add-wins resolution
	RemoveTags []Tag          // set on Remove ops; the tags this replica had observed
}

// Tag distinguishes concurrent adds of the same key so an add-wins map can
// tell which one is "newer" without a shared clock.
type Tag [16]byte

// Delta is the sequence of add/remove events a merge_diff delivers
// (spec.md §4.8, §6.3).
type Delta []Op

// CRDT is the minimal interface an add-wins observed-remove map must
// satisfy for the replicator and instance actor to drive it (spec.md §6.3).
type CRDT interface {
	// Mutate applies ops locally and propagates them to neighbours.
	Mutate(ops []Op)
	// Read returns the CRDT's fully-merged current value.
	Read() snapshot.Map
	// SetNeighbours replaces the set of peer CRDTs deltas propagate to.
	SetNeighbours(peers []CRDT)
	// SetSink registers where incoming merge_diff deliveries are reported.
	SetSink(s Sink)
}

// Sink receives merge_diff deliveries — deltas that arrived from a
// neighbour's Mutate call. An Instance implements Sink and registers
// itself with its CRDT via SetSink.
type Sink interface {
	MergeDiff(d Delta)
}
