// Package replicate is the bridge between a tree snapshot and a CRDT
// (spec.md §4.8): diffing old/new snapshots into CRDT ops, folding incoming
// merge_diff deltas back onto a snapshot, and reconstructing a snapshot
// from a CRDT's value on join.
package replicate

import (
	"github.com/tormol/rtreesync/crdt"
	"github.com/tormol/rtreesync/snapshot"
)

// Replicator pushes local mutations to a CRDT. It holds no tree state of
// its own — package instance owns the tree and calls OnMutation with the
// before/after snapshots of each mutating operation.
type Replicator struct {
	crdt crdt.CRDT
}

// New wires a Replicator to a CRDT handle.
func New(c crdt.CRDT) *Replicator {
	return &Replicator{crdt: c}
}

// OnMutation computes diff_keys(old, new) and submits an add or remove op
// per differing key to the CRDT (spec.md §4.8 steps 1-2). A no-op mutation
// (old == new) submits nothing.
func (r *Replicator) OnMutation(old, new snapshot.Map) {
	keys := snapshot.DiffKeys(snapshot.UpdateHashes(old), snapshot.UpdateHashes(new))
	if len(keys) == 0 {
		return
	}
	ops := make([]crdt.Op, 0, len(keys))
	for _, k := range keys {
		if v, ok := new.Get(k); ok {
			ops = append(ops, crdt.Op{Key: k, Value: v})
		} else {
			ops = append(ops, crdt.Op{Remove: true, Key: k})
		}
	}
	r.crdt.Mutate(ops)
}

// ApplyDelta folds an incoming merge_diff delta over local using put/delete
// and returns the result, which wholesale replaces the local snapshot
// (spec.md §4.8: "No local R-tree algorithm runs on the merged state; the
// merged map *is* the new tree").
func ApplyDelta(local snapshot.Map, d crdt.Delta) snapshot.Map {
	out := local.Clone()
	for _, op := range d {
		if op.Remove {
			out.Delete(op.Key)
		} else {
			out.Put(op.Key, op.Value)
		}
	}
	return out
}

// Reconstruct folds a CRDT's fully-merged value over an empty snapshot, the
// join-time bootstrap described in spec.md §4.8.
func Reconstruct(c crdt.CRDT) snapshot.Map {
	return c.Read()
}
