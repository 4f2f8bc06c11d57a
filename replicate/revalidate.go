package replicate

import (
	"github.com/tormol/rtreesync/rtree"
	"github.com/tormol/rtreesync/snapshot"
)

// Revalidate repairs a snapshot that may hold dangling child references
// after a concurrent-split merge (spec.md §4.8's documented convergence
// gap: two peers that concurrently cause splits mint different internal
// NodeIds, and add-wins CRDT merge can leave a parent pointing at a child
// neither side agrees exists).
//
// This is the "(b) a revalidation pass after merge that rebuilds from the
// leaves" option spec.md §4.8 names directly, chosen over requiring a
// single writer since that can't be enforced by a library
// (see SPEC_FULL.md §4, Open Question). It discards every internal-node
// entry in m and rebuilds a fresh tree from the leaf entries alone, via the
// normal insert path — so the result always satisfies the structural
// invariants, at the cost of an arbitrary (not merge-preserving) new shape.
func Revalidate(m snapshot.Map, width, dim int, seed int64) snapshot.Map {
	var items []rtree.Item
	for k, v := range m {
		if k.Kind == snapshot.KeyNode && v.Node.Shape == snapshot.ShapeLeaf {
			items = append(items, rtree.Item{ID: k.Node, Box: v.Node.MBB})
		}
	}
	t := rtree.New(width, dim, seed)
	_ = t.BulkInsert(items) // leaf ids/boxes came from a validated map; can't fail
	return t.Snapshot()
}
