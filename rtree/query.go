package rtree

import (
	"github.com/tormol/rtreesync/geo"
	"github.com/tormol/rtreesync/idgen"
)

// Query returns the ids of every leaf whose box overlaps box, descending
// only into subtrees whose mbb itself overlaps (spec.md §4.4). Grounded on
// storage/rStarTree.go's FindWithin/searchChildren recursion.
func (t *Tree) Query(box geo.Box) []idgen.Id {
	var out []idgen.Id
	t.queryRec(t.root, box, &out)
	return out
}

func (t *Tree) queryRec(id idgen.Id, box geo.Box, out *[]idgen.Id) {
	n := t.nodes[id]
	if n.kind == kindLeaf {
		if geo.Overlaps(n.mbb, box) {
			*out = append(*out, id)
		}
		return
	}
	for _, c := range n.children {
		if geo.Overlaps(t.nodes[c].mbb, box) {
			t.queryRec(c, box, out)
		}
	}
}

// QueryDepth returns the NodeIds (not leaf ids) of internal nodes at the
// given depth (root is depth 0) whose mbb overlaps box, for diagnosing tree
// shape (spec.md §4.4). Depths at or beyond the tree's leaf level yield no
// nodes, since leaves aren't internal nodes.
func (t *Tree) QueryDepth(box geo.Box, depth int) []idgen.Id {
	level := []idgen.Id{t.root}
	for d := 0; d < depth; d++ {
		var next []idgen.Id
		for _, id := range level {
			n := t.nodes[id]
			if n.kind != kindInternal {
				continue
			}
			for _, c := range n.children {
				if t.nodes[c].kind == kindInternal {
					next = append(next, c)
				}
			}
		}
		level = next
	}
	var out []idgen.Id
	for _, id := range level {
		if geo.Overlaps(t.nodes[id].mbb, box) {
			out = append(out, id)
		}
	}
	return out
}
