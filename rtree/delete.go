package rtree

import (
	"github.com/tormol/rtreesync/geo"
	"github.com/tormol/rtreesync/idgen"
)

// orphan is a leaf pulled out of an eliminated undersized subtree during
// CondenseTree, waiting to be reinserted through the normal insert path.
type orphan struct {
	id  idgen.Id
	box geo.Box
}

// Delete removes a leaf. Deleting an id that isn't a known leaf is a
// no-op, matching the idempotence BulkDelete and merge_diff need
// (spec.md §4.6).
func (t *Tree) Delete(id idgen.Id) error {
	n, ok := t.nodes[id]
	if !ok || n.kind != kindLeaf {
		return nil
	}
	parent := n.parent
	delete(t.nodes, id)
	removeChild(t.nodes[parent], id)
	t.condenseFrom(parent)
	return nil
}

// condenseFrom implements CondenseTree (spec.md §4.6): walking up from the
// parent of a just-removed leaf, any node left with fewer than
// ceil(width/2) children is detached from the tree and its descendant
// leaves are collected for reinsertion; every other node simply gets its
// mbb recomputed. Grounded on storage/rStarTree.go's condenseTree, with
// the teacher's *node unlinking replaced by arena deletes.
func (t *Tree) condenseFrom(start idgen.Id) {
	var orphans []orphan
	id := start
	for {
		n := t.nodes[id]
		isRoot := !n.hasParent
		if !isRoot && len(n.children) < t.minChildren() {
			parent := n.parent
			removeChild(t.nodes[parent], id)
			orphans = append(orphans, t.collectLeaves(id)...)
			t.deleteSubtree(id)
			id = parent
			continue
		}
		n.mbb = t.recalcMBB(n)
		if isRoot {
			break
		}
		id = n.parent
	}

	root := t.nodes[t.root]
	if len(root.children) == 1 && t.nodes[root.children[0]].kind == kindInternal {
		onlyChild := root.children[0]
		delete(t.nodes, t.root)
		cn := t.nodes[onlyChild]
		cn.hasParent = false
		t.root = onlyChild
	}

	for _, o := range orphans {
		target := t.chooseLeaf(o.box)
		t.insertLeaf(o.id, target, o.box)
	}
}

func (t *Tree) collectLeaves(id idgen.Id) []orphan {
	n := t.nodes[id]
	if n.kind == kindLeaf {
		return []orphan{{id: id, box: n.mbb}}
	}
	var out []orphan
	for _, c := range n.children {
		out = append(out, t.collectLeaves(c)...)
	}
	return out
}

func (t *Tree) deleteSubtree(id idgen.Id) {
	n := t.nodes[id]
	if n.kind == kindInternal {
		for _, c := range n.children {
			t.deleteSubtree(c)
		}
	}
	delete(t.nodes, id)
}
