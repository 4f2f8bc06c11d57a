package rtree

import (
	"github.com/tormol/rtreesync/geo"
	"github.com/tormol/rtreesync/idgen"
)

// Update replaces a leaf's box in place and propagates the mbb change
// upward until a node's mbb doesn't change or the root is reached. Unlike
// Delete+Insert this never re-chooses the leaf's parent, so repeated small
// moves can degrade locality over time — an accepted simplification
// (spec.md §4.5).
func (t *Tree) Update(id idgen.Id, newBox geo.Box) error {
	if err := t.checkBox(newBox); err != nil {
		return err
	}
	n, ok := t.nodes[id]
	if !ok || n.kind != kindLeaf {
		return ErrUnknownID
	}
	if geo.Equal(n.mbb, newBox) {
		return nil
	}
	n.mbb = newBox
	if n.hasParent {
		t.propagateUpdate(n.parent)
	}
	return nil
}

func (t *Tree) propagateUpdate(start idgen.Id) {
	id := start
	for {
		n := t.nodes[id]
		newMBB := t.recalcMBB(n)
		if geo.Equal(newMBB, n.mbb) {
			return
		}
		n.mbb = newMBB
		if !n.hasParent {
			return
		}
		id = n.parent
	}
}
