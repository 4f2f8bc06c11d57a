package rtree

import (
	"math"

	"github.com/tormol/rtreesync/geo"
	"github.com/tormol/rtreesync/idgen"
)

// InsertID adds id with the given bounding box as a leaf. Grounded on
// storage/rStarTree.go's insert/chooseSubtree/adjustTree chain, generalized
// from the teacher's lat/long Rectangle to an n-dimensional geo.Box and
// switched from R*-tree forced reinsertion to classic Guttman quadratic
// split (spec.md §4.3 names PickSeeds/PickNext explicitly).
func (t *Tree) InsertID(id idgen.Id, box geo.Box) error {
	if err := t.checkBox(box); err != nil {
		return err
	}
	if _, exists := t.nodes[id]; exists {
		return ErrDuplicate
	}
	target := t.chooseLeaf(box)
	t.insertLeaf(id, target, box)
	return nil
}

// chooseLeaf descends from the root, at each internal node picking the
// child whose mbb needs the least enlargement to include box; ties go to
// the smaller current area, then the lower NodeId (spec.md §4.3).
func (t *Tree) chooseLeaf(box geo.Box) idgen.Id {
	cur := t.root
	for {
		n := t.nodes[cur]
		if t.isLeafParent(n) {
			return cur
		}
		best := n.children[0]
		bestNode := t.nodes[best]
		bestEnl := geo.Enlargement(bestNode.mbb, box)
		for _, c := range n.children[1:] {
			cn := t.nodes[c]
			enl := geo.Enlargement(cn.mbb, box)
			switch {
			case enl < bestEnl:
				best, bestNode, bestEnl = c, cn, enl
			case enl == bestEnl:
				if cn.mbb.Area() < bestNode.mbb.Area() ||
					(cn.mbb.Area() == bestNode.mbb.Area() && c.Less(best)) {
					best, bestNode, bestEnl = c, cn, enl
				}
			}
		}
		cur = best
	}
}

func (t *Tree) insertLeaf(id, target idgen.Id, box geo.Box) {
	tn := t.nodes[target]
	tn.children = append(tn.children, id)
	t.nodes[id] = &node{kind: kindLeaf, parent: target, hasParent: true, mbb: box}
	t.adjustFrom(target)
}

// adjustFrom walks upward from id, recomputing each node's mbb and
// splitting any node that now holds more than width children
// (spec.md §4.3's AdjustTree + Split).
func (t *Tree) adjustFrom(start idgen.Id) {
	id := start
	for {
		n := t.nodes[id]
		n.mbb = t.recalcMBB(n)
		if len(n.children) > t.width {
			sibling := t.split(n)
			n.mbb = t.recalcMBB(n)
			if !n.hasParent {
				t.promoteNewRoot(id, sibling)
				return
			}
			parent := n.parent
			pn := t.nodes[parent]
			pn.children = append(pn.children, sibling)
			sn := t.nodes[sibling]
			sn.parent, sn.hasParent = parent, true
			id = parent
			continue
		}
		if !n.hasParent {
			return
		}
		id = n.parent
	}
}

func (t *Tree) promoteNewRoot(oldRoot, sibling idgen.Id) {
	newRoot := t.freshNodeID()
	mbb := geo.Union(t.nodes[oldRoot].mbb, t.nodes[sibling].mbb)
	t.nodes[newRoot] = &node{kind: kindInternal, children: []idgen.Id{oldRoot, sibling}, mbb: mbb}
	on, sn := t.nodes[oldRoot], t.nodes[sibling]
	on.parent, on.hasParent = newRoot, true
	sn.parent, sn.hasParent = newRoot, true
	t.root = newRoot
}

// split performs Guttman's quadratic-cost split algorithm (PickSeeds then
// repeated PickNext) on n's children, leaving the first group in n and
// returning a fresh sibling holding the second group.
func (t *Tree) split(n *node) idgen.Id {
	entries := n.children
	i1, i2 := t.pickSeeds(entries)

	group1 := []idgen.Id{entries[i1]}
	group2 := []idgen.Id{entries[i2]}
	mbb1 := t.nodes[entries[i1]].mbb
	mbb2 := t.nodes[entries[i2]].mbb

	remaining := make([]idgen.Id, 0, len(entries)-2)
	for i, e := range entries {
		if i != i1 && i != i2 {
			remaining = append(remaining, e)
		}
	}

	min := t.minChildren()
	for len(remaining) > 0 {
		if len(group1)+len(remaining) == min {
			group1 = append(group1, remaining...)
			remaining = nil
			break
		}
		if len(group2)+len(remaining) == min {
			group2 = append(group2, remaining...)
			remaining = nil
			break
		}
		idx, toGroup1 := t.pickNext(remaining, mbb1, mbb2)
		e := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		if toGroup1 {
			group1 = append(group1, e)
			mbb1 = geo.Union(mbb1, t.nodes[e].mbb)
		} else {
			group2 = append(group2, e)
			mbb2 = geo.Union(mbb2, t.nodes[e].mbb)
		}
	}

	n.children = group1
	sibling := t.freshNodeID()
	sn := &node{kind: n.kind, children: group2}
	sn.mbb = t.recalcMBB(sn)
	t.nodes[sibling] = sn
	for _, c := range group2 {
		cn := t.nodes[c]
		cn.parent, cn.hasParent = sibling, true
	}
	return sibling
}

// pickSeeds picks the pair of entries that would waste the most area if
// placed in the same group, per Guttman 1984.
func (t *Tree) pickSeeds(entries []idgen.Id) (int, int) {
	bestI, bestJ := 0, 1
	bestWaste := math.Inf(-1)
	for i := 0; i < len(entries); i++ {
		bi := t.nodes[entries[i]].mbb
		for j := i + 1; j < len(entries); j++ {
			bj := t.nodes[entries[j]].mbb
			waste := geo.Union(bi, bj).Area() - bi.Area() - bj.Area()
			if waste > bestWaste {
				bestWaste = waste
				bestI, bestJ = i, j
			}
		}
	}
	return bestI, bestJ
}

// pickNext chooses which of the remaining entries has the strongest
// preference for one group over the other, and which group it prefers.
func (t *Tree) pickNext(remaining []idgen.Id, mbb1, mbb2 geo.Box) (idx int, toGroup1 bool) {
	bestDiff := -1.0
	for i, e := range remaining {
		b := t.nodes[e].mbb
		e1 := geo.Enlargement(mbb1, b)
		e2 := geo.Enlargement(mbb2, b)
		diff := e1 - e2
		if diff < 0 {
			diff = -diff
		}
		prefer1 := e1 < e2 || (e1 == e2 && mbb1.Area() <= mbb2.Area())
		if diff > bestDiff {
			bestDiff = diff
			idx, toGroup1 = i, prefer1
		}
	}
	return idx, toGroup1
}
