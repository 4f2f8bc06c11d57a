// Package rtree is the dynamic R-tree engine (spec.md §4.3-§4.6): insertion,
// query, update and deletion over an in-memory arena of nodes keyed by
// idgen.Id. The arena is a map, not the teacher's linked *node pointers
// (storage/rStarTree.go), because the spec's replicated representation
// (package snapshot) is itself Id-keyed — using the same key space inside
// the engine means Snapshot/FromSnapshot are a straight walk, not a
// pointer<->id translation layer.
package rtree

import (
	"errors"
	"fmt"

	"github.com/tormol/rtreesync/geo"
	"github.com/tormol/rtreesync/idgen"
	"github.com/tormol/rtreesync/snapshot"
)

var (
	// ErrDuplicate is returned by InsertID when id already names an entry.
	ErrDuplicate = errors.New("rtree: id already exists")
	// ErrUnknownID is returned by Update when id does not name a leaf.
	ErrUnknownID = errors.New("rtree: id not found")
)

type nodeKind uint8

const (
	kindInternal nodeKind = iota
	kindLeaf
)

// node is one arena entry: either an internal node (children, no data box
// of its own beyond the mbb it derives from them) or a leaf (a caller's
// item, identified by its own user Id).
type node struct {
	kind      nodeKind
	parent    idgen.Id
	hasParent bool
	children  []idgen.Id // internal only, ordered
	mbb       geo.Box
}

// Tree is a single, unreplicated R-tree. Every exported method assumes
// single-writer access; package instance is what serializes callers.
type Tree struct {
	width int
	dim   int
	root  idgen.Id
	rng   idgen.State
	nodes map[idgen.Id]*node
}

// New creates an empty tree. width bounds the fan-out of every node
// (spec.md §6.1's `width`); dim is the dimensionality every inserted Box
// must match. seed fixes the NodeId generator so tree shape is
// reproducible across runs given the same sequence of operations.
func New(width, dim int, seed int64) *Tree {
	rng := idgen.NewState(seed)
	rootID, rng := idgen.Fresh(rng)
	t := &Tree{
		width: width,
		dim:   dim,
		root:  rootID,
		rng:   rng,
		nodes: make(map[idgen.Id]*node),
	}
	t.nodes[rootID] = &node{kind: kindInternal, mbb: geo.Zero(dim)}
	return t
}

// Width, Dim report the tree's configured fan-out and dimensionality.
func (t *Tree) Width() int { return t.width }
func (t *Tree) Dim() int   { return t.dim }

// Consistent reports whether every child reference in the arena points at
// an existing entry (invariant 1, spec.md §3). A snapshot folded together
// from two peers that both caused a split concurrently can violate this;
// callers should run a revalidation pass (package replicate) when it does.
func (t *Tree) Consistent() bool {
	for _, n := range t.nodes {
		for _, c := range n.children {
			if _, ok := t.nodes[c]; !ok {
				return false
			}
		}
	}
	return true
}

// Count returns the number of leaves (data items) currently stored.
func (t *Tree) Count() int {
	n := 0
	for _, e := range t.nodes {
		if e.kind == kindLeaf {
			n++
		}
	}
	return n
}

// Height returns the number of internal levels above the leaves: 0 for an
// empty tree or one holding only direct leaf children of the root.
func (t *Tree) Height() int {
	h := 0
	id := t.root
	for {
		n := t.nodes[id]
		if len(n.children) == 0 || t.nodes[n.children[0]].kind == kindLeaf {
			return h
		}
		h++
		id = n.children[0]
	}
}

func (t *Tree) freshNodeID() idgen.Id {
	id, ns := idgen.Fresh(t.rng)
	t.rng = ns
	return id
}

func (t *Tree) recalcMBB(n *node) geo.Box {
	if len(n.children) == 0 {
		return geo.Zero(t.dim)
	}
	boxes := make([]geo.Box, len(n.children))
	for i, c := range n.children {
		boxes[i] = t.nodes[c].mbb
	}
	return geo.UnionAll(boxes...)
}

func (t *Tree) isLeafParent(n *node) bool {
	if len(n.children) == 0 {
		return true
	}
	return t.nodes[n.children[0]].kind == kindLeaf
}

func removeChild(n *node, id idgen.Id) {
	for i, c := range n.children {
		if c == id {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

func (t *Tree) minChildren() int {
	return (t.width + 1) / 2
}

func (t *Tree) checkBox(box geo.Box) error {
	if box.Dim() != t.dim {
		return fmt.Errorf("rtree: box has %d dimensions, tree has %d", box.Dim(), t.dim)
	}
	return nil
}

// Snapshot flattens the arena into the replicated Map form (spec.md §3).
func (t *Tree) Snapshot() snapshot.Map {
	m := snapshot.New()
	m.Put(snapshot.RootKey(), snapshot.Value{Kind: snapshot.KeyRoot, Root: t.root})
	m.Put(snapshot.TicketKey(), snapshot.Value{Kind: snapshot.KeyTicket, Ticket: t.rng})
	for id, n := range t.nodes {
		shape := snapshot.ShapeInternal
		if n.kind == kindLeaf {
			shape = snapshot.ShapeLeaf
		}
		var children []idgen.Id
		if len(n.children) > 0 {
			children = append([]idgen.Id(nil), n.children...)
		}
		m.Put(snapshot.NodeKey(id), snapshot.Value{
			Kind: snapshot.KeyNode,
			Node: snapshot.Node{
				Shape:     shape,
				Children:  children,
				Parent:    n.parent,
				HasParent: n.hasParent,
				MBB:       n.mbb,
			},
		})
	}
	return m
}

// FromSnapshot rebuilds a Tree's working arena from a replicated Map, for
// example after a CRDT merge on join (spec.md §4.8).
func FromSnapshot(m snapshot.Map, width, dim int) (*Tree, error) {
	rootVal, ok := m.Get(snapshot.RootKey())
	if !ok {
		return nil, errors.New("rtree: snapshot missing root key")
	}
	ticketVal, ok := m.Get(snapshot.TicketKey())
	if !ok {
		return nil, errors.New("rtree: snapshot missing ticket key")
	}
	t := &Tree{
		width: width,
		dim:   dim,
		root:  rootVal.Root,
		rng:   ticketVal.Ticket,
		nodes: make(map[idgen.Id]*node),
	}
	for k, v := range m {
		if k.Kind != snapshot.KeyNode {
			continue
		}
		kind := kindInternal
		if v.Node.Shape == snapshot.ShapeLeaf {
			kind = kindLeaf
		}
		var children []idgen.Id
		if len(v.Node.Children) > 0 {
			children = append([]idgen.Id(nil), v.Node.Children...)
		}
		t.nodes[k.Node] = &node{
			kind:      kind,
			parent:    v.Node.Parent,
			hasParent: v.Node.HasParent,
			children:  children,
			mbb:       v.Node.MBB,
		}
	}
	if _, ok := t.nodes[t.root]; !ok {
		return nil, errors.New("rtree: snapshot root id has no node entry")
	}
	return t, nil
}
