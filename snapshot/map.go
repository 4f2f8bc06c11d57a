// Package snapshot is the flat key->value representation of a tree
// (spec.md §3, §9): the only thing that ever gets replicated. The R-tree
// engine works against an in-memory arena for speed, and converts to/from
// this Map only at the snapshot/Merkle boundary.
package snapshot

import (
	"github.com/tormol/rtreesync/geo"
	"github.com/tormol/rtreesync/idgen"
)

// KeyKind distinguishes the three shapes of key a snapshot can hold.
type KeyKind uint8

const (
	// KeyRoot names the single entry holding the tree's root NodeId.
	KeyRoot KeyKind = iota
	// KeyTicket names the single entry holding the NodeId-generator state.
	KeyTicket
	// KeyNode names an internal-node or leaf entry, keyed by its Id.
	KeyNode
)

// Key is one of `root`, `ticket`, or a NodeId/leaf Id (spec.md §3).
type Key struct {
	Kind KeyKind
	Node idgen.Id // meaningful only when Kind == KeyNode
}

// RootKey is the well-known key holding the current root Id.
func RootKey() Key { return Key{Kind: KeyRoot} }

// TicketKey is the well-known key holding the id-generator state.
func TicketKey() Key { return Key{Kind: KeyTicket} }

// NodeKey addresses the entry for a given node or leaf Id.
func NodeKey(id idgen.Id) Key { return Key{Kind: KeyNode, Node: id} }

// NodeShape distinguishes an internal node's entry from a leaf's.
type NodeShape uint8

const (
	ShapeInternal NodeShape = iota
	ShapeLeaf
)

// Node is the value stored for a KeyNode entry: an internal node's children
// and mbb, or a leaf's parent and mbb (spec.md §3's "Node record").
type Node struct {
	Shape     NodeShape
	Children  []idgen.Id // ordered; internal nodes only
	Parent    idgen.Id
	HasParent bool
	MBB       geo.Box
}

// Equal reports whether two Node values are identical, order-sensitively
// for Children (order is meaningful: it mirrors the teacher engine's entry
// order and affects nothing semantically, but a stable snapshot needs a
// stable equality check to avoid spurious diffs).
func (n Node) Equal(o Node) bool {
	if n.Shape != o.Shape || n.HasParent != o.HasParent || !geo.Equal(n.MBB, o.MBB) {
		return false
	}
	if n.HasParent && n.Parent != o.Parent {
		return false
	}
	if len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if n.Children[i] != o.Children[i] {
			return false
		}
	}
	return true
}

// Value is the tagged union stored under a Key: a root pointer, the
// generator ticket, or a Node record.
type Value struct {
	Kind   KeyKind
	Root   idgen.Id
	Ticket idgen.State
	Node   Node
}

// Equal reports whether two values are identical.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KeyRoot:
		return v.Root == o.Root
	case KeyTicket:
		return v.Ticket == o.Ticket
	default:
		return v.Node.Equal(o.Node)
	}
}

// Map is the tree snapshot T: every mutation produces a new Map (or, for
// in-place convenience, mutates a working copy before the engine hands it
// off to the replicator — the replicator only ever looks at two Maps at a
// time and never holds a reference across a mutation).
type Map map[Key]Value

// New returns an empty snapshot.
func New() Map { return make(Map) }

// Put sets key to value, like the spec's map `put`.
func (m Map) Put(k Key, v Value) { m[k] = v }

// Delete removes key, like the spec's map `delete`. Deleting an absent key
// is a silent no-op, matching the idempotence merge_diff needs.
func (m Map) Delete(k Key) { delete(m, k) }

// Get returns the value for key and whether it was present.
func (m Map) Get(k Key) (Value, bool) {
	v, ok := m[k]
	return v, ok
}

// Clone returns an independent copy of m so callers can mutate the copy
// without perturbing a snapshot another component still holds (e.g. the
// replicator diffing against the pre-mutation Map).
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
