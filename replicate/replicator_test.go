package replicate

import (
	"testing"

	"github.com/tormol/rtreesync/crdt"
	"github.com/tormol/rtreesync/geo"
	"github.com/tormol/rtreesync/idgen"
	"github.com/tormol/rtreesync/rtree"
	"github.com/tormol/rtreesync/snapshot"
)

func box(t *testing.T, lo, hi float64) geo.Box {
	t.Helper()
	b, err := geo.NewBox(geo.Range{Min: lo, Max: hi}, geo.Range{Min: lo, Max: hi})
	if err != nil {
		t.Fatalf("NewBox: %s", err)
	}
	return b
}

func TestOnMutationPushesAddThenRemove(t *testing.T) {
	fake := crdt.NewFake("a")
	r := New(fake)

	tr := rtree.New(4, 2, 1)
	old := tr.Snapshot()
	if err := tr.InsertID(idgen.Of(1), box(t, 0, 1)); err != nil {
		t.Fatalf("InsertID: %s", err)
	}
	next := tr.Snapshot()
	r.OnMutation(old, next)

	merged := fake.Read()
	if _, ok := merged.Get(snapshot.NodeKey(idgen.Of(1))); !ok {
		t.Fatalf("expected CRDT to receive the inserted leaf's key")
	}

	old = next
	if err := tr.Delete(idgen.Of(1)); err != nil {
		t.Fatalf("Delete: %s", err)
	}
	next = tr.Snapshot()
	r.OnMutation(old, next)

	merged = fake.Read()
	if _, ok := merged.Get(snapshot.NodeKey(idgen.Of(1))); ok {
		t.Fatalf("expected CRDT to have dropped the deleted leaf's key")
	}
}

func TestOnMutationNoopWhenUnchanged(t *testing.T) {
	fake := crdt.NewFake("a")
	r := New(fake)
	tr := rtree.New(4, 2, 1)
	snap := tr.Snapshot()
	r.OnMutation(snap, snap)
	if len(fake.Read()) != 0 {
		t.Fatalf("expected no ops submitted for an unchanged snapshot")
	}
}

func TestApplyDeltaFoldsOps(t *testing.T) {
	local := snapshot.New()
	k1 := snapshot.NodeKey(idgen.Of(1))
	k2 := snapshot.NodeKey(idgen.Of(2))
	local.Put(k1, snapshot.Value{Kind: snapshot.KeyNode, Node: snapshot.Node{Shape: snapshot.ShapeLeaf, MBB: box(t, 0, 1)}})

	delta := crdt.Delta{
		{Remove: true, Key: k1},
		{Key: k2, Value: snapshot.Value{Kind: snapshot.KeyNode, Node: snapshot.Node{Shape: snapshot.ShapeLeaf, MBB: box(t, 2, 3)}}},
	}
	out := ApplyDelta(local, delta)
	if _, ok := out.Get(k1); ok {
		t.Fatalf("expected k1 removed")
	}
	if _, ok := out.Get(k2); !ok {
		t.Fatalf("expected k2 added")
	}
	if _, ok := local.Get(k1); !ok {
		t.Fatalf("ApplyDelta must not mutate its input")
	}
}

func TestReconstructEqualsCRDTRead(t *testing.T) {
	fake := crdt.NewFake("a")
	r := New(fake)
	tr := rtree.New(4, 2, 1)
	old := tr.Snapshot()
	if err := tr.InsertID(idgen.Of("x"), box(t, 5, 6)); err != nil {
		t.Fatalf("InsertID: %s", err)
	}
	r.OnMutation(old, tr.Snapshot())

	rebuilt := Reconstruct(fake)
	if _, ok := rebuilt.Get(snapshot.NodeKey(idgen.Of("x"))); !ok {
		t.Fatalf("expected Reconstruct to surface the replicated leaf")
	}
}

func TestRevalidateRebuildsConsistentTreeFromLeaves(t *testing.T) {
	m := snapshot.New()
	root := idgen.Of("orphan-root")
	dangling := idgen.Fresh
	ghostChild, _ := dangling(idgen.NewState(1))

	// An internal node whose child entry doesn't exist: invariant 1 broken.
	m.Put(snapshot.RootKey(), snapshot.Value{Kind: snapshot.KeyRoot, Root: root})
	m.Put(snapshot.TicketKey(), snapshot.Value{Kind: snapshot.KeyTicket, Ticket: idgen.NewState(1)})
	m.Put(snapshot.NodeKey(root), snapshot.Value{
		Kind: snapshot.KeyNode,
		Node: snapshot.Node{Shape: snapshot.ShapeInternal, Children: []idgen.Id{ghostChild}, MBB: box(t, 0, 1)},
	})
	// Two genuine leaves that should survive the rebuild.
	m.Put(snapshot.NodeKey(idgen.Of(1)), snapshot.Value{
		Kind: snapshot.KeyNode,
		Node: snapshot.Node{Shape: snapshot.ShapeLeaf, Parent: root, HasParent: true, MBB: box(t, 1, 2)},
	})
	m.Put(snapshot.NodeKey(idgen.Of(2)), snapshot.Value{
		Kind: snapshot.KeyNode,
		Node: snapshot.Node{Shape: snapshot.ShapeLeaf, Parent: root, HasParent: true, MBB: box(t, 3, 4)},
	})

	fixed := Revalidate(m, 4, 2, 1)
	tr, err := rtree.FromSnapshot(fixed, 4, 2)
	if err != nil {
		t.Fatalf("FromSnapshot(revalidated): %s", err)
	}
	if !tr.Consistent() {
		t.Fatalf("expected revalidated tree to be structurally consistent")
	}
	if tr.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", tr.Count())
	}
}
