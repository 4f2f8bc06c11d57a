package snapshot

import (
	"testing"

	"github.com/tormol/rtreesync/geo"
	"github.com/tormol/rtreesync/idgen"
)

func box(t *testing.T, min, max float64) geo.Box {
	t.Helper()
	b, err := geo.NewBox(geo.Range{Min: min, Max: max}, geo.Range{Min: min, Max: max})
	if err != nil {
		t.Fatalf("NewBox: %s", err)
	}
	return b
}

func leafValue(t *testing.T, parent idgen.Id, lo, hi float64) Value {
	return Value{
		Kind: KeyNode,
		Node: Node{Shape: ShapeLeaf, Parent: parent, HasParent: true, MBB: box(t, lo, hi)},
	}
}

func TestDiffKeysEmptyVsEmpty(t *testing.T) {
	a := UpdateHashes(New())
	b := UpdateHashes(New())
	if d := DiffKeys(a, b); len(d) != 0 {
		t.Errorf("expected no diff between two empty snapshots, got %v", d)
	}
}

func TestDiffKeysDetectsAddition(t *testing.T) {
	root := idgen.Of("r")
	before := New()
	after := before.Clone()
	after.Put(NodeKey(idgen.Of(1)), leafValue(t, root, 0, 1))

	d := DiffKeys(UpdateHashes(before), UpdateHashes(after))
	if len(d) != 1 || d[0] != NodeKey(idgen.Of(1)) {
		t.Fatalf("expected diff [NodeKey(1)], got %v", d)
	}
}

func TestDiffKeysDetectsRemoval(t *testing.T) {
	root := idgen.Of("r")
	before := New()
	before.Put(NodeKey(idgen.Of(1)), leafValue(t, root, 0, 1))
	after := New()

	d := DiffKeys(UpdateHashes(before), UpdateHashes(after))
	if len(d) != 1 || d[0] != NodeKey(idgen.Of(1)) {
		t.Fatalf("expected diff [NodeKey(1)], got %v", d)
	}
}

func TestDiffKeysDetectsValueChange(t *testing.T) {
	root := idgen.Of("r")
	before := New()
	before.Put(NodeKey(idgen.Of(1)), leafValue(t, root, 0, 1))
	after := before.Clone()
	after.Put(NodeKey(idgen.Of(1)), leafValue(t, root, 5, 6))

	d := DiffKeys(UpdateHashes(before), UpdateHashes(after))
	if len(d) != 1 || d[0] != NodeKey(idgen.Of(1)) {
		t.Fatalf("expected diff [NodeKey(1)], got %v", d)
	}
}

func TestDiffKeysIgnoresUnchangedEntries(t *testing.T) {
	root := idgen.Of("r")
	before := New()
	for i := 0; i < 40; i++ {
		before.Put(NodeKey(idgen.Of(i)), leafValue(t, root, float64(i), float64(i)+1))
	}
	after := before.Clone()
	after.Put(NodeKey(idgen.Of(7)), leafValue(t, root, 100, 101))

	d := DiffKeys(UpdateHashes(before), UpdateHashes(after))
	if len(d) != 1 || d[0] != NodeKey(idgen.Of(7)) {
		t.Fatalf("expected exactly one diff (key 7), got %v", d)
	}
}

func TestDiffKeysRootAndTicket(t *testing.T) {
	before := New()
	before.Put(RootKey(), Value{Kind: KeyRoot, Root: idgen.Of("a")})
	before.Put(TicketKey(), Value{Kind: KeyTicket, Ticket: idgen.NewState(1)})
	after := before.Clone()
	after.Put(RootKey(), Value{Kind: KeyRoot, Root: idgen.Of("b")})

	d := DiffKeys(UpdateHashes(before), UpdateHashes(after))
	if len(d) != 1 || d[0] != RootKey() {
		t.Fatalf("expected diff [RootKey], got %v", d)
	}
}
