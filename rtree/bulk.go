package rtree

import (
	"github.com/tormol/rtreesync/geo"
	"github.com/tormol/rtreesync/idgen"
)

// Item pairs a leaf id with its box, the unit bulk_insert and bulk_update
// operate on (spec.md §6.2).
type Item struct {
	ID  idgen.Id
	Box geo.Box
}

// BulkInsert inserts every item as a sequential fold of InsertID: it is not
// atomic, so a failure partway through leaves the earlier items inserted
// (spec.md §6.2 only requires the same end state as issuing them one at a
// time, not all-or-nothing).
func (t *Tree) BulkInsert(items []Item) error {
	for _, it := range items {
		if err := t.InsertID(it.ID, it.Box); err != nil {
			return err
		}
	}
	return nil
}

// BulkUpdate applies Update to every item in turn.
func (t *Tree) BulkUpdate(items []Item) error {
	for _, it := range items {
		if err := t.Update(it.ID, it.Box); err != nil {
			return err
		}
	}
	return nil
}

// BulkDelete deletes every id in turn. Like Delete, it never fails:
// deleting an absent id is a no-op.
func (t *Tree) BulkDelete(ids []idgen.Id) {
	for _, id := range ids {
		t.Delete(id)
	}
}
