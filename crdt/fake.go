package crdt

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tormol/rtreesync/snapshot"
)

// entry holds every tagged value currently believed live for a key. A key
// with no tags left is absent. Keeping the full set (rather than a single
// winner) is what makes this an *observed-remove* map: a remove only
// clears the tags known at the time it was issued, so a concurrent add
// using a tag the remove never saw survives the merge.
type entry struct {
	tags map[Tag]snapshot.Value
}

// Fake is a synchronous, in-memory add-wins observed-remove map CRDT,
// grounded on spec.md §9's design note that the engine should be testable
// against "an in-memory fake that synchronously delivers merge_diff".
// It resolves concurrent adds of the same key by last-write-wins on the
// lexicographically greatest tag, approximating spec.md §4.8's
// "last-write-wins on identical keys" without a shared clock.
//
// Fake's SetNeighbours only wires other *Fake values: a real CRDT fabric
// would carry its own transport and wire format instead of a direct
// in-process call.
type Fake struct {
	mu         sync.Mutex
	name       string
	data       map[snapshot.Key]*entry
	neighbours []*Fake
	sink       Sink
}

// NewFake creates an empty Fake CRDT. name is used only for diagnostics.
func NewFake(name string) *Fake {
	return &Fake{name: name, data: make(map[snapshot.Key]*entry)}
}

func (f *Fake) String() string { return f.name }

// SetSink registers the owner to notify of incoming merge_diff deliveries.
func (f *Fake) SetSink(s Sink) {
	f.mu.Lock()
	f.sink = s
	f.mu.Unlock()
}

// SetNeighbours replaces the set of peers this Fake propagates deltas to.
func (f *Fake) SetNeighbours(peers []CRDT) {
	list := make([]*Fake, 0, len(peers))
	for _, p := range peers {
		if fp, ok := p.(*Fake); ok && fp != f {
			list = append(list, fp)
		}
	}
	f.mu.Lock()
	f.neighbours = list
	f.mu.Unlock()
}

// Read returns the current winning value per live key.
func (f *Fake) Read() snapshot.Map {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := snapshot.New()
	for k, e := range f.data {
		if v, ok := winner(e); ok {
			out.Put(k, v)
		}
	}
	return out
}

// winner picks the value of an entry's lexicographically greatest tag,
// this Fake's tie-break rule for "last write wins on identical keys".
func winner(e *entry) (snapshot.Value, bool) {
	var best Tag
	var bestVal snapshot.Value
	found := false
	for tag, v := range e.tags {
		if !found || greater(tag, best) {
			best, bestVal, found = tag, v, true
		}
	}
	return bestVal, found
}

func greater(a, b Tag) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// Mutate applies ops locally, then delivers the resulting delta
// synchronously to every neighbour. Adds are tagged with a fresh Tag;
// removes carry the tags this replica currently knows about for that key,
// so a neighbour merging the delta only clears the tags this replica had
// actually observed (observed-remove semantics: a concurrent add tagged
// after this remove was issued survives).
func (f *Fake) Mutate(ops []Op) {
	delta := make(Delta, len(ops))
	f.mu.Lock()
	for i, op := range ops {
		if op.Remove {
			if e, ok := f.data[op.Key]; ok {
				for tag := range e.tags {
					op.RemoveTags = append(op.RemoveTags, tag)
				}
			}
		} else {
			op.Tag = newTag()
		}
		f.applyLocked(op)
		delta[i] = op
	}
	neighbours := append([]*Fake(nil), f.neighbours...)
	f.mu.Unlock()

	for _, n := range neighbours {
		n.receive(delta)
	}
}

// receive merges an incoming delta from a neighbour's Mutate call and, if
// an owner is registered, reports it as a merge_diff delivery.
func (f *Fake) receive(d Delta) {
	f.mu.Lock()
	for _, op := range d {
		f.applyLocked(op)
	}
	sink := f.sink
	f.mu.Unlock()

	if sink != nil {
		sink.MergeDiff(d)
	}
}

func (f *Fake) applyLocked(op Op) {
	if op.Remove {
		e, ok := f.data[op.Key]
		if !ok {
			return
		}
		for _, tag := range op.RemoveTags {
			delete(e.tags, tag)
		}
		if len(e.tags) == 0 {
			delete(f.data, op.Key)
		}
		return
	}
	e := f.data[op.Key]
	if e == nil {
		e = &entry{tags: make(map[Tag]snapshot.Value)}
		f.data[op.Key] = e
	}
	e.tags[op.Tag] = op.Value
}

func newTag() Tag {
	return Tag(uuid.New())
}
