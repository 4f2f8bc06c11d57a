package instance

import "github.com/tormol/rtreesync/crdt"

// handleNodeUp adds or refreshes peers, then pushes the full neighbour set
// to the CRDT. Adding an already-known peer just overwrites its handle,
// making node_up idempotent (spec.md §6.4).
func (in *Instance) handleNodeUp(peers []Peer) {
	for _, p := range peers {
		in.peers[p.Name] = p.CRDT
	}
	in.pushNeighbours()
}

// handleNodeDown removes peers by name; removing an unknown name is a
// no-op map delete, making node_down idempotent and tolerant of an empty
// list (spec.md §6.4).
func (in *Instance) handleNodeDown(names []string) {
	for _, n := range names {
		delete(in.peers, n)
	}
	in.pushNeighbours()
}

func (in *Instance) pushNeighbours() {
	if in.crdtHandle == nil {
		return
	}
	list := make([]crdt.CRDT, 0, len(in.peers))
	for _, c := range in.peers {
		list = append(list, c)
	}
	in.crdtHandle.SetNeighbours(list)
}
