// Package instance is the per-peer actor that owns a tree and serializes
// every request against it (spec.md §4.9, §5), bridging the R-tree engine
// (package rtree) to the replication layer (packages snapshot, crdt,
// replicate). Grounded on forwarder/manager.go's single select-loop
// pattern: one goroutine owns all mutable state, requests arrive as
// structs carrying their own reply channel, and membership changes update
// a tracked peer set the same way Manager tracks live connections.
package instance

import (
	"sync/atomic"
	"time"

	"github.com/tormol/rtreesync/crdt"
	"github.com/tormol/rtreesync/geo"
	"github.com/tormol/rtreesync/idgen"
	"github.com/tormol/rtreesync/logger"
	"github.com/tormol/rtreesync/replicate"
	"github.com/tormol/rtreesync/rtree"
	"github.com/tormol/rtreesync/snapshot"
)

// Item pairs a caller-supplied id with a box, the unit BulkInsert and
// BulkUpdate operate on (spec.md §6.2).
type Item struct {
	ID  interface{}
	Box geo.Box
}

// Metadata is the introspection payload `metadata` returns (spec.md §4.9
// lists the operation but not its shape; supplemented per SPEC_FULL.md §5).
type Metadata struct {
	Width          int
	Dimensionality int
	Mode           Mode
	Count          int
	Height         int
}

// call is one request to the actor loop: exec runs against the owned tree,
// mutates tells the loop whether to diff snapshots and replicate
// afterwards, and reply carries the result back to the caller.
type call struct {
	label   string
	mutates bool
	exec    func(t *rtree.Tree) (interface{}, error)
	reply   chan callResult
}

type callResult struct {
	value interface{}
	err   error
}

// Instance is a single-writer actor over one tree (spec.md §4.9).
type Instance struct {
	cfg        Config
	tree       *rtree.Tree
	crdtHandle crdt.CRDT
	replicator *replicate.Replicator
	peers      map[string]crdt.CRDT
	log        *logger.Logger
	statCount  atomic.Int64
	statHeight atomic.Int64

	reqs     chan call
	nodeUp   chan []Peer
	nodeDown chan []string
	merges   chan crdt.Delta
	stop     chan struct{}
}

// Peer pairs a peer's name with a handle to its CRDT — the information
// node_up/node_down need to recompute the CRDT neighbour set (spec.md §6.4).
type Peer struct {
	Name string
	CRDT crdt.CRDT
}

// New builds and starts an Instance. c may be nil in ModeStandalone; in
// ModeDistributed it must be a live CRDT handle, and this Instance
// registers itself as its merge_diff sink.
func New(cfg Config, c crdt.CRDT) *Instance {
	cfg = cfg.normalize()
	in := &Instance{
		cfg:      cfg,
		tree:     rtree.New(cfg.Width, cfg.Dimensionality, cfg.Seed),
		peers:    make(map[string]crdt.CRDT),
		log:      logger.NewStderrLogger(cfg.Verbose),
		reqs:     make(chan call),
		nodeUp:   make(chan []Peer),
		nodeDown: make(chan []string),
		merges:   make(chan crdt.Delta, 8),
		stop:     make(chan struct{}),
	}
	if c != nil && cfg.Mode == ModeDistributed {
		in.crdtHandle = c
		in.replicator = replicate.New(c)
		c.SetSink(in)
	}
	in.log.AddReport("tree-stats", logger.Schedule{Min: cfg.StatsMinInterval, Max: cfg.StatsMaxInterval}, in.logStats)
	go in.run()
	return in
}

// logStats is the tree-stats report registered with AddReport: it reports
// leaf count and tree height, the same lightweight introspection Metadata
// exposes on demand (SPEC_FULL.md §5). It reads the atomic counters handle()
// updates after every mutation rather than round-tripping through call(),
// since AddReport's callback runs while the Logger's own write lock is
// held and call() would deadlock against a concurrent Debug trace.
func (in *Instance) logStats(c *logger.Composer, sinceLast time.Duration) {
	count := in.statCount.Load()
	height := in.statHeight.Load()
	c.Writeln("tree: %s leaves, height %d (last report %s ago)",
		logger.FormatLeafCount(uint64(count)),
		height, logger.FormatSinceLast(sinceLast))
}

// Stop shuts the actor loop down and closes its logger. Safe to call once.
func (in *Instance) Stop() {
	close(in.stop)
	in.log.Close()
}

func (in *Instance) run() {
	for {
		select {
		case c := <-in.reqs:
			in.handle(c)
		case peers := <-in.nodeUp:
			in.handleNodeUp(peers)
		case names := <-in.nodeDown:
			in.handleNodeDown(names)
		case d := <-in.merges:
			in.applyMergeDiff(d)
		case <-in.stop:
			return
		}
	}
}

func (in *Instance) handle(c call) {
	if in.tree == nil {
		in.log.Debug("%s: bad tree", c.label)
		c.reply <- callResult{err: ErrBadTree}
		return
	}
	var old snapshot.Map
	replicating := c.mutates && in.replicator != nil
	if replicating {
		old = in.tree.Snapshot()
	}
	v, err := c.exec(in.tree)
	if err == nil && replicating {
		in.replicator.OnMutation(old, in.tree.Snapshot())
	}
	if err == nil && c.mutates {
		in.statCount.Store(int64(in.tree.Count()))
		in.statHeight.Store(int64(in.tree.Height()))
	}
	if err != nil {
		in.log.Debug("%s: %s", c.label, err)
	} else {
		in.log.Debug("%s: ok", c.label)
	}
	c.reply <- callResult{value: v, err: err}
}

// call submits exec to the actor loop and waits for its result. It selects
// on in.stop on both the send and the receive so a caller racing with Stop
// returns ErrBadTree instead of blocking
// forever on a loop that has already exited. label names the operation for
// the verbose-gated Debug trace handle() emits (spec.md §6.1's `verbose`).
func (in *Instance) call(label string, mutates bool, exec func(t *rtree.Tree) (interface{}, error)) (interface{}, error) {
	reply := make(chan callResult, 1)
	select {
	case in.reqs <- call{label: label, mutates: mutates, exec: exec, reply: reply}:
	case <-in.stop:
		return nil, ErrBadTree
	}
	select {
	case r := <-reply:
		return r.value, r.err
	case <-in.stop:
		return nil, ErrBadTree
	}
}

// Insert adds a single item (spec.md §4.3).
func (in *Instance) Insert(userID interface{}, box geo.Box) error {
	_, err := in.call("insert", true, func(t *rtree.Tree) (interface{}, error) {
		return nil, t.InsertID(idgen.Of(userID), box)
	})
	return err
}

// BulkInsert folds Insert over items (spec.md §4.3's bulk insert).
func (in *Instance) BulkInsert(items []Item) error {
	conv := toRtreeItems(items)
	_, err := in.call("bulk_insert", true, func(t *rtree.Tree) (interface{}, error) {
		return nil, t.BulkInsert(conv)
	})
	return err
}

// Update replaces an existing leaf's box (spec.md §4.5).
func (in *Instance) Update(userID interface{}, box geo.Box) error {
	_, err := in.call("update", true, func(t *rtree.Tree) (interface{}, error) {
		return nil, t.Update(idgen.Of(userID), box)
	})
	return err
}

// BulkUpdate folds Update over items.
func (in *Instance) BulkUpdate(items []Item) error {
	conv := toRtreeItems(items)
	_, err := in.call("bulk_update", true, func(t *rtree.Tree) (interface{}, error) {
		return nil, t.BulkUpdate(conv)
	})
	return err
}

// Delete removes a leaf, idempotently (spec.md §4.6).
func (in *Instance) Delete(userID interface{}) error {
	_, err := in.call("delete", true, func(t *rtree.Tree) (interface{}, error) {
		return nil, t.Delete(idgen.Of(userID))
	})
	return err
}

// BulkDelete folds Delete over ids.
func (in *Instance) BulkDelete(userIDs []interface{}) error {
	ids := make([]idgen.Id, len(userIDs))
	for i, u := range userIDs {
		ids[i] = idgen.Of(u)
	}
	_, err := in.call("bulk_delete", true, func(t *rtree.Tree) (interface{}, error) {
		t.BulkDelete(ids)
		return nil, nil
	})
	return err
}

// Query returns the ids whose stored box overlaps box (spec.md §4.4).
func (in *Instance) Query(box geo.Box) ([]idgen.Id, error) {
	v, err := in.call("query", false, func(t *rtree.Tree) (interface{}, error) {
		return t.Query(box), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]idgen.Id), nil
}

// QueryDepth returns the NodeIds at depth whose mbb overlaps box.
func (in *Instance) QueryDepth(box geo.Box, depth int) ([]idgen.Id, error) {
	v, err := in.call("query_depth", false, func(t *rtree.Tree) (interface{}, error) {
		return t.QueryDepth(box, depth), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]idgen.Id), nil
}

// Tree returns the current tree snapshot (spec.md §4.9's `tree` operation).
func (in *Instance) Tree() (snapshot.Map, error) {
	v, err := in.call("tree", false, func(t *rtree.Tree) (interface{}, error) {
		return t.Snapshot(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(snapshot.Map), nil
}

// Metadata reports introspection data (SPEC_FULL.md §5).
func (in *Instance) Metadata() (Metadata, error) {
	v, err := in.call("metadata", false, func(t *rtree.Tree) (interface{}, error) {
		return Metadata{
			Width:          t.Width(),
			Dimensionality: t.Dim(),
			Mode:           in.cfg.Mode,
			Count:          t.Count(),
			Height:         t.Height(),
		}, nil
	})
	if err != nil {
		return Metadata{}, err
	}
	return v.(Metadata), nil
}

// NodeUp delivers a node_up membership event (spec.md §6.4).
func (in *Instance) NodeUp(peers []Peer) { in.nodeUp <- peers }

// NodeDown delivers a node_down membership event (spec.md §6.4).
func (in *Instance) NodeDown(names []string) { in.nodeDown <- names }

// MergeDiff implements crdt.Sink: it queues an incoming delta for the actor
// loop to fold onto the tree (spec.md §4.8, §6.3).
func (in *Instance) MergeDiff(d crdt.Delta) { in.merges <- d }

// applyMergeDiff folds d onto the local snapshot and rebuilds the working
// tree from the result (spec.md §4.8: "the merged map *is* the new tree").
// If the fold leaves dangling child references — the concurrent-split gap
// spec.md §4.8 documents — it runs the revalidation pass before giving up.
func (in *Instance) applyMergeDiff(d crdt.Delta) {
	if in.tree == nil {
		return
	}
	merged := replicate.ApplyDelta(in.tree.Snapshot(), d)
	t, err := rtree.FromSnapshot(merged, in.cfg.Width, in.cfg.Dimensionality)
	if err != nil {
		return
	}
	if !t.Consistent() {
		merged = replicate.Revalidate(merged, in.cfg.Width, in.cfg.Dimensionality, in.cfg.Seed)
		t, err = rtree.FromSnapshot(merged, in.cfg.Width, in.cfg.Dimensionality)
		if err != nil {
			return
		}
	}
	in.tree = t
	in.statCount.Store(int64(t.Count()))
	in.statHeight.Store(int64(t.Height()))
	in.log.Debug("merge_diff: applied %d ops", len(d))
}

func toRtreeItems(items []Item) []rtree.Item {
	conv := make([]rtree.Item, len(items))
	for i, it := range items {
		conv[i] = rtree.Item{ID: idgen.Of(it.ID), Box: it.Box}
	}
	return conv
}
