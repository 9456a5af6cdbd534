package transport

import (
	"context"
	"fmt"
	"sort"

	"github.com/dreamware/toroidal-sim/internal/collectives"
	"github.com/dreamware/toroidal-sim/internal/faults"
	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/partition"
)

// Transporter migrates Transportees between workers over the quadtree's
// neighbor graph, forwarding multi-hop when a destination is not a
// direct neighbor of the sending rank (spec.md §4.5). Like halofield.Field,
// a Transporter is built for a rank that may not currently own a leaf —
// it sits with an empty neighbor list until a repartition gives it one.
type Transporter struct {
	rank partition.NodeID
	tree *partition.QuadTree
	aoi  geom.AOI
	bus  collectives.Bus

	neighbors []route // ascending by rank, direct neighbors under aoi
	outbound  map[partition.NodeID][]Transportee

	inbox   []Transportee
	stats   Stats
	lastErr error
}

// NewTransporter constructs a Transporter for rank, registers its
// pre/post-commit callbacks with tree, and loads its initial direct
// neighbor set. aoi need not match any field's halo thickness; it only
// has to be wide enough that "direct neighbor" means "reachable in one
// hop" for however far an entity can move in a single tick.
func NewTransporter(rank partition.NodeID, tree *partition.QuadTree, aoi geom.AOI, bus collectives.Bus) (*Transporter, error) {
	t := &Transporter{
		rank:     rank,
		tree:     tree,
		aoi:      aoi,
		bus:      bus,
		outbound: make(map[partition.NodeID][]Transportee),
	}
	if err := t.reload(); err != nil {
		return nil, err
	}
	tree.RegisterPreCommit(t.preCommit)
	tree.RegisterPostCommit(t.postCommit)
	return t, nil
}

// route is one direct neighbor's rank and owned rect, the information
// Migrate needs to pick a forwarding hop that makes progress toward a
// non-neighbor destination.
type route struct {
	rank partition.NodeID
	rect geom.Rect
}

func (t *Transporter) reload() error {
	leaf := t.tree.Node(t.rank)
	if leaf == nil || !leaf.IsLeaf() {
		t.neighbors = nil
		return nil
	}
	peers, err := t.tree.Neighbors(t.rank, t.aoi)
	if err != nil {
		return err
	}
	routes := make([]route, 0, len(peers))
	for _, p := range peers {
		routes = append(routes, route{rank: p.WorkerID(), rect: p.Rect})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].rank < routes[j].rank })
	t.neighbors = routes
	return nil
}

// preCommit implements spec.md §4.4.2 step 1 for the transporter: there
// is nothing to snapshot. A topology mutation only ever runs between
// ticks (during the coordination loop's rebalance window), never mid-Sync,
// so the transporter's buffers are always empty — drained by the
// preceding tick's Sync — by the time a pre-commit callback fires.
func (t *Transporter) preCommit(level int, nodeID partition.NodeID) {}

// postCommit implements spec.md §4.4.2 step 3 for the transporter:
// recompute the direct-neighbor set against the new topology.
func (t *Transporter) postCommit(level int, nodeID partition.NodeID) {
	if err := t.reload(); err != nil {
		t.lastErr = err
	}
}

// Err returns and clears the error, if any, recorded by the most recent
// post-commit callback.
func (t *Transporter) Err() error {
	err := t.lastErr
	t.lastErr = nil
	return err
}

// Stats returns a snapshot of this transporter's operation counters.
func (t *Transporter) Stats() Snapshot { return t.stats.Snapshot() }

// Inbox returns and clears the records that arrived at this rank during
// the most recent Sync (spec.md §4.5's "arrived payloads"); the caller
// owns dispatching each record's payload variant into the local field
// and/or scheduler.
func (t *Transporter) Inbox() []Transportee {
	in := t.inbox
	t.inbox = nil
	return in
}

// Migrate implements spec.md §4.5's migrate: enqueues rec onto the
// buffer for a direct neighbor, chosen as the destination itself when it
// is a direct neighbor, otherwise whichever direct neighbor's owned rect
// lies toroidally closest to rec.Location — the neighbor "whose halo
// brings us closer" spec.md names, ties broken by rank for determinism.
// Always picking the same rank regardless of destination (e.g. always
// the lowest-ranked neighbor) has no progress guarantee in general and
// can cycle; picking toward the destination does.
func (t *Transporter) Migrate(rec Transportee) error {
	if len(t.neighbors) == 0 {
		return faults.New(faults.KindUnroutable, int(t.rank), "", rec.Location.String(),
			fmt.Errorf("transport: rank %d has no direct neighbors to route through", t.rank))
	}
	dest := partition.NodeID(rec.Destination)
	worldSize := t.tree.World().Size()
	via := t.neighbors[0].rank
	bestDist := int64(-1)
	for _, nb := range t.neighbors {
		if nb.rank == dest {
			via = dest
			bestDist = -1
			break
		}
		d := toroidalDistSq(rectCenter(nb.rect), rec.Location, worldSize)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			via = nb.rank
		}
	}
	t.outbound[via] = append(t.outbound[via], rec)
	t.stats.recordEnqueue()
	return nil
}

func rectCenter(r geom.Rect) geom.Point {
	dim := r.Dim()
	out := make(geom.Point, dim)
	for i := 0; i < dim; i++ {
		out[i] = (r.Lo[i] + r.Hi[i]) / 2
	}
	return out
}

func toroidalDistSq(a, b geom.Point, worldSize geom.Point) int64 {
	var total int64
	for i := range a {
		d := geom.TorDiff(a[i], b[i], worldSize[i])
		total += int64(d) * int64(d)
	}
	return total
}

// Sync implements spec.md §4.5's five-step sync protocol: flush and
// count each neighbor buffer, exchange raw bytes via a neighbor
// all-to-all(-v) pair sized by those counts, decode each received
// segment and either deliver to the inbox (destination reached) or
// re-enqueue toward its destination (multi-hop forwarding, ridden on the
// caller's next Sync), then reset.
func (t *Transporter) Sync(ctx context.Context) error {
	size := t.bus.Size()
	sendCounts := make([]int, size)
	sendDispls := make([]int, size)
	encoded := make(map[int][]byte, len(t.outbound))
	for via, recs := range t.outbound {
		buf, err := encodeRecords(recs)
		if err != nil {
			return faults.New(faults.KindSerialization, int(t.rank), "", "", err)
		}
		encoded[int(via)] = buf
	}
	var send []byte
	for r := 0; r < size; r++ {
		sendDispls[r] = len(send)
		if buf, ok := encoded[r]; ok {
			send = append(send, buf...)
			sendCounts[r] = len(buf)
		}
	}
	t.outbound = make(map[partition.NodeID][]Transportee)
	t.stats.recordBytesSent(len(send))

	recvCounts, err := t.bus.NeighborAllToAll(ctx, sendCounts)
	if err != nil {
		return faults.New(faults.KindTransportFault, int(t.rank), "", "", err)
	}
	recvDispls := make([]int, size)
	off := 0
	for r, c := range recvCounts {
		recvDispls[r] = off
		off += c
	}
	recv, err := t.bus.NeighborAllToAllV(ctx, send, sendCounts, sendDispls, recvCounts, recvDispls)
	if err != nil {
		return faults.New(faults.KindTransportFault, int(t.rank), "", "", err)
	}

	for r, c := range recvCounts {
		if c == 0 {
			continue
		}
		block := recv[recvDispls[r] : recvDispls[r]+c]
		records, err := decodeRecords(block)
		if err != nil {
			return faults.New(faults.KindSerialization, int(t.rank), "", "", err)
		}
		for _, rec := range records {
			if rec.Destination == int(t.rank) {
				t.inbox = append(t.inbox, rec)
				t.stats.recordDeliver()
				continue
			}
			if err := t.Migrate(rec); err != nil {
				return err
			}
			t.stats.recordForward()
		}
	}
	t.stats.recordSync()
	return nil
}
