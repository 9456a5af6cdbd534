package halofield

import (
	"context"
	"fmt"
	"sort"

	"github.com/dreamware/toroidal-sim/internal/collectives"
	"github.com/dreamware/toroidal-sim/internal/faults"
	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/gridstore"
	"github.com/dreamware/toroidal-sim/internal/partition"
)

// Migrator is the transporter-facing dependency AddObject uses to forward
// a write whose point falls outside this worker's origPart (spec.md §4.4:
// "enqueue a transportee to the partition owner"). Fields constructed
// without one treat an out-of-local write as fatal, the documented
// behavior for numeric grids, which cannot be migrated as entities
// (faults.KindOutOfLocalWrite).
type Migrator interface {
	Migrate(object any, destination int, location geom.Point, fieldIndex int) error
}

// RemoteReader answers a Get for a point outside haloPart via the
// blocking remote read proxy (spec.md §4.6). A Field without one returns
// the unresolved faults.OutOfLocal error for such points.
type RemoteReader interface {
	GetCell(ctx context.Context, fieldIndex int, owner int, p geom.Point) ([]byte, error)
}

// NewStorage builds a fresh Storage[T] covering rect — the factory a
// Field uses every time it (re)allocates its backing storage, so the same
// Field works over both gridstore constructors (NewNumeric, NewObject).
type NewStorage[T any] func(rect geom.Rect) gridstore.Storage[T]

// Field binds a gridstore.Storage[T] to a partition manager leaf: spec's
// HaloField<T>. It owns origPart/haloPart/privatePart, the neighbor list,
// and (during a rebalance) the group's tempStor snapshot.
type Field[T any] struct {
	index      int
	rank       partition.NodeID
	tree       *partition.QuadTree
	aoi        geom.AOI
	initVal    T
	newStorage NewStorage[T]
	bus        collectives.Bus
	migrator   Migrator
	reader     RemoteReader

	storage gridstore.Storage[T]

	origPart, haloPart, privatePart geom.Rect
	neighbors                       []neighbor

	tempStor []gridstore.Storage[T]
	stats    Stats
	lastErr  error
}

// NewField constructs a Field registered as fieldIndex, owned by rank, over
// tree, with halo thickness aoi and zero-value initVal (the reset value
// remove_object writes). It registers its pre/post-commit callbacks with
// tree and loads its initial origPart/haloPart/neighbors from the tree's
// current topology. rank need not currently own a leaf — every rank the
// id pool can ever hand out should construct one of these at startup, so
// it is ready to reload() live the moment a repartition assigns it one.
func NewField[T any](fieldIndex int, rank partition.NodeID, tree *partition.QuadTree, aoi geom.AOI,
	initVal T, newStorage NewStorage[T], bus collectives.Bus) (*Field[T], error) {
	f := &Field[T]{
		index:      fieldIndex,
		rank:       rank,
		tree:       tree,
		aoi:        aoi,
		initVal:    initVal,
		newStorage: newStorage,
		bus:        bus,
	}
	if err := f.reload(); err != nil {
		return nil, err
	}
	tree.RegisterPreCommit(f.preCommit)
	tree.RegisterPostCommit(f.postCommit)
	return f, nil
}

// Index returns this field's registered field index.
func (f *Field[T]) Index() int { return f.index }

// SetMigrator wires the transporter AddObject forwards out-of-local
// writes through. Omit for numeric fields, which cannot migrate a bare
// value as an entity.
func (f *Field[T]) SetMigrator(m Migrator) { f.migrator = m }

// SetRemoteReader wires the remote read proxy client Get falls back to
// for points outside haloPart.
func (f *Field[T]) SetRemoteReader(r RemoteReader) { f.reader = r }

// Stats returns a snapshot of this field's operation counters.
func (f *Field[T]) Stats() Snapshot { return f.stats.Snapshot() }

// Err returns and clears the error, if any, recorded by the most recent
// repartition pre/post-commit callback. Pre/post-commit callbacks have no
// error return (the tree runs every registered callback unconditionally,
// concurrently when there is more than one); callers that drive topology
// mutations must check Err on every field afterward.
func (f *Field[T]) Err() error {
	err := f.lastErr
	f.lastErr = nil
	return err
}

// OrigPart returns the worker's owned rectangle.
func (f *Field[T]) OrigPart() geom.Rect { return f.origPart }

// HaloPart returns the owned rectangle expanded by the halo thickness.
func (f *Field[T]) HaloPart() geom.Rect { return f.haloPart }

// PrivatePart returns the owned rectangle shrunk by the halo thickness —
// the region guaranteed not to be any neighbor's halo.
func (f *Field[T]) PrivatePart() geom.Rect { return f.privatePart }

// reload recomputes origPart/haloPart/privatePart/neighbors from the
// tree's current topology and reshapes the backing storage (spec.md
// §4.4.2's post-commit reload() contract, also used at construction).
//
// A rank whose node does not currently exist, or exists but is no longer
// a leaf, is dormant: it owns no region and sits out ticks and syncs
// until some later repartition hands it a leaf again. This happens
// routinely — the id pool backing the quadtree is sized well past the
// initial leaf count so repartitions have fresh ids to draw from, and
// every rank in that pool gets a Field constructed up front whether or
// not it currently has a leaf. Dormancy is not an error.
func (f *Field[T]) reload() error {
	leaf := f.tree.Node(f.rank)
	if leaf == nil || !leaf.IsLeaf() {
		f.origPart = geom.Rect{}
		f.haloPart = geom.Rect{}
		f.privatePart = geom.Rect{}
		f.neighbors = nil
		f.storage = nil
		return nil
	}
	f.origPart = leaf.Rect
	f.haloPart = f.origPart.Resize(f.aoi.Point())
	f.privatePart = f.origPart.Resize(f.aoi.Negated())

	peers, err := f.tree.Neighbors(f.rank, f.aoi)
	if err != nil {
		return err
	}
	worldSize := f.tree.World().Size()
	neighbors := make([]neighbor, 0, len(peers))
	for _, p := range peers {
		neighbors = append(neighbors, computeNeighbor(p.WorkerID(), f.origPart, f.haloPart, f.aoi, p.Rect, worldSize))
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].rank < neighbors[j].rank })
	f.neighbors = neighbors
	f.storage = f.newStorage(f.haloPart)
	return nil
}

// AddObject implements spec.md §4.4's add_object: writes locally if point
// is within origPart, otherwise forwards to the owning worker via
// Migrator.
func (f *Field[T]) AddObject(p geom.Point, v T) error {
	if f.storage == nil {
		return faults.New(faults.KindTopology, int(f.rank), "", p.String(),
			fmt.Errorf("halofield: field %d is dormant (rank %d owns no current leaf)", f.index, f.rank))
	}
	if f.origPart.Contains(p) {
		idx, ok := f.storage.FlatIndex(p)
		if !ok {
			return faults.New(faults.KindSerialization, int(f.rank), f.origPart.String(), p.String(),
				fmt.Errorf("halofield: point %v inside origPart but outside storage rect %v", p, f.storage.Rect()))
		}
		f.storage.Set(idx, v)
		f.stats.recordWrite()
		return nil
	}
	owner, err := f.tree.Owner(p)
	if err != nil {
		return err
	}
	if f.migrator == nil {
		return faults.New(faults.KindOutOfLocalWrite, int(f.rank), fmt.Sprint(owner), p.String(),
			fmt.Errorf("halofield: add_object(%v) is outside origPart and field %d has no migrator", p, f.index))
	}
	if err := f.migrator.Migrate(v, int(owner), p, f.index); err != nil {
		return faults.New(faults.KindOutOfLocalWrite, int(f.rank), fmt.Sprint(owner), p.String(), err)
	}
	f.stats.recordMigrate()
	return nil
}

// RemoveObject implements spec.md §4.4's remove_object: resets the cell
// at p (which must be within haloPart) to the field's initVal.
func (f *Field[T]) RemoveObject(p geom.Point) error {
	if f.storage == nil {
		return faults.New(faults.KindTopology, int(f.rank), "", p.String(),
			fmt.Errorf("halofield: field %d is dormant (rank %d owns no current leaf)", f.index, f.rank))
	}
	idx, ok := f.storage.FlatIndex(p)
	if !ok {
		return fmt.Errorf("halofield: remove_object(%v) outside haloPart %v", p, f.haloPart)
	}
	f.storage.Set(idx, f.initVal)
	f.stats.recordWrite()
	return nil
}

// MoveObject implements spec.md §4.4's move_object: remove at from, add
// at to.
func (f *Field[T]) MoveObject(from, to geom.Point, v T) error {
	if err := f.RemoveObject(from); err != nil {
		return err
	}
	return f.AddObject(to, v)
}

// Get implements spec.md §4.4's get: a local read within haloPart, or a
// blocking remote read via RemoteReader otherwise — explicitly the slow
// path.
func (f *Field[T]) Get(ctx context.Context, p geom.Point) (T, error) {
	var zero T
	if f.storage == nil {
		return zero, faults.New(faults.KindTopology, int(f.rank), "", p.String(),
			fmt.Errorf("halofield: field %d is dormant (rank %d owns no current leaf)", f.index, f.rank))
	}
	if idx, ok := f.storage.FlatIndex(p); ok {
		return f.storage.Get(idx), nil
	}
	owner, err := f.tree.Owner(p)
	if err != nil {
		return zero, err
	}
	if f.reader == nil {
		return zero, &faults.OutOfLocal{FieldIndex: f.index, Point: p, Owner: int(owner)}
	}
	raw, err := f.reader.GetCell(ctx, f.index, int(owner), p)
	if err != nil {
		return zero, err
	}
	cell := singleCellRect(p)
	tmp := f.newStorage(cell)
	if err := tmp.Unpack([]geom.Rect{cell}, raw); err != nil {
		return zero, faults.New(faults.KindSerialization, int(f.rank), "", p.String(), err)
	}
	idx, _ := tmp.FlatIndex(p)
	f.stats.recordRemoteGet()
	return tmp.Get(idx), nil
}

// GetCell implements the remote read proxy's per-worker endpoint for this
// field (spec.md §4.6): verifies p is within origPart and, if so, returns
// its serialized value; otherwise returns a faults.OutOfLocal naming the
// owning worker.
func (f *Field[T]) GetCell(p geom.Point) ([]byte, error) {
	if f.storage == nil {
		return nil, faults.New(faults.KindTopology, int(f.rank), "", p.String(),
			fmt.Errorf("halofield: field %d is dormant (rank %d owns no current leaf)", f.index, f.rank))
	}
	if !f.origPart.Contains(p) {
		owner, err := f.tree.Owner(p)
		if err != nil {
			return nil, err
		}
		return nil, &faults.OutOfLocal{FieldIndex: f.index, Point: p, Owner: int(owner)}
	}
	return f.storage.Pack([]geom.Rect{singleCellRect(p)})
}

func singleCellRect(p geom.Point) geom.Rect {
	hi := make(geom.Point, len(p))
	for i, v := range p {
		hi[i] = v + 1
	}
	return geom.NewRect(0, p, hi)
}

// Sync implements spec.md §4.4.1's halo sync protocol: for every neighbor,
// pack sendParam, exchange raw bytes via a neighbor all-to-all(-v) pair,
// and unpack the received buffer into recvParam.
func (f *Field[T]) Sync(ctx context.Context) error {
	size := f.bus.Size()
	sendCounts := make([]int, size)
	sendDispls := make([]int, size)
	packed := make(map[int][]byte, len(f.neighbors))
	for _, nb := range f.neighbors {
		buf, err := f.storage.Pack(nb.sendParam)
		if err != nil {
			return faults.New(faults.KindSerialization, int(f.rank), "", "", err)
		}
		packed[int(nb.rank)] = buf
	}
	var send []byte
	for r := 0; r < size; r++ {
		sendDispls[r] = len(send)
		if buf, ok := packed[r]; ok {
			send = append(send, buf...)
			sendCounts[r] = len(buf)
		}
	}
	recvCounts, err := f.bus.NeighborAllToAll(ctx, sendCounts)
	if err != nil {
		return faults.New(faults.KindTransportFault, int(f.rank), "", "", err)
	}
	recvDispls := make([]int, size)
	off := 0
	for r, c := range recvCounts {
		recvDispls[r] = off
		off += c
	}
	recv, err := f.bus.NeighborAllToAllV(ctx, send, sendCounts, sendDispls, recvCounts, recvDispls)
	if err != nil {
		return faults.New(faults.KindTransportFault, int(f.rank), "", "", err)
	}
	for _, nb := range f.neighbors {
		r := int(nb.rank)
		c := recvCounts[r]
		if c == 0 {
			continue
		}
		buf := recv[recvDispls[r] : recvDispls[r]+c]
		if err := f.storage.Unpack(nb.recvParam, buf); err != nil {
			return faults.New(faults.KindSerialization, int(f.rank), "", "", err)
		}
	}
	f.stats.recordSync()
	return nil
}
