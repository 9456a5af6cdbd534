package halofield

import (
	"context"
	"fmt"

	"github.com/dreamware/toroidal-sim/internal/faults"
	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/gridstore"
	"github.com/dreamware/toroidal-sim/internal/partition"
)

// CollectGroup implements spec.md §4.4's collect_group: every current
// descendant leaf of nodeID packs its origPart and gathers it to the
// group's lowest-ranked leaf (groupRoot), which assembles a single
// Storage[T] covering nodeID's full rectangle. Every other group member
// gets a nil result; only the root's return value is meaningful. Callers
// outside this rank's group (f.rank not a descendant leaf of nodeID) get
// a nil, nil no-op.
func (f *Field[T]) CollectGroup(ctx context.Context, level int, nodeID partition.NodeID) (gridstore.Storage[T], error) {
	group, err := f.tree.GroupLeaves(nodeID)
	if err != nil {
		return nil, err
	}
	if !leafRanksContain(group, f.rank) {
		return nil, nil
	}
	if f.storage == nil {
		return nil, faults.New(faults.KindTopology, int(f.rank), "", "",
			fmt.Errorf("halofield: field %d is dormant but listed in group %d", f.index, nodeID))
	}
	root := groupRoot(group)
	buf, err := f.storage.Pack([]geom.Rect{f.origPart})
	if err != nil {
		return nil, faults.New(faults.KindSerialization, int(f.rank), "", "", err)
	}
	comm := f.bus.SubCommunicator(level, leafRanksAsInt(group))
	gathered, err := f.bus.Gather(ctx, buf, int(root), comm)
	if err != nil {
		return nil, faults.New(faults.KindTransportFault, int(f.rank), "", "", err)
	}
	if f.rank != root {
		return nil, nil
	}
	groupNode := f.tree.Node(nodeID)
	combined := f.newStorage(groupNode.Rect)
	for i, member := range group {
		if err := combined.Unpack([]geom.Rect{member.Rect}, gathered[i]); err != nil {
			return nil, faults.New(faults.KindSerialization, int(f.rank), "", "", err)
		}
	}
	return combined, nil
}

// DistributeGroup implements spec.md §4.4's distribute_group, the inverse
// of CollectGroup: the root packs full's sub-rect for each current
// descendant leaf of nodeID and scatters it; every member unpacks its
// share into its own storage at its current origPart. full is ignored
// (and may be nil) on every rank but groupRoot.
func (f *Field[T]) DistributeGroup(ctx context.Context, level int, nodeID partition.NodeID, full gridstore.Storage[T]) error {
	group, err := f.tree.GroupLeaves(nodeID)
	if err != nil {
		return err
	}
	if !leafRanksContain(group, f.rank) {
		return nil
	}
	root := groupRoot(group)
	comm := f.bus.SubCommunicator(level, leafRanksAsInt(group))
	var bufs [][]byte
	if f.rank == root {
		if full == nil {
			return faults.New(faults.KindTopology, int(f.rank), "", "",
				fmt.Errorf("halofield: distribute_group(%d) called on root with no storage", nodeID))
		}
		bufs = make([][]byte, len(group))
		for i, member := range group {
			b, err := full.Pack([]geom.Rect{member.Rect})
			if err != nil {
				return faults.New(faults.KindSerialization, int(f.rank), "", "", err)
			}
			bufs[i] = b
		}
	}
	recv, err := f.bus.Scatter(ctx, bufs, int(root), comm)
	if err != nil {
		return faults.New(faults.KindTransportFault, int(f.rank), "", "", err)
	}
	if f.storage == nil {
		return faults.New(faults.KindTopology, int(f.rank), "", "",
			fmt.Errorf("halofield: field %d is dormant but listed in group %d", f.index, nodeID))
	}
	if err := f.storage.Unpack([]geom.Rect{f.origPart}, recv); err != nil {
		return faults.New(faults.KindSerialization, int(f.rank), "", "", err)
	}
	return nil
}

// Collect implements spec.md §4.4's collect: every current leaf in the
// whole world packs its origPart and gathers it to dst, which assembles
// the full world grid. Used for I/O (snapshotting the simulation) rather
// than rebalance, which uses the narrower CollectGroup/DistributeGroup
// scoped to one subtree.
func (f *Field[T]) Collect(ctx context.Context, dst int) (gridstore.Storage[T], error) {
	leaves := f.tree.Leaves()
	if !leafRanksContain(leaves, f.rank) {
		return nil, faults.New(faults.KindTopology, int(f.rank), "", "",
			fmt.Errorf("halofield: collect called on rank %d, which owns no current leaf", f.rank))
	}
	if f.storage == nil {
		return nil, faults.New(faults.KindTopology, int(f.rank), "", "",
			fmt.Errorf("halofield: field %d is dormant", f.index))
	}
	buf, err := f.storage.Pack([]geom.Rect{f.origPart})
	if err != nil {
		return nil, faults.New(faults.KindSerialization, int(f.rank), "", "", err)
	}
	comm := f.bus.SubCommunicator(0, leafRanksAsInt(leaves))
	gathered, err := f.bus.Gather(ctx, buf, dst, comm)
	if err != nil {
		return nil, faults.New(faults.KindTransportFault, int(f.rank), "", "", err)
	}
	if int(f.rank) != dst {
		return nil, nil
	}
	full := f.newStorage(f.tree.World())
	for i, member := range leaves {
		if err := full.Unpack([]geom.Rect{member.Rect}, gathered[i]); err != nil {
			return nil, faults.New(faults.KindSerialization, int(f.rank), "", "", err)
		}
	}
	return full, nil
}

// Distribute implements spec.md §4.4's distribute, the inverse of
// Collect: src packs full's sub-rect for every current leaf in the world
// and scatters it; every worker unpacks its share into its own storage.
// full is ignored (and may be nil) on every rank but src.
func (f *Field[T]) Distribute(ctx context.Context, src int, full gridstore.Storage[T]) error {
	leaves := f.tree.Leaves()
	if !leafRanksContain(leaves, f.rank) {
		return faults.New(faults.KindTopology, int(f.rank), "", "",
			fmt.Errorf("halofield: distribute called on rank %d, which owns no current leaf", f.rank))
	}
	comm := f.bus.SubCommunicator(0, leafRanksAsInt(leaves))
	var bufs [][]byte
	if int(f.rank) == src {
		if full == nil {
			return faults.New(faults.KindTopology, int(f.rank), "", "",
				fmt.Errorf("halofield: distribute called on src rank %d with no storage", src))
		}
		bufs = make([][]byte, len(leaves))
		for i, member := range leaves {
			b, err := full.Pack([]geom.Rect{member.Rect})
			if err != nil {
				return faults.New(faults.KindSerialization, int(f.rank), "", "", err)
			}
			bufs[i] = b
		}
	}
	recv, err := f.bus.Scatter(ctx, bufs, src, comm)
	if err != nil {
		return faults.New(faults.KindTransportFault, int(f.rank), "", "", err)
	}
	if err := f.storage.Unpack([]geom.Rect{f.origPart}, recv); err != nil {
		return faults.New(faults.KindSerialization, int(f.rank), "", "", err)
	}
	return nil
}
