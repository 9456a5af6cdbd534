package halofield

import (
	"context"
	"fmt"

	"github.com/dreamware/toroidal-sim/internal/faults"
	"github.com/dreamware/toroidal-sim/internal/gridstore"
	"github.com/dreamware/toroidal-sim/internal/partition"
)

// preCommit implements spec.md §4.4.2 step 1 via CollectGroup: if this
// worker's rank is (still) a descendant leaf of the mutating node, its
// origPart is gathered into the group master's tempStor snapshot.
// Workers outside the affected subtree are unaffected and do nothing.
//
// A split draws brand new ids for every child, so a worker whose own
// leaf is split never reappears in the post-mutation group under its old
// rank — it goes dormant, and the ids it used to hold are handed to
// whichever ranks the id pool had sitting idle. Every rank in the pool
// constructs a Field up front for this reason: it may be dormant for a
// while and picked up by a later repartition.
func (f *Field[T]) preCommit(level int, nodeID partition.NodeID) {
	combined, err := f.CollectGroup(context.Background(), level, nodeID)
	if err != nil {
		f.lastErr = err
		return
	}
	if combined != nil {
		f.tempStor = append(f.tempStor, combined)
	}
}

// postCommit implements spec.md §4.4.2 step 3: a worker in the new group
// reload()s against the new topology, then the group master pops its
// tempStor entry and DistributeGroup scatters it across the group's new
// members. A worker outside the new group whose node is no longer a leaf
// reload()s into dormancy; one that still owns a leaf outside the mutated
// subtree keeps its region, storage and neighbor list unchanged. Step 4 (the final sync() restoring halos) is
// the caller's responsibility, run once after every field's post-commit
// has completed.
func (f *Field[T]) postCommit(level int, nodeID partition.NodeID) {
	newGroup, err := f.tree.GroupLeaves(nodeID)
	if err != nil {
		f.lastErr = err
		return
	}
	if !leafRanksContain(newGroup, f.rank) {
		// Not part of the new group: either this rank never took part in
		// this subtree's rebalance, or it just lost its leaf and goes
		// dormant. Only the second case reloads (clearing region and
		// storage); there is no data transfer for this rank to do here.
		if n := f.tree.Node(f.rank); n == nil || !n.IsLeaf() {
			if err := f.reload(); err != nil {
				f.lastErr = err
			}
		}
		return
	}
	if err := f.reload(); err != nil {
		f.lastErr = err
		return
	}

	root := groupRoot(newGroup)
	var popped gridstore.Storage[T]
	if f.rank == root {
		if len(f.tempStor) == 0 {
			f.lastErr = faults.New(faults.KindTopology, int(f.rank), "", "",
				fmt.Errorf("halofield: no pre-commit snapshot staged for node %d", nodeID))
			return
		}
		popped = f.tempStor[len(f.tempStor)-1]
		f.tempStor = f.tempStor[:len(f.tempStor)-1]
	}
	if err := f.DistributeGroup(context.Background(), level, nodeID, popped); err != nil {
		f.lastErr = err
		return
	}
}

func leafRanksContain(nodes []*partition.Node, rank partition.NodeID) bool {
	for _, n := range nodes {
		if n.ID == rank {
			return true
		}
	}
	return false
}

func leafRanksAsInt(nodes []*partition.Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n.ID)
	}
	return out
}

func groupRoot(nodes []*partition.Node) partition.NodeID {
	root := nodes[0].ID
	for _, n := range nodes[1:] {
		if n.ID < root {
			root = n.ID
		}
	}
	return root
}
