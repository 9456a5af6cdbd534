package partition

import (
	"fmt"

	"github.com/dreamware/toroidal-sim/internal/faults"
	"github.com/dreamware/toroidal-sim/internal/geom"
)

// Split locates the leaf containing origin and subdivides it at that
// point into 2^Dim children, each drawing a fresh id from the pool. The
// origin must be strictly interior to the leaf's rect (Lo[i] < origin[i] <
// Hi[i] for every dimension); otherwise Split returns a TopologyError, as
// it does when the id pool is exhausted.
//
// Pre-commit and post-commit callbacks run around the mutation at the
// leaf's level, per spec.md §4.3/§5(d).
func (t *QuadTree) Split(origin geom.Point) (childIDs []NodeID, err error) {
	t.mu.Lock()
	leaf, err := t.getLeafLocked(origin)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if !leaf.IsLeaf() {
		t.mu.Unlock()
		return nil, faults.New(faults.KindTopology, -1, fmt.Sprint(leaf.ID), fmt.Sprint(origin),
			fmt.Errorf("node %d is not a leaf", leaf.ID))
	}
	if !strictlyInterior(leaf.Rect, origin) {
		t.mu.Unlock()
		return nil, faults.New(faults.KindTopology, -1, fmt.Sprint(leaf.ID), fmt.Sprint(origin),
			fmt.Errorf("origin %v not strictly interior to leaf %d rect %v", origin, leaf.ID, leaf.Rect))
	}
	branch := t.BranchFactor()
	if len(t.availIds) < branch {
		t.mu.Unlock()
		return nil, faults.New(faults.KindTopology, -1, fmt.Sprint(leaf.ID), fmt.Sprint(origin),
			fmt.Errorf("id pool exhausted: need %d ids, have %d", branch, len(t.availIds)))
	}
	level := leaf.Level
	t.mu.Unlock()

	t.runPreCommit(level, leaf.ID)

	t.mu.Lock()
	ids, rects := t.allocateChildren(leaf, origin)
	for i, id := range ids {
		t.nodes[id] = &Node{
			ID:        id,
			Rect:      rects[i],
			Level:     leaf.Level + 1,
			Parent:    leaf.ID,
			HasParent: true,
		}
	}
	leaf.Children = ids
	leaf.Origin = origin.Clone()
	t.mu.Unlock()

	t.runPostCommit(level, leaf.ID)
	return ids, nil
}

// allocateChildren draws branchFactor ids from the pool and computes each
// child's rectangle: bit i of the child index selects whether dimension i
// takes the low half [Lo[i], origin[i]) or the high half [origin[i],
// Hi[i]).
func (t *QuadTree) allocateChildren(leaf *Node, origin geom.Point) ([]NodeID, []geom.Rect) {
	branch := t.BranchFactor()
	ids := make([]NodeID, branch)
	rects := make([]geom.Rect, branch)
	for c := 0; c < branch; c++ {
		id, _ := t.popAvailID()
		ids[c] = id
		lo := make(geom.Point, t.dim)
		hi := make(geom.Point, t.dim)
		for i := 0; i < t.dim; i++ {
			if c&(1<<uint(i)) == 0 {
				lo[i], hi[i] = leaf.Rect.Lo[i], origin[i]
			} else {
				lo[i], hi[i] = origin[i], leaf.Rect.Hi[i]
			}
		}
		rects[c] = geom.Rect{Id: id, Lo: lo, Hi: hi}
	}
	return ids, rects
}

func strictlyInterior(r geom.Rect, p geom.Point) bool {
	for i := range r.Lo {
		if p[i] <= r.Lo[i] || p[i] >= r.Hi[i] {
			return false
		}
	}
	return true
}

// Merge removes every descendant of nodeID, freeing their ids back to the
// pool, and turns nodeID back into a leaf. Pre/post-commit callbacks run
// around the mutation at nodeID's level.
func (t *QuadTree) Merge(nodeID NodeID) error {
	t.mu.Lock()
	n, ok := t.nodes[nodeID]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("partition: unknown node %d", nodeID)
	}
	if n.IsLeaf() {
		t.mu.Unlock()
		return nil
	}
	level := n.Level
	t.mu.Unlock()

	t.runPreCommit(level, n.ID)

	t.mu.Lock()
	t.freeDescendants(n)
	n.Children = nil
	n.Origin = nil
	t.mu.Unlock()

	t.runPostCommit(level, n.ID)
	return nil
}

// freeDescendants recursively removes n's children from the node map and
// returns their ids to the pool. Must be called with t.mu held.
func (t *QuadTree) freeDescendants(n *Node) {
	for _, cid := range n.Children {
		child := t.nodes[cid]
		if child != nil {
			t.freeDescendants(child)
			delete(t.nodes, cid)
			t.pushAvailID(cid)
		}
	}
}

// MoveOrigin re-splits nodeID at a new origin while preserving its id: it
// is equivalent to Merge(nodeID) followed by splitting nodeID's rect at
// newOrigin: the node keeps its own id, and its new children draw ids
// from the pool, which the merge step has already refilled with the ids
// of any old descendants. A leaf nodeID therefore becomes internal and
// its own id no longer names a leaf after the move. If nodeID is
// currently an internal node, its subtree is discarded first.
func (t *QuadTree) MoveOrigin(nodeID NodeID, newOrigin geom.Point) error {
	t.mu.Lock()
	n, ok := t.nodes[nodeID]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("partition: unknown node %d", nodeID)
	}
	if !strictlyInterior(n.Rect, newOrigin) {
		t.mu.Unlock()
		return faults.New(faults.KindTopology, -1, fmt.Sprint(nodeID), fmt.Sprint(newOrigin),
			fmt.Errorf("origin %v not strictly interior to node %d rect %v", newOrigin, nodeID, n.Rect))
	}
	branch := t.BranchFactor()
	// Descendants freed by the merge step return to the pool before the
	// split step draws from it, so the pool only needs to cover the net
	// new ids the split requires.
	if len(t.availIds)+countDescendants(t, n) < branch {
		t.mu.Unlock()
		return faults.New(faults.KindTopology, -1, fmt.Sprint(nodeID), fmt.Sprint(newOrigin),
			fmt.Errorf("id pool exhausted for move_origin on node %d", nodeID))
	}
	level := n.Level
	t.mu.Unlock()

	t.runPreCommit(level, n.ID)

	t.mu.Lock()
	if !n.IsLeaf() {
		t.freeDescendants(n)
	}
	ids, rects := t.allocateChildrenPreservingParent(n, newOrigin)
	for i, id := range ids {
		t.nodes[id] = &Node{
			ID:        id,
			Rect:      rects[i],
			Level:     n.Level + 1,
			Parent:    n.ID,
			HasParent: true,
		}
	}
	n.Children = ids
	n.Origin = newOrigin.Clone()
	t.mu.Unlock()

	t.runPostCommit(level, n.ID)
	return nil
}

func (t *QuadTree) allocateChildrenPreservingParent(n *Node, origin geom.Point) ([]NodeID, []geom.Rect) {
	return t.allocateChildren(n, origin)
}

func countDescendants(t *QuadTree, n *Node) int {
	total := 0
	for _, cid := range n.Children {
		c := t.nodes[cid]
		if c == nil {
			continue
		}
		total++
		total += countDescendants(t, c)
	}
	return total
}
