package partition

import "github.com/dreamware/toroidal-sim/internal/geom"

// NodeID identifies a quadtree node. For a leaf, NodeID doubles as the
// worker rank that owns it; internal nodes receive group-communicator
// roles during rebalance but never own work.
type NodeID = int64

// RootID is the id of the tree's root, fixed at construction.
const RootID NodeID = 0

// Node is one node of the quadtree: a rectangle, a level, a weak parent
// reference (by id; the root has none), and either child ids (internal) or
// a worker assignment (leaf). Parent links are weak by design — the tree's
// node map is the sole owner of every Node, resolved by id lookup rather
// than pointer, so there is no reference cycle for the arena to break.
type Node struct {
	Rect      geom.Rect
	Origin    geom.Point // split point; only meaningful when Children != nil
	Children  []NodeID   // len 0 (leaf) or branchFactor (internal)
	Level     int
	ID        NodeID
	Parent    NodeID
	HasParent bool
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// WorkerID returns the rank that owns this leaf. Only meaningful when
// IsLeaf() is true; by construction a leaf's worker id is its own NodeID.
func (n *Node) WorkerID() NodeID { return n.ID }
