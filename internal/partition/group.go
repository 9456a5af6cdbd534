package partition

import (
	"fmt"
	"sort"
)

// GroupLeaves returns the current leaves that nodeID owns: if nodeID is
// itself a leaf, the single-element slice containing it; otherwise every
// leaf in its subtree. The repartition protocol (halofield's pre/post-
// commit callbacks) uses this to determine a rebalance group's membership
// on either side of a mutation — valid both before and after, since a
// node's own id and rect are stable across Split/Merge/MoveOrigin, only
// its leaf/internal status and children change.
func (t *QuadTree) GroupLeaves(nodeID NodeID) ([]*Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("partition: unknown node %d", nodeID)
	}
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur.IsLeaf() {
			out = append(out, cur)
			return
		}
		for _, cid := range cur.Children {
			if c := t.nodes[cid]; c != nil {
				walk(c)
			}
		}
	}
	walk(n)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
