package partition

import (
	"fmt"
	"sort"

	"github.com/dreamware/toroidal-sim/internal/geom"
)

// Neighbors returns every other current leaf whose rectangle intersects
// leafID's halo (its own rect resized by aoi) under some toroidal shift of
// the world. Results are sorted ascending by id.
//
// This enumerates all leaves against all 3^Dim world-sized shifts rather
// than walking the tree structurally (ascend past the opposite half,
// descend into the matching subtree) the way a typical quadtree neighbor
// search does: the set of candidate shifts per dimension is {-size, 0,
// +size}, and a leaf is a neighbor if any shifted copy of it intersects
// the query leaf's halo. With the small leaf counts this runtime targets
// this is cheap, and it is exactly the set the "neighbor set equals
// leaves whose rects intersect the halo under toroidal shift" invariant
// defines, so there is no structural algorithm to get subtly wrong.
func (t *QuadTree) Neighbors(leafID NodeID, aoi geom.AOI) ([]*Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	self, ok := t.nodes[leafID]
	if !ok {
		return nil, fmt.Errorf("partition: unknown node %d", leafID)
	}
	halo := self.Rect.Resize(aoi.Point())
	worldSize := t.world.Size()

	shifts := ShiftCombinations(t.dim, worldSize)

	leaves := t.leavesLocked()
	seen := make(map[NodeID]bool)
	var out []*Node
	for _, other := range leaves {
		if other.ID == leafID {
			continue
		}
		for _, delta := range shifts {
			if other.Rect.Shift(delta).Intersects(halo) {
				if !seen[other.ID] {
					seen[other.ID] = true
					out = append(out, other)
				}
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ShiftCombinations enumerates every combination of {-size[i], 0,
// +size[i]} across dim dimensions: 3^dim vectors in total, including the
// zero vector, in a fixed canonical order that depends only on dim and
// size. halofield's Neighbor computation relies on this: two workers
// deriving their interaction independently, one applying a shift from this
// list and the other applying its negation at the same list position, land
// on the same physical overlap region — see halofield/neighbor.go.
func ShiftCombinations(dim int, size geom.Point) []geom.Point {
	total := 1
	for i := 0; i < dim; i++ {
		total *= 3
	}
	out := make([]geom.Point, total)
	for c := 0; c < total; c++ {
		v := make(geom.Point, dim)
		rem := c
		for i := 0; i < dim; i++ {
			digit := rem % 3
			rem /= 3
			switch digit {
			case 0:
				v[i] = -size[i]
			case 1:
				v[i] = 0
			case 2:
				v[i] = size[i]
			}
		}
		out[c] = v
	}
	return out
}
