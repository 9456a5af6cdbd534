package halofield

import (
	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/partition"
)

// neighbor is the send/recv sub-rectangle pairing for one other worker
// (spec's Neighbor): sendParam are sub-rects of this field's own storage
// to pack and send; recvParam are sub-rects of this field's own storage
// to unpack received bytes into.
type neighbor struct {
	rank      partition.NodeID
	sendParam []geom.Rect
	recvParam []geom.Rect
}

// computeNeighbor derives one neighbor's send/recv sub-rects against this
// field's own origPart/haloPart, per spec.md §3:
//
//	sendOverlaps = overlaps(origPart, neighborRect.resize(+aoi))
//	recvOverlaps = overlaps(haloPart, neighborRect)
//
// both unioned over every world-sized toroidal shift. Both sides of an
// exchange run this same function — one with self/other reversed — so the
// derivation must produce independently-paired lists without any further
// coordination. It does: neighborRect is always the neighbor's own
// origPart, so neighborRect.resize(aoi) is the neighbor's haloPart, and
// for any fixed shift delta,
//
//	origPart ∩ (neighborHalo + delta) is nonempty
//	  iff
//	neighborHalo ∩ (origPart − delta) is nonempty
//
// (the same set, translated). The right-hand side is exactly the
// neighbor's own recvOverlap check, computed with shift −delta against
// our rect. So iterating the same canonical shift list on both sides —
// this field applying +delta to the neighbor's rect for its sendParam,
// the neighbor applying −delta to our rect for its recvParam, at the same
// list position — keeps the two sides' entries paired after compacting
// out empty shifts, with no shared state beyond dim and world size.
func computeNeighbor(rank partition.NodeID, origPart, haloPart geom.Rect, aoi geom.AOI, neighborRect geom.Rect, worldSize geom.Point) neighbor {
	dim := origPart.Dim()
	shifts := partition.ShiftCombinations(dim, worldSize)
	neighborHalo := neighborRect.Resize(aoi.Point())

	n := neighbor{rank: rank}
	for _, delta := range shifts {
		if send := origPart.Intersection(neighborHalo.Shift(delta)); !send.Empty() {
			n.sendParam = append(n.sendParam, send)
		}
		if recv := haloPart.Intersection(neighborRect.Shift(negate(delta))); !recv.Empty() {
			n.recvParam = append(n.recvParam, recv)
		}
	}
	return n
}

func negate(p geom.Point) geom.Point {
	out := make(geom.Point, len(p))
	for i, v := range p {
		out[i] = -v
	}
	return out
}
