// Package geom provides the integer geometry primitives the rest of the
// runtime is built on: N-dimensional points, axis-aligned hyperrectangles,
// and the toroidal (wrap-around) coordinate arithmetic used to reduce a
// point or a coordinate delta onto a fixed-size world.
//
// # Overview
//
// Every other package in this module — gridstore, partition, halofield,
// transport — operates on geom.Point and geom.Rect rather than raw ints.
// Keeping the arithmetic in one place means the torus-wrap rules (§4.1 of
// the design) are implemented exactly once.
//
//	┌───────────────────────────────┐
//	│            Rect               │
//	│  Lo ──────────────┐           │
//	│   │                │          │
//	│   │   interior     │          │
//	│   │                │          │
//	│   └──────────────── Hi        │
//	└───────────────────────────────┘
//
// Rect is half-open: a point p is inside iff Lo[i] <= p[i] < Hi[i] for every
// dimension i. This keeps tiling exact — two adjacent rects share a boundary
// coordinate without double-counting it.
//
// # Toroidal arithmetic
//
// The world wraps in every dimension. Torus folds a raw coordinate into
// [0, size); TorDiff computes the shortest signed distance between two
// raw coordinates around the wrap, which is what AOI overlap and neighbor
// computation need (a leaf near the world's right edge is a neighbor of a
// leaf near the left edge).
package geom
