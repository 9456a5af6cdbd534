// Package gridstore implements dense per-cell storage over an integer
// hyperrectangle, the building block halofield binds to a partition to
// produce a worker's local-plus-halo view of the world.
//
// # Overview
//
// A Storage[T] holds one value of type T per cell of its Rect, addressed by
// a flat, row-major index. Two concrete strategies satisfy the interface:
//
//   - NumericStorage[T]  — a contiguous []T buffer. Pack/Unpack move each
//     innermost row of a sub-rectangle as one contiguous run with a raw
//     byte copy (no per-cell encode/decode), one copy per row.
//   - ObjectStorage[T]   — a []T of opaque values, serialized through a
//     user Codec on pack/unpack. Because objects vary in size, the wire
//     form is a length-prefixed stream of records rather than a raw byte
//     span, and a packcache.Store remembers each cell's last encoding so
//     cells that haven't changed since the previous sync are not
//     re-serialized.
//
// Both strategies share the same flat-indexing and run-finding helpers in
// index.go, so a sub-rectangle pack always walks the same contiguous runs
// regardless of which strategy is doing the copying.
//
// Reshape always re-allocates and never preserves old data — callers that
// need to preserve data across a reshape (the repartition protocol) must
// Pack before and Unpack after.
package gridstore
