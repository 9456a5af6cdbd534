package gridstore

import "github.com/dreamware/toroidal-sim/internal/geom"

// Storage is a dense per-cell buffer over a hyperrectangle (spec:
// GridStorage<T>). Implementations are NumericStorage (primitive-numeric)
// and ObjectStorage (opaque-object). Neither is safe for concurrent use —
// callers (halofield.Field) serialize access the same way the rest of the
// core does: one worker, one goroutine, suspension only at collectives.
type Storage[T any] interface {
	// Rect returns the hyperrectangle this storage covers.
	Rect() geom.Rect

	// Get returns the value at the given flat index.
	Get(flatIdx int) T

	// Set writes v at the given flat index.
	Set(flatIdx int, v T)

	// FlatIndex converts a point (in the storage's own absolute
	// coordinates) into a flat index, or ok=false if p falls outside Rect.
	FlatIndex(p geom.Point) (idx int, ok bool)

	// Reshape re-allocates the backing buffer for newRect. It preserves no
	// data; callers needing continuity must Pack before and Unpack after.
	Reshape(newRect geom.Rect)

	// Pack serializes the given sub-rectangles (in absolute coordinates,
	// clipped against Rect by the implementation) into one buffer, in the
	// order the sub-rects are given, each sub-rect in row-major order.
	Pack(subRects []geom.Rect) ([]byte, error)

	// Unpack reverses Pack: it decodes buf and writes each value into the
	// corresponding cell of the given sub-rectangles, in the same order
	// Pack would have visited them.
	Unpack(subRects []geom.Rect, buf []byte) error
}

// Number is the set of fixed-width numeric element types NumericStorage
// supports. Go's int/uint are deliberately excluded: their width is
// platform-dependent, which would break the wire format's requirement
// that endianness and representation be fixed (spec.md §6).
type Number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}
