package gridstore

import (
	"fmt"
	"unsafe"

	"github.com/dreamware/toroidal-sim/internal/geom"
)

// NumericStorage is the primitive-numeric GridStorage variant: a single
// contiguous []T buffer. Every sub-rectangle, the whole buffer included,
// is packed and unpacked one innermost row (one contiguous run) at a time
// with a raw byte copy per run, which is still far cheaper than
// per-element encode/decode.
type NumericStorage[T Number] struct {
	rect    geom.Rect
	data    []T
	strides []int
}

// NewNumeric allocates a NumericStorage covering rect, zero-valued.
func NewNumeric[T Number](rect geom.Rect) *NumericStorage[T] {
	n := &NumericStorage[T]{}
	n.Reshape(rect)
	return n
}

// Rect implements Storage.
func (n *NumericStorage[T]) Rect() geom.Rect { return n.rect }

// Get implements Storage.
func (n *NumericStorage[T]) Get(flatIdx int) T { return n.data[flatIdx] }

// Set implements Storage.
func (n *NumericStorage[T]) Set(flatIdx int, v T) { n.data[flatIdx] = v }

// FlatIndex implements Storage.
func (n *NumericStorage[T]) FlatIndex(p geom.Point) (int, bool) {
	if !n.rect.Contains(p) {
		return 0, false
	}
	rel := p.Sub(n.rect.Lo)
	return flatIndex(n.strides, rel), true
}

// Reshape implements Storage. The previous buffer is discarded.
func (n *NumericStorage[T]) Reshape(newRect geom.Rect) {
	n.rect = newRect
	n.strides = strides(newRect.Size())
	n.data = make([]T, newRect.Area())
}

// Pack implements Storage, copying each requested sub-rect's contiguous
// runs directly out of the backing array without per-element conversion.
func (n *NumericStorage[T]) Pack(subRects []geom.Rect) ([]byte, error) {
	var elemSize = int(unsafe.Sizeof(*new(T)))
	out := make([]byte, 0, 64)
	for _, sub := range subRects {
		loRel, hiRel, ok := localBounds(n.rect, sub)
		if !ok {
			continue
		}
		for _, r := range runsFor(n.strides, loRel, hiRel) {
			if r.Len == 0 {
				continue
			}
			seg := n.data[r.Base : r.Base+r.Len]
			raw := unsafe.Slice((*byte)(unsafe.Pointer(&seg[0])), r.Len*elemSize)
			out = append(out, raw...)
		}
	}
	return out, nil
}

// Unpack implements Storage, the inverse of Pack: it must be called with
// the same subRects, in the same order, that produced buf.
func (n *NumericStorage[T]) Unpack(subRects []geom.Rect, buf []byte) error {
	elemSize := int(unsafe.Sizeof(*new(T)))
	off := 0
	for _, sub := range subRects {
		loRel, hiRel, ok := localBounds(n.rect, sub)
		if !ok {
			continue
		}
		for _, r := range runsFor(n.strides, loRel, hiRel) {
			if r.Len == 0 {
				continue
			}
			nbytes := r.Len * elemSize
			if off+nbytes > len(buf) {
				return fmt.Errorf("gridstore: unpack buffer too short: need %d more bytes at offset %d, have %d", nbytes, off, len(buf))
			}
			seg := n.data[r.Base : r.Base+r.Len]
			dst := unsafe.Slice((*byte)(unsafe.Pointer(&seg[0])), nbytes)
			copy(dst, buf[off:off+nbytes])
			off += nbytes
		}
	}
	return nil
}
