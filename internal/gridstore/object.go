package gridstore

import (
	"encoding/binary"
	"fmt"

	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/packcache"
)

// ObjectStorage is the opaque-object GridStorage variant: a []T reference
// array, serialized cell-by-cell through a Codec on pack/unpack. Because
// encoded objects vary in length, the wire form is a stream of
// length-prefixed records rather than a raw byte span.
//
// A packcache.Store remembers the last encoding produced for each flat
// index; Set invalidates the corresponding entry, so a cell that hasn't
// changed since the previous sync is copied out of the cache instead of
// re-encoded.
type ObjectStorage[T any] struct {
	rect    geom.Rect
	data    []T
	strides []int
	codec   Codec[T]
	cache   packcache.Store
}

// NewObject allocates an ObjectStorage covering rect, zero-valued, using
// codec to serialize cells on pack/unpack.
func NewObject[T any](rect geom.Rect, codec Codec[T]) *ObjectStorage[T] {
	o := &ObjectStorage[T]{codec: codec, cache: packcache.NewMemStore()}
	o.Reshape(rect)
	return o
}

// Rect implements Storage.
func (o *ObjectStorage[T]) Rect() geom.Rect { return o.rect }

// Get implements Storage.
func (o *ObjectStorage[T]) Get(flatIdx int) T { return o.data[flatIdx] }

// Set implements Storage. It invalidates the cached encoding for flatIdx.
func (o *ObjectStorage[T]) Set(flatIdx int, v T) {
	o.data[flatIdx] = v
	o.cache.Invalidate(flatIdx)
}

// FlatIndex implements Storage.
func (o *ObjectStorage[T]) FlatIndex(p geom.Point) (int, bool) {
	if !o.rect.Contains(p) {
		return 0, false
	}
	rel := p.Sub(o.rect.Lo)
	return flatIndex(o.strides, rel), true
}

// Reshape implements Storage. The previous buffer and cache are discarded.
func (o *ObjectStorage[T]) Reshape(newRect geom.Rect) {
	o.rect = newRect
	o.strides = strides(newRect.Size())
	o.data = make([]T, newRect.Area())
	o.cache = packcache.NewMemStore()
}

// Pack implements Storage. Each cell is written as a uint32 length prefix
// followed by its encoding, walked in the same run order NumericStorage
// uses so the two strategies stay interchangeable from the caller's
// perspective.
func (o *ObjectStorage[T]) Pack(subRects []geom.Rect) ([]byte, error) {
	var out []byte
	var lenBuf [4]byte
	for _, sub := range subRects {
		loRel, hiRel, ok := localBounds(o.rect, sub)
		if !ok {
			continue
		}
		for _, r := range runsFor(o.strides, loRel, hiRel) {
			for i := 0; i < r.Len; i++ {
				idx := r.Base + i
				enc, err := o.encodeCached(idx)
				if err != nil {
					return nil, fmt.Errorf("gridstore: encode cell %d: %w", idx, err)
				}
				binary.BigEndian.PutUint32(lenBuf[:], uint32(len(enc)))
				out = append(out, lenBuf[:]...)
				out = append(out, enc...)
			}
		}
	}
	return out, nil
}

func (o *ObjectStorage[T]) encodeCached(idx int) ([]byte, error) {
	if cached, err := o.cache.Get(idx); err == nil {
		return cached, nil
	}
	enc, err := o.codec.Encode(o.data[idx])
	if err != nil {
		return nil, err
	}
	o.cache.Put(idx, enc)
	return enc, nil
}

// Unpack implements Storage. It must be called with the same subRects, in
// the same order, that produced buf.
func (o *ObjectStorage[T]) Unpack(subRects []geom.Rect, buf []byte) error {
	off := 0
	for _, sub := range subRects {
		loRel, hiRel, ok := localBounds(o.rect, sub)
		if !ok {
			continue
		}
		for _, r := range runsFor(o.strides, loRel, hiRel) {
			for i := 0; i < r.Len; i++ {
				if off+4 > len(buf) {
					return fmt.Errorf("gridstore: truncated length prefix at offset %d", off)
				}
				n := int(binary.BigEndian.Uint32(buf[off : off+4]))
				off += 4
				if off+n > len(buf) {
					return fmt.Errorf("gridstore: truncated record at offset %d (need %d bytes)", off, n)
				}
				v, err := o.codec.Decode(buf[off : off+n])
				if err != nil {
					return fmt.Errorf("gridstore: decode cell: %w", err)
				}
				off += n
				idx := r.Base + i
				o.data[idx] = v
				o.cache.Invalidate(idx)
			}
		}
	}
	return nil
}
