package gridstore

import "github.com/dreamware/toroidal-sim/internal/geom"

// strides returns the row-major strides for a storage of the given size:
// strides[last] == 1, strides[i] == strides[i+1] * size[i+1].
func strides(size geom.Point) []int {
	d := len(size)
	s := make([]int, d)
	acc := 1
	for i := d - 1; i >= 0; i-- {
		s[i] = acc
		acc *= size[i]
	}
	return s
}

func flatIndex(strd []int, rel geom.Point) int {
	idx := 0
	for i, s := range strd {
		idx += rel[i] * s
	}
	return idx
}

// run describes one contiguous span of flat indices: [Base, Base+Len).
type run struct {
	Base int
	Len  int
}

// runsFor walks a half-open sub-rectangle [loRel, hiRel) given in the
// storage's own local coordinates (i.e. already translated so the
// storage's own rect is the origin) and yields one run per maximal
// contiguous span along the innermost dimension. For row-major storage
// this is the unit that can be memcpy'd (numeric) or walked cell-by-cell
// (object) without recomputing a flat index per element.
func runsFor(strd []int, loRel, hiRel geom.Point) []run {
	d := len(strd)
	var runs []run
	rel := make(geom.Point, d)
	var rec func(dim int)
	rec = func(dim int) {
		if dim == d-1 {
			base := flatIndex(strd, rel) + loRel[d-1]*strd[d-1]
			runs = append(runs, run{Base: base, Len: hiRel[d-1] - loRel[d-1]})
			return
		}
		for v := loRel[dim]; v < hiRel[dim]; v++ {
			rel[dim] = v
			rec(dim + 1)
		}
	}
	if d == 0 {
		return nil
	}
	rec(0)
	return runs
}

// localBounds translates an absolute sub-rectangle into the storage's own
// local coordinate frame (storage.Rect().Lo is the origin) and clips it to
// [0, size). Returns ok=false if the clipped rect is empty.
func localBounds(storageRect geom.Rect, sub geom.Rect) (loRel, hiRel geom.Point, ok bool) {
	clipped := storageRect.Intersection(sub)
	if clipped.Empty() {
		return nil, nil, false
	}
	d := storageRect.Dim()
	loRel = make(geom.Point, d)
	hiRel = make(geom.Point, d)
	for i := 0; i < d; i++ {
		loRel[i] = clipped.Lo[i] - storageRect.Lo[i]
		hiRel[i] = clipped.Hi[i] - storageRect.Lo[i]
	}
	return loRel, hiRel, true
}
