package geom

import "fmt"

// WorldRectID is the stable id reserved for the rectangle spanning the
// entire world (spec: "the world rectangle has id = -1").
const WorldRectID int64 = -1

// Rect is an axis-aligned integer hyperrectangle [Lo, Hi), half-open in
// every dimension, carrying a stable Id used to distinguish it from other
// rects of the same extent (e.g. a quadtree leaf's rect versus its
// neighbor's).
type Rect struct {
	Lo Point
	Hi Point
	Id int64
}

// NewRect builds a rect from explicit corners. lo and hi must share the
// same dimensionality.
func NewRect(id int64, lo, hi Point) Rect {
	lo.mustMatch(hi)
	return Rect{Id: id, Lo: lo.Clone(), Hi: hi.Clone()}
}

// Dim returns the rect's dimensionality.
func (r Rect) Dim() int { return r.Lo.Dim() }

// Size returns the per-dimension extent Hi - Lo.
func (r Rect) Size() Point { return r.Hi.Sub(r.Lo) }

// Area returns the product of the per-dimension extents. Returns 0 if any
// dimension is non-positive (an empty rect).
func (r Rect) Area() int64 {
	area := int64(1)
	for i := range r.Lo {
		extent := int64(r.Hi[i] - r.Lo[i])
		if extent <= 0 {
			return 0
		}
		area *= extent
	}
	return area
}

// Empty reports whether the rect has non-positive extent in any dimension.
func (r Rect) Empty() bool {
	for i := range r.Lo {
		if r.Hi[i] <= r.Lo[i] {
			return true
		}
	}
	return false
}

// Contains reports whether p falls within [Lo, Hi) in every dimension.
func (r Rect) Contains(p Point) bool {
	if p.Dim() != r.Dim() {
		return false
	}
	for i := range r.Lo {
		if p[i] < r.Lo[i] || p[i] >= r.Hi[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether r and o share any interior point.
func (r Rect) Intersects(o Rect) bool {
	return !r.Intersection(o).Empty()
}

// Intersection returns the overlap of r and o: element-wise max of the
// lower corners and min of the upper corners. The result is empty (Area ==
// 0) if the rects do not overlap in some dimension. The id of the returned
// rect is unset (0); callers that need a stable id should assign one.
func (r Rect) Intersection(o Rect) Rect {
	r.Lo.mustMatch(o.Lo)
	lo := make(Point, r.Dim())
	hi := make(Point, r.Dim())
	for i := range r.Lo {
		lo[i] = max(r.Lo[i], o.Lo[i])
		hi[i] = min(r.Hi[i], o.Hi[i])
	}
	return Rect{Lo: lo, Hi: hi}
}

// Shift translates the rect by delta, preserving its Id and extent.
func (r Rect) Shift(delta Point) Rect {
	return Rect{Id: r.Id, Lo: r.Lo.Add(delta), Hi: r.Hi.Add(delta)}
}

// Resize expands (or, for negative components, shrinks) the rect by aoi in
// every dimension: the lower corner moves by -aoi[i], the upper corner by
// +aoi[i]. Negative aoi values shrink the rect, used to compute a
// partition's private interior from its owned rect.
func (r Rect) Resize(aoi Point) Rect {
	r.Lo.mustMatch(aoi)
	lo := make(Point, r.Dim())
	hi := make(Point, r.Dim())
	for i := range r.Lo {
		lo[i] = r.Lo[i] - aoi[i]
		hi[i] = r.Hi[i] + aoi[i]
	}
	return Rect{Id: r.Id, Lo: lo, Hi: hi}
}

func (r Rect) String() string {
	return fmt.Sprintf("Rect{id:%d lo:%v hi:%v}", r.Id, []int(r.Lo), []int(r.Hi))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
