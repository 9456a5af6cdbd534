package gridstore

import (
	"encoding/json"
	"testing"

	"github.com/dreamware/toroidal-sim/internal/geom"
)

func TestNumericGetSet(t *testing.T) {
	rect := geom.NewRect(1, geom.NewPoint(0, 0), geom.NewPoint(4, 4))
	s := NewNumeric[float64](rect)
	idx, ok := s.FlatIndex(geom.NewPoint(2, 3))
	if !ok {
		t.Fatal("expected point in rect")
	}
	s.Set(idx, 42)
	if got := s.Get(idx); got != 42 {
		t.Errorf("got %v, want 42", got)
	}

	if _, ok := s.FlatIndex(geom.NewPoint(4, 0)); ok {
		t.Error("expected out-of-range point to be rejected")
	}
}

func TestNumericPackUnpackRoundTrip(t *testing.T) {
	rect := geom.NewRect(1, geom.NewPoint(0, 0), geom.NewPoint(4, 4))
	s := NewNumeric[int32](rect)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			idx, _ := s.FlatIndex(geom.NewPoint(x, y))
			s.Set(idx, int32(x*10+y))
		}
	}

	sub := geom.NewRect(2, geom.NewPoint(1, 1), geom.NewPoint(3, 3))
	buf, err := s.Pack([]geom.Rect{sub})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	dst := NewNumeric[int32](rect)
	if err := dst.Unpack([]geom.Rect{sub}, buf); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	for y := 1; y < 3; y++ {
		for x := 1; x < 3; x++ {
			idx, _ := dst.FlatIndex(geom.NewPoint(x, y))
			want := int32(x*10 + y)
			if got := dst.Get(idx); got != want {
				t.Errorf("(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
	// cells outside sub must remain zero.
	idx, _ := dst.FlatIndex(geom.NewPoint(0, 0))
	if got := dst.Get(idx); got != 0 {
		t.Errorf("expected untouched cell to be zero, got %d", got)
	}
}

func TestNumericReshapeDropsData(t *testing.T) {
	rect := geom.NewRect(1, geom.NewPoint(0, 0), geom.NewPoint(2, 2))
	s := NewNumeric[int64](rect)
	idx, _ := s.FlatIndex(geom.NewPoint(1, 1))
	s.Set(idx, 99)

	newRect := geom.NewRect(1, geom.NewPoint(0, 0), geom.NewPoint(3, 3))
	s.Reshape(newRect)
	idx2, _ := s.FlatIndex(geom.NewPoint(1, 1))
	if got := s.Get(idx2); got != 0 {
		t.Errorf("expected reshape to drop data, got %d", got)
	}
}

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Encode(v T) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec[T]) Decode(b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}

type agent struct {
	Name string
	HP   int
}

func TestObjectPackUnpackRoundTrip(t *testing.T) {
	rect := geom.NewRect(1, geom.NewPoint(0, 0), geom.NewPoint(3, 3))
	s := NewObject[agent](rect, jsonCodec[agent]{})

	idx, _ := s.FlatIndex(geom.NewPoint(1, 1))
	s.Set(idx, agent{Name: "scout", HP: 7})

	sub := geom.NewRect(2, geom.NewPoint(0, 0), geom.NewPoint(3, 3))
	buf, err := s.Pack([]geom.Rect{sub})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	dst := NewObject[agent](rect, jsonCodec[agent]{})
	if err := dst.Unpack([]geom.Rect{sub}, buf); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	gotIdx, _ := dst.FlatIndex(geom.NewPoint(1, 1))
	got := dst.Get(gotIdx)
	if got.Name != "scout" || got.HP != 7 {
		t.Errorf("got %+v", got)
	}
}

func TestObjectPackCachesUnchangedCells(t *testing.T) {
	rect := geom.NewRect(1, geom.NewPoint(0, 0), geom.NewPoint(2, 2))
	s := NewObject[agent](rect, jsonCodec[agent]{})
	idx, _ := s.FlatIndex(geom.NewPoint(0, 0))
	s.Set(idx, agent{Name: "a", HP: 1})

	whole := geom.NewRect(2, geom.NewPoint(0, 0), geom.NewPoint(2, 2))
	if _, err := s.Pack([]geom.Rect{whole}); err != nil {
		t.Fatalf("pack: %v", err)
	}
	if _, err := s.cache.Get(idx); err != nil {
		t.Fatalf("expected cell to be cached after first pack: %v", err)
	}

	s.Set(idx, agent{Name: "b", HP: 2})
	if _, err := s.cache.Get(idx); err == nil {
		t.Fatal("expected cache invalidation on Set")
	}
}

func TestMultipleDisjointSubRects(t *testing.T) {
	rect := geom.NewRect(1, geom.NewPoint(0, 0), geom.NewPoint(6, 6))
	s := NewNumeric[int32](rect)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			idx, _ := s.FlatIndex(geom.NewPoint(x, y))
			s.Set(idx, int32(x+y*6))
		}
	}
	a := geom.NewRect(2, geom.NewPoint(0, 0), geom.NewPoint(2, 2))
	b := geom.NewRect(3, geom.NewPoint(4, 4), geom.NewPoint(6, 6))
	buf, err := s.Pack([]geom.Rect{a, b})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	dst := NewNumeric[int32](rect)
	if err := dst.Unpack([]geom.Rect{a, b}, buf); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	for _, p := range []geom.Point{geom.NewPoint(0, 0), geom.NewPoint(1, 1), geom.NewPoint(4, 4), geom.NewPoint(5, 5)} {
		idx, _ := dst.FlatIndex(p)
		want := int32(p[0] + p[1]*6)
		if got := dst.Get(idx); got != want {
			t.Errorf("%v = %d, want %d", p, got, want)
		}
	}
}
