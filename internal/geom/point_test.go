package geom

import "testing"

func TestTorusWraps(t *testing.T) {
	cases := []struct{ x, size, want int }{
		{5, 10, 5},
		{-1, 10, 9},
		{10, 10, 0},
		{-11, 10, 9},
		{0, 10, 0},
	}
	for _, c := range cases {
		if got := Torus(c.x, c.size); got != c.want {
			t.Errorf("Torus(%d, %d) = %d, want %d", c.x, c.size, got, c.want)
		}
	}
}

func TestTorDiffShortArc(t *testing.T) {
	// size=100: points 5 and 95 are 10 apart around the wrap, not 90.
	if d := TorDiff(5, 95, 100); d != 10 {
		t.Errorf("TorDiff(5,95,100) = %d, want 10", d)
	}
	if d := TorDiff(95, 5, 100); d != -10 {
		t.Errorf("TorDiff(95,5,100) = %d, want -10", d)
	}
	// within half the world: no wrap needed.
	if d := TorDiff(20, 10, 100); d != 10 {
		t.Errorf("TorDiff(20,10,100) = %d, want 10", d)
	}
}

func TestPointArithmetic(t *testing.T) {
	p := NewPoint(1, 2)
	q := NewPoint(3, 4)
	if got := p.Add(q); !got.Equal(NewPoint(4, 6)) {
		t.Errorf("Add = %v", got)
	}
	if got := p.Sub(q); !got.Equal(NewPoint(-2, -2)) {
		t.Errorf("Sub = %v", got)
	}
}

func TestPointDimensionMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on dimension mismatch")
		}
	}()
	NewPoint(1, 2).Add(NewPoint(1, 2, 3))
}
