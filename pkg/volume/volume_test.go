package volume

import (
	"math"
	"testing"
)

func TestNewGridRejectsInvalidDimensions(t *testing.T) {
	cases := []struct{ w, h, d int }{
		{0, 4, 4},
		{4, 0, 4},
		{4, 4, 0},
		{-1, 4, 4},
		{4, -2, 4},
	}
	for _, c := range cases {
		if _, err := NewGrid(c.w, c.h, c.d); err == nil {
			t.Errorf("NewGrid(%d, %d, %d) should have failed", c.w, c.h, c.d)
		}
	}
}

func TestGridSetGet(t *testing.T) {
	g, err := NewGrid(4, 5, 6)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}

	if g.Get(1, 2, 3) {
		t.Error("fresh grid should be all background")
	}

	g.Set(1, 2, 3, true)
	if !g.Get(1, 2, 3) {
		t.Error("voxel (1,2,3) should be foreground after Set")
	}
	if g.Get(3, 2, 1) {
		t.Error("voxel (3,2,1) should still be background")
	}

	g.Set(1, 2, 3, false)
	if g.Get(1, 2, 3) {
		t.Error("voxel (1,2,3) should be background after clearing")
	}
}

func TestGridOutOfRangeReadsAreBackground(t *testing.T) {
	g, _ := NewGrid(3, 3, 3)
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			for z := 0; z < 3; z++ {
				g.Set(x, y, z, true)
			}
		}
	}

	outside := [][3]int{
		{-1, 0, 0}, {0, -1, 0}, {0, 0, -1},
		{3, 0, 0}, {0, 3, 0}, {0, 0, 3},
		{-1, -1, -1}, {3, 3, 3}, {100, 100, 100},
	}
	for _, p := range outside {
		if g.Get(p[0], p[1], p[2]) {
			t.Errorf("Get(%d, %d, %d) outside extents should be background", p[0], p[1], p[2])
		}
	}

	// Out-of-range writes must be ignored, not panic.
	g.Set(-1, 0, 0, true)
	g.Set(3, 3, 3, true)
}

func TestGridSpacing(t *testing.T) {
	g, _ := NewGrid(2, 2, 2)

	sx, sy, sz := g.Spacing()
	if sx != 1 || sy != 1 || sz != 1 {
		t.Errorf("default spacing should be unit, got (%f, %f, %f)", sx, sy, sz)
	}

	g.SetSpacing(0.5, 0.5, 2.5)
	sx, sy, sz = g.Spacing()
	if sx != 0.5 || sy != 0.5 || sz != 2.5 {
		t.Errorf("expected spacing (0.5, 0.5, 2.5), got (%f, %f, %f)", sx, sy, sz)
	}
}

func TestCount(t *testing.T) {
	g, _ := NewGrid(4, 4, 4)
	if g.Count() != 0 {
		t.Errorf("empty grid count should be 0, got %d", g.Count())
	}
	g.Set(0, 0, 0, true)
	g.Set(3, 3, 3, true)
	g.Set(1, 2, 0, true)
	if g.Count() != 3 {
		t.Errorf("expected count 3, got %d", g.Count())
	}
}

func TestDiagonal(t *testing.T) {
	g, _ := NewGrid(3, 4, 12)
	want := 13.0
	if got := Diagonal(g); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected diagonal %f, got %f", want, got)
	}
}
