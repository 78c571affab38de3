package ellipsoid

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

func TestNewRejectsInvalidRadii(t *testing.T) {
	bad := [][3]float64{
		{0, 1, 2},
		{1, -1, 2},
		{1, 2, math.NaN()},
		{1, math.Inf(1), 2},
		{-3, -2, -1},
	}
	for _, radii := range bad {
		if _, err := New(r3.Vector{}, radii, nil); err == nil {
			t.Errorf("New with radii %v should have failed", radii)
		}
	}
}

func TestNewRejectsWrongOrientationShape(t *testing.T) {
	orient := mat.NewDense(2, 3, nil)
	if _, err := New(r3.Vector{}, [3]float64{1, 2, 3}, orient); err == nil {
		t.Error("New with a 2x3 orientation should have failed")
	}
}

func TestNewRejectsNonOrthonormalOrientation(t *testing.T) {
	bad := []*mat.Dense{
		// Scaled axes.
		mat.NewDense(3, 3, []float64{
			2, 0, 0,
			0, 2, 0,
			0, 0, 2,
		}),
		// Skewed axes.
		mat.NewDense(3, 3, []float64{
			1, 1, 0,
			0, 1, 0,
			0, 0, 1,
		}),
		// Rank deficient.
		mat.NewDense(3, 3, []float64{
			1, 1, 0,
			0, 0, 0,
			0, 0, 1,
		}),
	}
	for i, orient := range bad {
		if _, err := New(r3.Vector{}, [3]float64{1, 2, 3}, orient); err == nil {
			t.Errorf("orientation %d is not orthonormal, New should have failed", i)
		}
	}

	// A proper rotation still passes.
	c, s := math.Cos(0.3), math.Sin(0.3)
	rot := mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
	if _, err := New(r3.Vector{}, [3]float64{1, 2, 3}, rot); err != nil {
		t.Errorf("New with a rotation matrix failed: %v", err)
	}
}

func TestNewSortsRadiiAscending(t *testing.T) {
	// Radii given out of order; axes must follow their radii.
	orient := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	e, err := New(r3.Vector{}, [3]float64{5, 1, 3}, orient)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	radii := e.Radii()
	if radii != [3]float64{1, 3, 5} {
		t.Errorf("expected radii sorted ascending (1, 3, 5), got %v", radii)
	}

	// Radius 1 (shortest) came in on the y column, radius 5 (longest)
	// on the x column.
	if got := e.Axis(0); got != (r3.Vector{X: 0, Y: 1, Z: 0}) {
		t.Errorf("shortest axis should be y, got %v", got)
	}
	if got := e.Axis(2); got != (r3.Vector{X: 1, Y: 0, Z: 0}) {
		t.Errorf("longest axis should be x, got %v", got)
	}
}

func TestVolume(t *testing.T) {
	e, err := New(r3.Vector{}, [3]float64{1, 2, 3}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	want := 4.0 / 3.0 * math.Pi * 6.0
	if math.Abs(e.Volume()-want) > 1e-12 {
		t.Errorf("expected volume %f, got %f", want, e.Volume())
	}
}

func TestContainsAndEvaluate(t *testing.T) {
	center := r3.Vector{X: 10, Y: -2, Z: 5}
	e, err := New(center, [3]float64{2, 3, 4}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !e.Contains(center) {
		t.Error("center must be inside")
	}
	// Surface point along the shortest (x) axis.
	p := center.Add(r3.Vector{X: 2})
	if v := e.Evaluate(p); math.Abs(v-1.0) > 1e-12 {
		t.Errorf("surface point should evaluate to 1, got %f", v)
	}
	if e.Contains(center.Add(r3.Vector{X: 2.01})) {
		t.Error("point beyond the surface must be outside")
	}
}

func TestSemiAxes(t *testing.T) {
	e, err := New(r3.Vector{}, [3]float64{2, 3, 4}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	axes := e.SemiAxes()
	wantNorms := [3]float64{2, 3, 4}
	for i, a := range axes {
		if math.Abs(a.Norm()-wantNorms[i]) > 1e-12 {
			t.Errorf("semi-axis %d norm %f, want %f", i, a.Norm(), wantNorms[i])
		}
	}
}

func TestSpiralDirectionsAreUnitAndSpread(t *testing.T) {
	for _, n := range []int{1, 2, 10, 100, 700} {
		dirs := SpiralDirections(n)
		if len(dirs) != n {
			t.Fatalf("expected %d directions, got %d", n, len(dirs))
		}
		var sum r3.Vector
		for i, d := range dirs {
			if math.Abs(d.Norm()-1.0) > 1e-12 {
				t.Errorf("n=%d: direction %d has norm %f", n, i, d.Norm())
			}
			sum = sum.Add(d)
		}
		// A near-uniform covering has a small resultant vector.
		if n >= 100 && sum.Norm()/float64(n) > 0.05 {
			t.Errorf("n=%d: directions are unbalanced, mean resultant %f", n, sum.Norm()/float64(n))
		}
	}
}

func TestSpiralDirectionsDeterministic(t *testing.T) {
	a := SpiralDirections(250)
	b := SpiralDirections(250)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("direction %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}
