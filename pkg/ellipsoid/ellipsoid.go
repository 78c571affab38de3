// Package ellipsoid provides the ellipsoid value type shared by the
// fitting and anisotropy packages, a deterministic spiral direction
// set on the unit sphere, and the ellipsoid/plane intersection used to
// inspect fitted ellipsoids.
package ellipsoid

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Ellipsoid is an immutable ellipsoid: a center, three positive
// semi-axis lengths and an orthonormal orientation matrix whose column
// i is the unit principal axis belonging to radius i. Radii are stored
// in ascending order (r0 <= r1 <= r2, shortest first) and the
// orientation columns are reordered to match at construction time.
type Ellipsoid struct {
	center r3.Vector
	radii  [3]float64
	orient *mat.Dense // 3x3, columns are unit principal axes
}

// New validates and builds an ellipsoid. Every radius must be finite,
// positive and not NaN. orient may be nil for an axis-aligned
// ellipsoid; otherwise it must be a 3x3 matrix with orthonormal
// columns, column i being the principal axis for radii[i].
func New(center r3.Vector, radii [3]float64, orient *mat.Dense) (*Ellipsoid, error) {
	for i, r := range radii {
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
			return nil, fmt.Errorf("ellipsoid: radius %d is %v, must be finite and positive", i, r)
		}
	}
	if orient == nil {
		orient = identity3()
	} else {
		r, c := orient.Dims()
		if r != 3 || c != 3 {
			return nil, fmt.Errorf("ellipsoid: orientation must be 3x3, got %dx%d", r, c)
		}
		if !orthonormal(orient) {
			return nil, fmt.Errorf("ellipsoid: orientation columns must be orthonormal")
		}
	}

	// Sort radii ascending, carrying the axis columns along.
	order := []int{0, 1, 2}
	sort.Slice(order, func(i, j int) bool { return radii[order[i]] < radii[order[j]] })

	var sorted [3]float64
	sortedAxes := mat.NewDense(3, 3, nil)
	for dst, src := range order {
		sorted[dst] = radii[src]
		for row := 0; row < 3; row++ {
			sortedAxes.Set(row, dst, orient.At(row, src))
		}
	}

	return &Ellipsoid{center: center, radii: sorted, orient: sortedAxes}, nil
}

// Center returns the center point.
func (e *Ellipsoid) Center() r3.Vector { return e.center }

// Radii returns the semi-axis lengths in ascending order.
func (e *Ellipsoid) Radii() [3]float64 { return e.radii }

// Orientation returns a copy of the 3x3 orientation matrix. Column i
// is the unit principal axis for radius i.
func (e *Ellipsoid) Orientation() *mat.Dense {
	out := mat.NewDense(3, 3, nil)
	out.Copy(e.orient)
	return out
}

// Axis returns the unit principal axis belonging to radius i.
func (e *Ellipsoid) Axis(i int) r3.Vector {
	return r3.Vector{X: e.orient.At(0, i), Y: e.orient.At(1, i), Z: e.orient.At(2, i)}
}

// SemiAxes returns the three principal semi-axis vectors, shortest
// first: Axis(i) scaled by radius i.
func (e *Ellipsoid) SemiAxes() [3]r3.Vector {
	var out [3]r3.Vector
	for i := 0; i < 3; i++ {
		out[i] = e.Axis(i).Mul(e.radii[i])
	}
	return out
}

// Volume returns 4/3 pi abc.
func (e *Ellipsoid) Volume() float64 {
	return 4.0 / 3.0 * math.Pi * e.radii[0] * e.radii[1] * e.radii[2]
}

// Evaluate computes the quadratic form (p-c)^T A (p-c) where A is the
// ellipsoid matrix; the surface is the level set Evaluate(p) == 1.
func (e *Ellipsoid) Evaluate(p r3.Vector) float64 {
	d := p.Sub(e.center)
	sum := 0.0
	for i := 0; i < 3; i++ {
		q := d.Dot(e.Axis(i)) / e.radii[i]
		sum += q * q
	}
	return sum
}

// Contains reports whether p lies inside or on the ellipsoid.
func (e *Ellipsoid) Contains(p r3.Vector) bool {
	return e.Evaluate(p) <= 1.0
}

// shape returns M = R diag(r): the linear map taking the unit sphere
// to the ellipsoid (up to translation by the center).
func (e *Ellipsoid) shape() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m.Set(row, col, e.orient.At(row, col)*e.radii[col])
		}
	}
	return m
}

// orthonormal reports whether R^T R is the identity to within a small
// tolerance, loose enough to pass eigendecomposition output but tight
// enough to reject scaled or skewed axes.
func orthonormal(r *mat.Dense) bool {
	const tol = 1e-8
	var prod mat.Dense
	prod.Mul(r.T(), r)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			v := prod.At(i, j)
			if math.IsNaN(v) || math.Abs(v-want) > tol {
				return false
			}
		}
	}
	return true
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}
