// Package quadric fits a general quadric surface to a 3D point cloud
// by algebraic least squares and decomposes it into an ellipsoid. The
// fit is the homogeneous ten-coefficient formulation: the surface
//
//	a x² + b y² + c z² + 2d xy + 2e xz + 2f yz + 2g x + 2h y + 2i z + j = 0
//
// is determined up to scale, so the coefficient vector is the right
// singular vector of the design matrix with the smallest singular
// value. Unlike the constrained "= 1" variant this stays well posed
// for surfaces passing through the origin, where the constant term
// vanishes. The coefficients assemble into the homogeneous 4x4 matrix,
// and the center and principal axes are read off its
// eigendecomposition. The decomposition fails (hyperboloid,
// paraboloid, degenerate cloud) without error: that is an expected
// outcome for poorly sampled data, reported as ok=false rather than a
// crash.
package quadric

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"trabecula3d/pkg/ellipsoid"
)

// MinPoints is the number of points needed to determine the nine free
// coefficients of a general quadric.
const MinPoints = 9

// MinDirections is the number of samples needed to determine the six
// free coefficients of an origin-centred quadratic form.
const MinDirections = 6

// ErrTooFewPoints reports a fit attempted with fewer than MinPoints.
var ErrTooFewPoints = errors.New("quadric: at least 9 points are required to fit a quadric")

// ErrTooFewDirections reports a centred-form fit attempted with fewer
// than MinDirections samples.
var ErrTooFewDirections = errors.New("quadric: at least 6 directions are required to fit a centred form")

// Quadric is the symmetric 4x4 homogeneous coefficient matrix Q of the
// surface x^T Q x = 0 (with x = [x y z 1]). It is an ephemeral
// intermediate between sampling and ellipsoid decomposition.
type Quadric struct {
	m *mat.SymDense
}

// Matrix returns a copy of the 4x4 coefficient matrix.
func (q *Quadric) Matrix() *mat.SymDense {
	out := mat.NewSymDense(4, nil)
	out.CopySym(q.m)
	return out
}

// Fit solves the algebraic least-squares system for the quadric that
// best fits the given points. The coefficient vector is recovered as
// the singular direction of the design matrix closest to its null
// space, so the result is scale-normalised and defined up to sign;
// the decomposition in Ellipsoid is invariant under both. Fewer than
// MinPoints points fail immediately with ErrTooFewPoints.
func Fit(points []r3.Vector) (*Quadric, error) {
	n := len(points)
	if n < MinPoints {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, n)
	}

	design := mat.NewDense(n, 10, nil)
	for i, p := range points {
		design.SetRow(i, []float64{
			p.X * p.X, p.Y * p.Y, p.Z * p.Z,
			2 * p.X * p.Y, 2 * p.X * p.Z, 2 * p.Y * p.Z,
			2 * p.X, 2 * p.Y, 2 * p.Z,
			1,
		})
	}

	// Full V so the tenth right singular vector exists even for the
	// minimal n = 9 system, where the null direction is exact.
	var svd mat.SVD
	if !svd.Factorize(design, mat.SVDFullV) {
		return nil, fmt.Errorf("quadric: singular value decomposition failed")
	}
	var v mat.Dense
	svd.VTo(&v)

	coef := make([]float64, 10)
	for i := range coef {
		coef[i] = v.At(i, 9)
	}
	for _, c := range coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("quadric: least-squares solution is not finite")
		}
	}

	a, b, c := coef[0], coef[1], coef[2]
	d, e, f := coef[3], coef[4], coef[5]
	g, h, i := coef[6], coef[7], coef[8]
	j := coef[9]

	q := mat.NewSymDense(4, []float64{
		a, d, e, g,
		d, b, f, h,
		e, f, c, i,
		g, h, i, j,
	})
	return &Quadric{m: q}, nil
}

// FitCenteredForm fits the origin-centred quadratic form d^T M d = y
// to paired unit directions and sampled values by least squares over
// the six free coefficients of M. The returned quadric is the surface
// x^T M x = 1, so Ellipsoid decomposes it with the center pinned at
// the origin. Degenerate or indefinite data surfaces as ok=false from
// Ellipsoid, not as an error here.
func FitCenteredForm(dirs []r3.Vector, values []float64) (*Quadric, error) {
	n := len(dirs)
	if n != len(values) {
		return nil, fmt.Errorf("quadric: %d directions paired with %d values", n, len(values))
	}
	if n < MinDirections {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewDirections, n)
	}

	design := mat.NewDense(n, 6, nil)
	rhs := mat.NewVecDense(n, nil)
	for i, d := range dirs {
		design.SetRow(i, []float64{
			d.X * d.X, d.Y * d.Y, d.Z * d.Z,
			2 * d.X * d.Y, 2 * d.X * d.Z, 2 * d.Y * d.Z,
		})
		rhs.SetVec(i, values[i])
	}

	var coef mat.VecDense
	if err := coef.SolveVec(design, rhs); err != nil {
		return nil, fmt.Errorf("quadric: least-squares solve failed: %w", err)
	}

	a, b, c := coef.AtVec(0), coef.AtVec(1), coef.AtVec(2)
	d, e, f := coef.AtVec(3), coef.AtVec(4), coef.AtVec(5)
	for _, v := range []float64{a, b, c, d, e, f} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("quadric: least-squares solution is not finite")
		}
	}

	q := mat.NewSymDense(4, []float64{
		a, d, e, 0,
		d, b, f, 0,
		e, f, c, 0,
		0, 0, 0, -1,
	})
	return &Quadric{m: q}, nil
}

// Ellipsoid decomposes the quadric into an ellipsoid. ok is false when
// the quadric is not a bounded ellipsoid: the 3x3 submatrix is
// singular, the eigendecomposition fails, or the eigenvalues do not
// all share the positive sign (an unbounded surface such as a
// hyperboloid). Callers must treat ok=false as an expected,
// recoverable outcome.
func (q *Quadric) Ellipsoid() (*ellipsoid.Ellipsoid, bool) {
	// Center: solve A3 c = -[g h i].
	a3 := mat.NewSymDense(3, nil)
	for r := 0; r < 3; r++ {
		for c := r; c < 3; c++ {
			a3.SetSym(r, c, q.m.At(r, c))
		}
	}
	rhs := mat.NewVecDense(3, []float64{-q.m.At(0, 3), -q.m.At(1, 3), -q.m.At(2, 3)})

	var center mat.VecDense
	if err := center.SolveVec(a3, rhs); err != nil {
		return nil, false
	}

	// Translate the quadric to the center: the scalar term becomes
	// c^T A3 c + 2 b.c + j and the surface is y^T A3 y = -scalar. The
	// ratio A3/-scalar is unchanged under rescaling or sign-flipping
	// the coefficient vector.
	var a3c mat.VecDense
	a3c.MulVec(a3, &center)
	scalar := mat.Dot(&center, &a3c) - 2*mat.Dot(&center, rhs) + q.m.At(3, 3)

	if scalar == 0 || math.IsNaN(scalar) {
		return nil, false
	}

	// Normalised form y^T (A3 / -scalar) y = 1; eigenvalues of the
	// scaled matrix are 1/r² and must all be positive.
	norm := mat.NewSymDense(3, nil)
	for r := 0; r < 3; r++ {
		for c := r; c < 3; c++ {
			norm.SetSym(r, c, q.m.At(r, c)/-scalar)
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(norm, true) {
		return nil, false
	}
	evals := eig.Values(nil)
	for _, ev := range evals {
		if ev <= 0 || math.IsNaN(ev) || math.IsInf(ev, 0) {
			return nil, false
		}
	}

	var evecs mat.Dense
	eig.VectorsTo(&evecs)

	// EigenSym returns eigenvalues ascending, so radii = 1/sqrt(ev)
	// come out descending; ellipsoid.New re-sorts ascending and
	// carries the axis columns along.
	var radii [3]float64
	for i, ev := range evals {
		radii[i] = 1 / math.Sqrt(ev)
	}

	ctr := r3.Vector{X: center.AtVec(0), Y: center.AtVec(1), Z: center.AtVec(2)}
	e, err := ellipsoid.New(ctr, radii, &evecs)
	if err != nil {
		return nil, false
	}
	return e, true
}
