package ellipsoid

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntersection is returned when a plane misses (or is tangent to)
// the ellipsoid. Callers probing fitted ellipsoids with sampling
// planes are expected to handle it.
var ErrNoIntersection = errors.New("ellipsoid: plane does not intersect the ellipsoid")

// Plane is an infinite plane through Point with the given Normal.
type Plane struct {
	Point  r3.Vector
	Normal r3.Vector
}

// Ellipse is the intersection of a plane with an ellipsoid: a center
// plus two orthogonal semi-axis vectors spanning the ellipse, major
// axis first. Center+AxisA, Center-AxisA, Center+AxisB and
// Center-AxisB all lie on the ellipsoid surface and in the plane.
type Ellipse struct {
	Center r3.Vector
	AxisA  r3.Vector
	AxisB  r3.Vector
}

// IntersectPlane cuts the ellipsoid with the plane. The computation
// maps the plane into the frame where the ellipsoid is the unit
// sphere, intersects it with the sphere (a circle), maps the circle
// back, and extracts the orthogonal principal axes of the resulting
// ellipse from the singular value decomposition of the mapped basis.
func IntersectPlane(e *Ellipsoid, p Plane) (Ellipse, error) {
	n := p.Normal.Norm()
	if n == 0 || math.IsNaN(n) {
		return Ellipse{}, fmt.Errorf("ellipsoid: invalid plane normal %v", p.Normal)
	}
	normal := p.Normal.Mul(1 / n)

	// Sphere frame: x = M y + c with M = R diag(r). The plane
	// n.(x - p) = 0 becomes (M^T n).y = n.(p - c).
	m := e.shape()
	nTilde := mulVec(matTranspose(m), normal)
	d := normal.Dot(p.Point.Sub(e.center))

	scale := nTilde.Norm()
	s := d / scale // signed distance of the plane from the sphere center
	if math.IsNaN(s) || math.Abs(s) >= 1 {
		return Ellipse{}, ErrNoIntersection
	}

	// Circle of radius rho about s*mHat in the sphere frame.
	mHat := nTilde.Mul(1 / scale)
	rho := math.Sqrt(1 - s*s)
	u, v := completeBasis(mHat)

	center := mulVec(m, mHat.Mul(s)).Add(e.center)

	// The ellipse is {center + B w : |w| = 1} with B = rho * M [u v].
	bu := mulVec(m, u).Mul(rho)
	bv := mulVec(m, v).Mul(rho)
	b := mat.NewDense(3, 2, []float64{
		bu.X, bv.X,
		bu.Y, bv.Y,
		bu.Z, bv.Z,
	})

	var svd mat.SVD
	if !svd.Factorize(b, mat.SVDThin) {
		return Ellipse{}, ErrNoIntersection
	}
	var uMat mat.Dense
	svd.UTo(&uMat)
	sigma := svd.Values(nil)

	axisA := r3.Vector{X: uMat.At(0, 0), Y: uMat.At(1, 0), Z: uMat.At(2, 0)}.Mul(sigma[0])
	axisB := r3.Vector{X: uMat.At(0, 1), Y: uMat.At(1, 1), Z: uMat.At(2, 1)}.Mul(sigma[1])

	return Ellipse{Center: center, AxisA: axisA, AxisB: axisB}, nil
}

// completeBasis returns two unit vectors orthogonal to w and to each
// other, so that (u, v, w) is a right-handed orthonormal basis.
func completeBasis(w r3.Vector) (u, v r3.Vector) {
	t := r3.Vector{X: 1, Y: 0, Z: 0}
	if math.Abs(w.X) > 0.9 {
		t = r3.Vector{X: 0, Y: 1, Z: 0}
	}
	u = w.Cross(t).Normalize()
	v = w.Cross(u)
	return u, v
}

func matTranspose(m *mat.Dense) *mat.Dense {
	out := mat.NewDense(3, 3, nil)
	out.Copy(m.T())
	return out
}

func mulVec(m *mat.Dense, v r3.Vector) r3.Vector {
	in := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(m, in)
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}
