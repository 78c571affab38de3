package anisotropy

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"trabecula3d/pkg/ellipsoid"
	"trabecula3d/pkg/quadric"
	"trabecula3d/pkg/volume"
)

// ErrNoEllipsoid reports that the MIL point cloud did not decompose to
// a valid ellipsoid. This is an expected outcome for pathological or
// undersampled inputs; callers retry with more directions or report
// the condition, they do not treat it as a programming error.
var ErrNoEllipsoid = errors.New("anisotropy: MIL point cloud does not fit an ellipsoid")

// Results holds the anisotropy quantification of one volume.
type Results struct {
	// DegreeOfAnisotropy is 1 - (r0/r2)^2 over the sorted MIL
	// ellipsoid radii: 0 for perfectly isotropic structure,
	// approaching 1 for strongly anisotropic structure.
	DegreeOfAnisotropy float64

	// Radii are the MIL ellipsoid semi-axis lengths, ascending. The
	// shortest radius marks the direction of finest structure.
	Radii [3]float64

	// Eigenvalues are 1/r² for each radius, in the same order as
	// Radii (therefore descending).
	Eigenvalues [3]float64

	// Eigenvectors is the 3x3 orientation matrix; column i is the
	// unit principal axis for Radii[i].
	Eigenvectors *mat.Dense

	// Ellipsoid is the fitted MIL ellipsoid itself.
	Ellipsoid *ellipsoid.Ellipsoid

	// MILVectors are the raw per-direction mean-intercept-length
	// vectors, in sampling submission order.
	MILVectors []r3.Vector

	// MeanInterceptLength is the mean magnitude of the MIL vectors.
	MeanInterceptLength float64
}

// Calculate runs the full anisotropy pipeline: MIL sampling, quadric
// fitting of the intercept tensor, ellipsoid decomposition and the
// degree-of-anisotropy scalar. A fitting failure surfaces as
// ErrNoEllipsoid; sampling preconditions fail fast before any work.
func Calculate(ctx context.Context, v volume.Binary, p Params) (*Results, error) {
	milVectors, err := SampleMIL(ctx, v, p)
	if err != nil {
		return nil, err
	}

	// Fit the origin-centred form M with d^T M d = 1/MIL², the
	// intercept density tensor of Harrigan & Mann. Fitting the
	// inverse-square magnitudes keeps every residual bounded, where a
	// direct fit of the MIL endpoints lets the near-unbounded
	// magnitudes of strongly anisotropic structure dominate the least
	// squares and push the quadric indefinite. The MIL ellipsoid falls
	// out unchanged: its radii along the principal axes of M are
	// 1/sqrt(eigenvalue).
	dirs := make([]r3.Vector, len(milVectors))
	values := make([]float64, len(milVectors))
	for i, m := range milVectors {
		mag := m.Norm()
		dirs[i] = m.Mul(1 / mag)
		values[i] = 1 / (mag * mag)
	}

	q, err := quadric.FitCenteredForm(dirs, values)
	if err != nil {
		if errors.Is(err, quadric.ErrTooFewDirections) {
			return nil, fmt.Errorf("anisotropy: %d directions are too few for the quadric fit: %w", len(milVectors), err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNoEllipsoid, err)
	}
	e, ok := q.Ellipsoid()
	if !ok {
		return nil, ErrNoEllipsoid
	}

	radii := e.Radii()
	res := &Results{
		DegreeOfAnisotropy: 1 - (radii[0]*radii[0])/(radii[2]*radii[2]),
		Radii:              radii,
		Eigenvectors:       e.Orientation(),
		Ellipsoid:          e,
		MILVectors:         milVectors,
	}
	for i, r := range radii {
		res.Eigenvalues[i] = 1 / (r * r)
	}

	mags := make([]float64, len(milVectors))
	for i, m := range milVectors {
		mags[i] = m.Norm()
	}
	res.MeanInterceptLength = stat.Mean(mags, nil)

	return res, nil
}
