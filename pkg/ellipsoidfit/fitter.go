// Package ellipsoidfit fits a maximal ellipsoid to a foreground region
// of a binary volume by casting rays from a seed point. Rays are sent
// along a generalized-spiral direction set; each ray's transition into
// background yields a contact point, the contact cloud is fitted with
// an algebraic quadric, and the fit is re-centred and repeated until
// the centre stabilises. The routine reports an explicit failure when
// no stable ellipsoid exists within the iteration budget; it never
// fabricates a degenerate result.
package ellipsoidfit

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"

	"trabecula3d/pkg/ellipsoid"
	"trabecula3d/pkg/quadric"
	"trabecula3d/pkg/raycast"
	"trabecula3d/pkg/volume"
)

var (
	// ErrSeedOutside reports a seed point that does not read
	// foreground, so there is no region to fit.
	ErrSeedOutside = errors.New("ellipsoidfit: seed point is not inside the foreground")

	// ErrNoFit reports that no stable ellipsoid was found within the
	// iteration budget. Expected for pathological regions; callers
	// retry with different seeds or parameters.
	ErrNoFit = errors.New("ellipsoidfit: no stable ellipsoid found")
)

// Options control the fit.
type Options struct {
	// Directions is the size of the spiral direction set; it must be
	// at least quadric.MinPoints. Zero selects the default of 200.
	Directions int

	// MaxIterations bounds the recentre-and-refit loop. Zero selects
	// the default of 50.
	MaxIterations int

	// Tolerance is the centre displacement (in voxels) below which
	// the fit is considered converged. Zero selects 1e-3.
	Tolerance float64
}

func (o Options) withDefaults() Options {
	if o.Directions == 0 {
		o.Directions = 200
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = 50
	}
	if o.Tolerance == 0 {
		o.Tolerance = 1e-3
	}
	return o
}

// Fit grows an ellipsoid inside the foreground region containing seed.
func Fit(v volume.Binary, seed r3.Vector, opts Options) (*ellipsoid.Ellipsoid, error) {
	opts = opts.withDefaults()
	if opts.Directions < quadric.MinPoints {
		return nil, fmt.Errorf("ellipsoidfit: need at least %d directions, got %d", quadric.MinPoints, opts.Directions)
	}

	w, h, d := v.Dimensions()
	if w <= 0 || h <= 0 || d <= 0 {
		return nil, fmt.Errorf("ellipsoidfit: volume must have three positive extents, got %dx%dx%d", w, h, d)
	}
	if !v.Get(floorInt(seed.X), floorInt(seed.Y), floorInt(seed.Z)) {
		return nil, ErrSeedOutside
	}

	dirs := ellipsoid.SpiralDirections(opts.Directions)
	center := seed

	var best *ellipsoid.Ellipsoid
	for iter := 0; iter < opts.MaxIterations; iter++ {
		contacts := contactPoints(v, center, dirs)
		if len(contacts) < quadric.MinPoints {
			break
		}

		q, err := quadric.Fit(contacts)
		if err != nil {
			break
		}
		e, ok := q.Ellipsoid()
		if !ok {
			break
		}

		shift := e.Center().Sub(center).Norm()
		center = e.Center()
		best = e
		if shift < opts.Tolerance {
			return best, nil
		}

		// The recentred point must stay inside the region, otherwise
		// the next ray bundle would collapse to the origin.
		if !v.Get(floorInt(center.X), floorInt(center.Y), floorInt(center.Z)) {
			break
		}
	}

	return nil, ErrNoFit
}

// contactPoints casts one ray per direction and keeps the boundary
// crossings. Rays whose origin already reads background contribute
// nothing.
func contactPoints(v volume.Binary, origin r3.Vector, dirs []r3.Vector) []r3.Vector {
	pts := make([]r3.Vector, 0, len(dirs))
	for _, dir := range dirs {
		p := raycast.ContactPoint(v, origin, dir)
		if p == origin {
			continue
		}
		pts = append(pts, p)
	}
	return pts
}

func floorInt(f float64) int {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}
