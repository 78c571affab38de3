package ellipsoid

import (
	"math"

	"github.com/golang/geo/r3"
)

// SpiralDirections returns n unit vectors arranged on the generalized
// spiral of Saff and Kuijlaars, a deterministic, near-uniform covering
// of the sphere. The ellipsoid fitter casts one ray per direction, so
// the set must cover the sphere without clustering; random directions
// would need far more samples for the same coverage.
func SpiralDirections(n int) []r3.Vector {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []r3.Vector{{X: 0, Y: 0, Z: 1}}
	}

	dirs := make([]r3.Vector, n)
	phi := 0.0
	for k := 0; k < n; k++ {
		h := -1.0 + 2.0*float64(k)/float64(n-1)
		theta := math.Acos(h)
		if k == 0 || k == n-1 {
			phi = 0
		} else {
			phi += 3.6 / math.Sqrt(float64(n)*(1.0-h*h))
			if phi > 2*math.Pi {
				phi -= 2 * math.Pi
			}
		}
		sinT := math.Sin(theta)
		dirs[k] = r3.Vector{
			X: sinT * math.Cos(phi),
			Y: sinT * math.Sin(phi),
			Z: math.Cos(theta),
		}
	}
	return dirs
}
