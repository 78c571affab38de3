// Package volume provides the binary 3D voxel data model consumed by the
// topology and shape-quantification packages. A volume is addressed by
// integer (x, y, z) coordinates; reads outside the extents return
// background. This zero-padded boundary behavior is relied on by the
// Euler characteristic estimator, which slides its octant window one
// voxel past the extents on every face.
package volume

import (
	"fmt"
	"math"
)

// Binary is the read-only capability the algorithms need from a volume.
// Implementations must be safe for concurrent readers.
type Binary interface {
	// Get reports whether the voxel at (x, y, z) is foreground.
	// Out-of-range coordinates must return false.
	Get(x, y, z int) bool

	// Dimensions returns the extents of the volume in voxels.
	Dimensions() (w, h, d int)
}

// Calibrated is implemented by volumes that carry physical voxel
// spacing. Spacing is optional; algorithms that do not find it assume
// isotropic unit voxels.
type Calibrated interface {
	// Spacing returns the physical size of a voxel along each axis.
	Spacing() (sx, sy, sz float64)
}

// Grid is an in-memory binary volume backed by a flat row-major array,
// ordered z-major then y then x as in the rest of this module.
type Grid struct {
	data    []bool
	w, h, d int

	// voxel spacing, defaults to 1.0 along each axis
	sx, sy, sz float64
}

// NewGrid allocates an all-background grid with the given extents.
// All three extents must be positive.
func NewGrid(w, h, d int) (*Grid, error) {
	if w <= 0 || h <= 0 || d <= 0 {
		return nil, fmt.Errorf("volume: invalid dimensions %dx%dx%d, all extents must be positive", w, h, d)
	}
	return &Grid{
		data: make([]bool, w*h*d),
		w:    w, h: h, d: d,
		sx: 1, sy: 1, sz: 1,
	}, nil
}

// Get reports whether the voxel at (x, y, z) is foreground.
// Coordinates outside the extents read as background.
func (g *Grid) Get(x, y, z int) bool {
	if x < 0 || y < 0 || z < 0 || x >= g.w || y >= g.h || z >= g.d {
		return false
	}
	return g.data[(z*g.h+y)*g.w+x]
}

// Set writes the voxel at (x, y, z). Writes outside the extents are
// ignored, mirroring the read-side boundary contract.
func (g *Grid) Set(x, y, z int, fg bool) {
	if x < 0 || y < 0 || z < 0 || x >= g.w || y >= g.h || z >= g.d {
		return
	}
	g.data[(z*g.h+y)*g.w+x] = fg
}

// Dimensions returns the grid extents in voxels.
func (g *Grid) Dimensions() (w, h, d int) {
	return g.w, g.h, g.d
}

// SetSpacing records the physical voxel size along each axis.
func (g *Grid) SetSpacing(sx, sy, sz float64) {
	g.sx, g.sy, g.sz = sx, sy, sz
}

// Spacing returns the physical voxel size along each axis.
func (g *Grid) Spacing() (sx, sy, sz float64) {
	return g.sx, g.sy, g.sz
}

// Count returns the number of foreground voxels.
func (g *Grid) Count() int {
	n := 0
	for _, v := range g.data {
		if v {
			n++
		}
	}
	return n
}

// Diagonal returns the length of the volume's bounding-box diagonal in
// voxel units. Ray marches and MIL sampling lines are bounded by it.
func Diagonal(v Binary) float64 {
	w, h, d := v.Dimensions()
	return math.Sqrt(float64(w*w + h*h + d*d))
}
