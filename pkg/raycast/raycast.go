// Package raycast marches rays through binary volumes. It supplies the
// contact-point queries the ellipsoid fitter uses to find the boundary
// of a foreground region from a point inside it.
package raycast

import (
	"github.com/golang/geo/r3"

	"trabecula3d/pkg/volume"
)

// CastRay steps from origin along the unit direction dir in one-voxel
// increments and returns the position of the last sample that still
// reads foreground, i.e. the point immediately before the ray crosses
// into background or leaves the volume. If the origin itself reads
// background the origin is returned unchanged.
//
// The march is bounded by the volume's bounding-box diagonal, so it
// terminates even on an all-foreground volume, returning the last
// in-bounds foreground sample at the volume edge.
func CastRay(v volume.Binary, origin, dir r3.Vector) r3.Vector {
	if !sampleAt(v, origin) {
		return origin
	}

	maxSteps := int(volume.Diagonal(v)) + 1
	last := origin
	pos := origin
	for i := 0; i < maxSteps; i++ {
		pos = pos.Add(dir)
		if !sampleAt(v, pos) {
			break
		}
		last = pos
	}
	return last
}

// ContactPoint returns the first background sample along the ray: one
// voxel step beyond the last foreground sample. For a ray that starts
// in background it is the origin itself.
func ContactPoint(v volume.Binary, origin, dir r3.Vector) r3.Vector {
	if !sampleAt(v, origin) {
		return origin
	}
	return CastRay(v, origin, dir).Add(dir)
}

// sampleAt reads the voxel containing the continuous position p.
func sampleAt(v volume.Binary, p r3.Vector) bool {
	return v.Get(floorInt(p.X), floorInt(p.Y), floorInt(p.Z))
}

func floorInt(f float64) int {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}
