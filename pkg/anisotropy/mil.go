// Package anisotropy quantifies the directional structure of a binary
// volume with the mean-intercept-length (MIL) method: parallel line
// grids are swept through the volume at many random orientations, the
// foreground/background transitions along each line are counted, and
// the per-orientation MIL vectors are fitted with an ellipsoid whose
// axis ratio yields the degree of anisotropy.
package anisotropy

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"trabecula3d/pkg/volume"
)

// ProgressCallback receives the number of completed directions out of
// the total. It is invoked once per completed direction from worker
// goroutines and must be safe for concurrent use.
type ProgressCallback func(completed, total int)

// Params configure MIL sampling.
type Params struct {
	// Directions is the number of random orientations. Zero selects
	// the default of 128.
	Directions int

	// Lines is the number of parallel sampling lines per orientation.
	// Zero selects the default of 100.
	Lines int

	// Spacing is the sampling increment along each line in voxels.
	// Zero selects the default of 1.0.
	Spacing float64

	// Seed drives all random draws. A fixed seed reproduces
	// bit-identical output regardless of worker count or scheduling.
	Seed int64

	// Workers bounds the worker pool. Zero selects runtime.NumCPU().
	Workers int

	// Progress, when non-nil, is invoked after each completed
	// direction.
	Progress ProgressCallback
}

func (p Params) withDefaults() Params {
	if p.Directions == 0 {
		p.Directions = 128
	}
	if p.Lines == 0 {
		p.Lines = 100
	}
	if p.Spacing == 0 {
		p.Spacing = 1.0
	}
	if p.Workers == 0 {
		p.Workers = runtime.NumCPU()
	}
	return p
}

// milTask is the pre-drawn input of one direction's sampling pass. All
// randomness is drawn up front on the calling goroutine, so the worker
// is a pure function and results do not depend on scheduling.
type milTask struct {
	rotation quat.Number
	offsets  [][2]float64 // per line, in-plane grid offsets
}

// SampleMIL computes one MIL vector per direction. Each vector points
// along its sampling orientation with magnitude equal to the mean
// over the grid lines of that line's in-volume length divided by the
// phase transitions it encountered: directions crossing many
// foreground/background interfaces yield short vectors. Averaging per
// line bounds every magnitude by the longest in-volume chord, so a
// direction with sparse intercepts cannot report a mean intercept
// length longer than the volume itself.
//
// Tasks run on a bounded worker pool and results are collected by
// submission order, not completion order. Cancelling the context stops
// the batch between per-direction tasks.
func SampleMIL(ctx context.Context, v volume.Binary, p Params) ([]r3.Vector, error) {
	p = p.withDefaults()
	if err := validate(v, p); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(p.Seed))
	half := volume.Diagonal(v) / 2
	tasks := make([]milTask, p.Directions)
	for i := range tasks {
		tasks[i].rotation = randomRotation(rng)
		tasks[i].offsets = make([][2]float64, p.Lines)
		for l := range tasks[i].offsets {
			tasks[i].offsets[l][0] = (2*rng.Float64() - 1) * half
			tasks[i].offsets[l][1] = (2*rng.Float64() - 1) * half
		}
	}

	results := make([]r3.Vector, p.Directions)
	taskCh := make(chan int)
	var wg sync.WaitGroup
	var completed atomic.Int64

	for w := 0; w < p.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskCh {
				results[i] = sampleDirection(v, tasks[i], p.Spacing)
				done := int(completed.Add(1))
				if p.Progress != nil {
					p.Progress(done, p.Directions)
				}
			}
		}()
	}

	dispatchErr := func() error {
		defer close(taskCh)
		for i := 0; i < p.Directions; i++ {
			select {
			case taskCh <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}()
	wg.Wait()

	if dispatchErr != nil {
		return nil, fmt.Errorf("anisotropy: sampling cancelled: %w", dispatchErr)
	}
	return results, nil
}

// sampleDirection sweeps one rotated line grid through the volume.
func sampleDirection(v volume.Binary, task milTask, spacing float64) r3.Vector {
	dir := rotate(task.rotation, r3.Vector{Z: 1})
	u := rotate(task.rotation, r3.Vector{X: 1})
	w := rotate(task.rotation, r3.Vector{Y: 1})

	wd, ht, dp := v.Dimensions()
	center := r3.Vector{X: float64(wd) / 2, Y: float64(ht) / 2, Z: float64(dp) / 2}
	diag := volume.Diagonal(v)
	steps := int(diag/spacing) + 1

	milSum := 0.0
	lines := 0
	for _, off := range task.offsets {
		origin := center.
			Add(u.Mul(off[0])).
			Add(w.Mul(off[1])).
			Sub(dir.Mul(diag / 2))

		// prev tracks the phase of the previous in-bounds sample;
		// -1 marks "outside the volume", so entering or leaving the
		// bounds does not count as an intercept.
		prev := -1
		length := 0.0
		intercepts := 0
		for s := 0; s <= steps; s++ {
			pos := origin.Add(dir.Mul(float64(s) * spacing))
			x, y, z := floorInt(pos.X), floorInt(pos.Y), floorInt(pos.Z)
			if x < 0 || y < 0 || z < 0 || x >= wd || y >= ht || z >= dp {
				prev = -1
				continue
			}
			length += spacing
			cur := 0
			if v.Get(x, y, z) {
				cur = 1
			}
			if prev >= 0 && cur != prev {
				intercepts++
			}
			prev = cur
		}

		// Lines that miss the volume contribute nothing; a line with
		// no transitions measures a single intercept spanning its
		// whole in-volume length.
		if length == 0 {
			continue
		}
		if intercepts == 0 {
			intercepts = 1
		}
		milSum += length / float64(intercepts)
		lines++
	}

	if lines == 0 {
		return dir.Mul(diag)
	}
	return dir.Mul(milSum / float64(lines))
}

// randomRotation draws a uniformly distributed unit quaternion
// (Shoemake's subgroup algorithm).
func randomRotation(rng *rand.Rand) quat.Number {
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	s1, s2 := math.Sqrt(1-u1), math.Sqrt(u1)
	return quat.Number{
		Real: s1 * math.Sin(2*math.Pi*u2),
		Imag: s1 * math.Cos(2*math.Pi*u2),
		Jmag: s2 * math.Sin(2*math.Pi*u3),
		Kmag: s2 * math.Cos(2*math.Pi*u3),
	}
}

// rotate applies the unit quaternion q to v as q v q*.
func rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

func validate(v volume.Binary, p Params) error {
	w, h, d := v.Dimensions()
	if w <= 0 || h <= 0 || d <= 0 {
		return fmt.Errorf("anisotropy: volume must have three positive extents, got %dx%dx%d", w, h, d)
	}
	if p.Directions < 1 {
		return fmt.Errorf("anisotropy: direction count must be positive, got %d", p.Directions)
	}
	if p.Lines < 1 {
		return fmt.Errorf("anisotropy: line count must be positive, got %d", p.Lines)
	}
	if p.Spacing <= 0 || math.IsNaN(p.Spacing) {
		return fmt.Errorf("anisotropy: sampling spacing must be positive, got %v", p.Spacing)
	}
	if p.Workers < 1 {
		return fmt.Errorf("anisotropy: worker count must be positive, got %d", p.Workers)
	}
	return nil
}

func floorInt(f float64) int {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}
