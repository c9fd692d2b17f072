package filter

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/ssheybani/mrtrix3/pkg/adapter"
	"github.com/ssheybani/mrtrix3/pkg/loop"
	"github.com/ssheybani/mrtrix3/pkg/volume"
)

// Median replaces every voxel with the median of a rectangular neighbourhood
// of odd extent per spatial axis (default 3x3x3). At the volume boundary the
// window is truncated to the in-bounds samples rather than padded. When
// truncation leaves an even number of samples, the median is the mean of the
// two middle order statistics. 4D inputs are filtered one volume at a time
// across a worker pool.
type Median struct {
	Base
	extent  [3]int
	mask    *volume.Volume
	workers int
}

// NewMedian builds a median filter over the input geometry with the default
// 3x3x3 neighbourhood.
func NewMedian(in volume.Header) (*Median, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometry, err)
	}
	if in.Rank() < 3 || in.Rank() > 4 {
		return nil, fmt.Errorf("%w: median filter expects a 3D or 4D image, got rank %d",
			ErrGeometry, in.Rank())
	}
	m := &Median{
		Base:    NewBase(in),
		extent:  [3]int{3, 3, 3},
		workers: runtime.NumCPU(),
	}
	m.hdr.Type = volume.Float32
	return m, nil
}

// SetExtent sets the neighbourhood size in voxels, as a single value
// broadcast to all three spatial axes or one value per axis. Values must be
// odd and positive.
func (m *Median) SetExtent(values []int) error {
	if len(values) != 1 && len(values) != 3 {
		return fmt.Errorf("%w: expected 1 or 3 extent values, got %d", ErrConfiguration, len(values))
	}
	for _, v := range values {
		if v < 1 {
			return fmt.Errorf("%w: neighbourhood extent must be positive (got %d)", ErrConfiguration, v)
		}
		if v%2 == 0 {
			return fmt.Errorf("%w: neighbourhood extent must be odd (got %d)", ErrConfiguration, v)
		}
	}
	for d := 0; d < 3; d++ {
		if len(values) == 1 {
			m.extent[d] = values[0]
		} else {
			m.extent[d] = values[d]
		}
	}
	return nil
}

// SetMask restricts filtering to voxels where the mask is non-zero; voxels
// outside the mask are copied through unchanged. A nil mask filters
// everywhere.
func (m *Median) SetMask(mask *volume.Volume) { m.mask = mask }

// SetWorkers sets the size of the worker pool used for 4D inputs.
func (m *Median) SetWorkers(n int) {
	if n > 0 {
		m.workers = n
	}
}

// Apply filters in into out.
func (m *Median) Apply(in, out *volume.Volume) error {
	if err := sameShape(in.Header(), out.Header()); err != nil {
		return err
	}

	hdr := in.Header()
	nvol := 1
	if hdr.Rank() == 4 {
		nvol = hdr.Dims[3]
	}

	workers := m.workers
	if workers > nvol {
		workers = nvol
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				m.filterVolume(in, out, t)
			}
		}()
	}
	for t := 0; t < nvol; t++ {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
	return nil
}

// filterVolume runs the median over a single 3D volume. Each call owns its
// cursors and scratch buffer; output regions of distinct volumes are
// disjoint, so no locking is needed.
func (m *Median) filterVolume(in, out *volume.Volume, t int) {
	hdr := in.Header()

	inV, outV := in.View(), out.View()
	probe := in.View()
	if hdr.Rank() == 4 {
		inV.SetIndex(3, t)
		outV.SetIndex(3, t)
		probe.SetIndex(3, t)
	}

	var maskCursor adapter.Image
	if m.mask != nil {
		maskCursor = m.mask.View()
	}
	mask := adapter.NewAllowEmpty(maskCursor, 1)

	samples := make([]float64, 0, m.extent[0]*m.extent[1]*m.extent[2])

	spatial := loop.OverAxes(hdr, spatialOrder(hdr))
	spatial.Run(func() {
		if mask.Value() < 0.5 {
			outV.SetValue(inV.Value())
			return
		}
		samples = samples[:0]
		lo, hi := [3]int{}, [3]int{}
		for d := 0; d < 3; d++ {
			r := m.extent[d] / 2
			lo[d] = max(0, inV.Index(d)-r)
			hi[d] = min(hdr.Dims[d]-1, inV.Index(d)+r)
		}
		for z := lo[2]; z <= hi[2]; z++ {
			probe.SetIndex(2, z)
			for y := lo[1]; y <= hi[1]; y++ {
				probe.SetIndex(1, y)
				for x := lo[0]; x <= hi[0]; x++ {
					probe.SetIndex(0, x)
					samples = append(samples, probe.Value())
				}
			}
		}
		outV.SetValue(median(samples))
	}, inV, outV, mask)
}

// median computes the median of the sample window in place. An even sample
// count (possible at truncated boundary windows) takes the mean of the two
// middle order statistics.
func median(samples []float64) float64 {
	sort.Float64s(samples)
	n := len(samples)
	if n%2 == 1 {
		return samples[n/2]
	}
	return (samples[n/2-1] + samples[n/2]) / 2
}

// spatialOrder returns the first three axes ordered innermost-first by
// stride magnitude.
func spatialOrder(h volume.Header) []int {
	var order []int
	for _, axis := range h.AxisOrder() {
		if axis < 3 {
			order = append(order, axis)
		}
	}
	return order
}
