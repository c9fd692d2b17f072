package filter

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/ssheybani/mrtrix3/pkg/adapter"
	"github.com/ssheybani/mrtrix3/pkg/loop"
	"github.com/ssheybani/mrtrix3/pkg/volume"
)

// fwhmToStdev converts a Gaussian full-width-at-half-maximum to a standard
// deviation: fwhm = 2*sqrt(2*ln 2) * stdev ≈ 2.3548 * stdev.
const fwhmToStdev = 2.3548

// Smooth applies separable Gaussian smoothing along the three spatial axes.
// The standard deviation is expressed in mm and defaults to one voxel per
// axis; a zero stdev skips that axis entirely. At volume boundaries the
// kernel window is truncated and renormalised over the in-bounds taps, so a
// constant image stays constant. 4D inputs are smoothed one volume at a
// time across a worker pool.
type Smooth struct {
	Base
	stdev  [3]float64
	extent [3]int // 0 = derive from stdev and voxel size

	stdevSet bool
	fwhmSet  bool

	mask    *volume.Volume
	workers int
}

// NewSmooth builds a smoothing filter over the input geometry with the
// default one-voxel stdev per spatial axis.
func NewSmooth(in volume.Header) (*Smooth, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometry, err)
	}
	if in.Rank() < 3 || in.Rank() > 4 {
		return nil, fmt.Errorf("%w: smooth filter expects a 3D or 4D image, got rank %d",
			ErrGeometry, in.Rank())
	}
	s := &Smooth{
		Base:    NewBase(in),
		workers: runtime.NumCPU(),
	}
	for d := 0; d < 3; d++ {
		s.stdev[d] = in.VoxelSize[d]
	}
	s.hdr.Type = volume.Float32
	return s, nil
}

// SetStdev sets the Gaussian standard deviation in mm, as a single value
// broadcast to all three spatial axes or one value per axis. Mutually
// exclusive with SetFWHM.
func (s *Smooth) SetStdev(values []float64) error {
	if s.fwhmSet {
		return fmt.Errorf("%w: the stdev and FWHM parameters are mutually exclusive", ErrConfiguration)
	}
	if err := s.setSpread(values); err != nil {
		return err
	}
	s.stdevSet = true
	return nil
}

// SetFWHM sets the Gaussian spread as a full-width-at-half-maximum in mm,
// converted internally to a standard deviation. Mutually exclusive with
// SetStdev.
func (s *Smooth) SetFWHM(values []float64) error {
	if s.stdevSet {
		return fmt.Errorf("%w: the stdev and FWHM parameters are mutually exclusive", ErrConfiguration)
	}
	stdevs := make([]float64, len(values))
	for i, v := range values {
		stdevs[i] = v / fwhmToStdev
	}
	if err := s.setSpread(stdevs); err != nil {
		return err
	}
	s.fwhmSet = true
	return nil
}

func (s *Smooth) setSpread(values []float64) error {
	if len(values) != 1 && len(values) != 3 {
		return fmt.Errorf("%w: expected 1 or 3 stdev values, got %d", ErrConfiguration, len(values))
	}
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("%w: Gaussian stdev cannot be negative (got %g)", ErrConfiguration, v)
		}
	}
	for d := 0; d < 3; d++ {
		if len(values) == 1 {
			s.stdev[d] = values[0]
		} else {
			s.stdev[d] = values[d]
		}
	}
	return nil
}

// SetExtent overrides the derived kernel width (number of taps) per spatial
// axis. Values must be odd and positive.
func (s *Smooth) SetExtent(values []int) error {
	if len(values) != 1 && len(values) != 3 {
		return fmt.Errorf("%w: expected 1 or 3 extent values, got %d", ErrConfiguration, len(values))
	}
	for _, v := range values {
		if v < 1 {
			return fmt.Errorf("%w: kernel extent must be positive (got %d)", ErrConfiguration, v)
		}
		if v%2 == 0 {
			return fmt.Errorf("%w: kernel extent must be odd (got %d)", ErrConfiguration, v)
		}
	}
	for d := 0; d < 3; d++ {
		if len(values) == 1 {
			s.extent[d] = values[0]
		} else {
			s.extent[d] = values[d]
		}
	}
	return nil
}

// SetMask restricts smoothing to voxels where the mask is non-zero; voxels
// outside the mask are copied through unchanged. A nil mask smooths
// everywhere.
func (s *Smooth) SetMask(mask *volume.Volume) { s.mask = mask }

// SetWorkers sets the size of the worker pool used for 4D inputs.
func (s *Smooth) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// kernelFor builds the normalised 1-D Gaussian for one spatial axis, or nil
// when the axis is skipped (zero stdev or single-tap extent).
func (s *Smooth) kernelFor(d int) []float64 {
	if s.stdev[d] == 0 {
		return nil
	}
	extent := s.extent[d]
	if extent == 0 {
		extent = 2*int(math.Ceil(2.5*s.stdev[d]/s.hdr.VoxelSize[d])) - 1
	}
	if extent < 3 {
		return nil
	}
	radius := extent / 2
	k := make([]float64, extent)
	for i := range k {
		x := float64(i-radius) * s.hdr.VoxelSize[d]
		k[i] = math.Exp(-x * x / (2 * s.stdev[d] * s.stdev[d]))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// Apply smooths in into out.
func (s *Smooth) Apply(in, out *volume.Volume) error {
	if err := sameShape(in.Header(), out.Header()); err != nil {
		return err
	}
	kernels := [3][]float64{s.kernelFor(0), s.kernelFor(1), s.kernelFor(2)}

	hdr := in.Header()
	nvol := 1
	if hdr.Rank() == 4 {
		nvol = hdr.Dims[3]
	}

	workers := s.workers
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
				s.smoothVolume(in, out, kernels, t)
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

// smoothVolume runs the separable convolution over a single 3D volume,
// ping-ponging between two scratch buffers and writing the result through
// the mask on the final copy. Each call owns its cursors and scratch
// storage; output regions of distinct volumes are disjoint.
func (s *Smooth) smoothVolume(in, out *volume.Volume, kernels [3][]float64, t int) {
	hdr := in.Header()
	hdr3 := volume.NewHeader(hdr.Dims[:3], hdr.VoxelSize[:3], volume.Float64)

	// scratch allocation cannot fail: the header is derived from a
	// validated input
	a, _ := volume.New(hdr3)
	b, _ := volume.New(hdr3)

	spatial := loop.InOrder(hdr3)

	inV, outV := in.View(), out.View()
	if hdr.Rank() == 4 {
		inV.SetIndex(3, t)
		outV.SetIndex(3, t)
	}

	// stage the volume into the first scratch buffer
	aV := a.View()
	spatial.Run(func() {
		aV.SetValue(inV.Value())
	}, inV, aV)

	for d := 0; d < 3; d++ {
		kernel := kernels[d]
		if kernel == nil {
			continue
		}
		s.convolveAxis(a, b, d, kernel, spatial)
		a, b = b, a
	}

	// final copy through the mask
	var maskCursor adapter.Image
	if s.mask != nil {
		maskCursor = s.mask.View()
	}
	mask := adapter.NewAllowEmpty(maskCursor, 1)

	if hdr.Rank() == 4 {
		inV.SetIndex(3, t)
		outV.SetIndex(3, t)
	}
	aV = a.View()
	spatial.Run(func() {
		if mask.Value() > 0.5 {
			outV.SetValue(aV.Value())
		} else {
			outV.SetValue(inV.Value())
		}
	}, aV, inV, outV, mask)
}

// convolveAxis convolves src into dst along one spatial axis, truncating
// and renormalising the kernel window at the volume boundary.
func (s *Smooth) convolveAxis(src, dst *volume.Volume, axis int, kernel []float64, spatial *loop.Loop) {
	radius := len(kernel) / 2
	n := src.Header().Dims[axis]

	srcV, dstV := src.View(), dst.View()
	probe := src.View()

	spatial.Run(func() {
		centre := srcV.Index(axis)
		sum, wsum := 0.0, 0.0
		for k := -radius; k <= radius; k++ {
			pos := centre + k
			if pos < 0 || pos >= n {
				continue
			}
			for d := 0; d < 3; d++ {
				probe.SetIndex(d, srcV.Index(d))
			}
			probe.SetIndex(axis, pos)
			w := kernel[radius+k]
			sum += w * probe.Value()
			wsum += w
		}
		dstV.SetValue(sum / wsum)
	}, srcV, dstV)
}
