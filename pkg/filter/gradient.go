package filter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ssheybani/mrtrix3/pkg/loop"
	"github.com/ssheybani/mrtrix3/pkg/volume"
)

// Gradient estimates the spatial gradient of a real-valued 3D volume. The
// input is first Gaussian-smoothed per axis (default stdev: one voxel) to
// keep finite differencing from amplifying noise, then differentiated with
// centred differences (one-sided at the boundary). By default the output
// gains a trailing axis of length 3 holding the x, y, z components; with
// magnitude output the component axis is collapsed to the Euclidean norm.
type Gradient struct {
	Base
	stdev     [3]float64
	magnitude bool
	scanner   bool
	workers   int
}

// NewGradient builds a gradient filter over the input geometry.
func NewGradient(in volume.Header, magnitude bool) (*Gradient, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometry, err)
	}
	if in.Rank() != 3 {
		return nil, fmt.Errorf("%w: gradient filter expects a 3D image, got rank %d",
			ErrGeometry, in.Rank())
	}
	g := &Gradient{
		Base:      NewBase(in),
		magnitude: magnitude,
	}
	for d := 0; d < 3; d++ {
		g.stdev[d] = in.VoxelSize[d]
	}
	g.hdr.Type = volume.Float32
	if !magnitude {
		// component axis: outermost stride, nominal 1 mm voxel size
		g.hdr.Dims = append(g.hdr.Dims, 3)
		g.hdr.Strides = append(g.hdr.Strides, 4)
		g.hdr.VoxelSize = append(g.hdr.VoxelSize, 1)
	}
	return g, nil
}

// SetStdev sets the pre-smoothing stdev in mm, as a single value broadcast
// to all three axes or one value per axis.
func (g *Gradient) SetStdev(values []float64) error {
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
			g.stdev[d] = values[0]
		} else {
			g.stdev[d] = values[d]
		}
	}
	return nil
}

// SetScannerFrame selects whether gradient vectors are rotated into the
// scanner coordinate frame using the volume's voxel-to-scanner transform,
// instead of being expressed along the voxel index axes.
func (g *Gradient) SetScannerFrame(enable bool) { g.scanner = enable }

// SetWorkers sets the worker pool size used by the pre-smoothing pass.
func (g *Gradient) SetWorkers(n int) { g.workers = n }

// Apply computes the gradient of in into out.
func (g *Gradient) Apply(in, out *volume.Volume) error {
	if err := sameShape(g.hdr, out.Header()); err != nil {
		return err
	}
	inHdr := in.Header()

	smoother, err := NewSmooth(inHdr)
	if err != nil {
		return err
	}
	if err := smoother.SetStdev(g.stdev[:]); err != nil {
		return err
	}
	if g.workers > 0 {
		smoother.SetWorkers(g.workers)
	}
	smoothed, err := volume.New(smoother.Header().WithType(volume.Float64))
	if err != nil {
		return err
	}
	if err := smoother.Apply(in, smoothed); err != nil {
		return err
	}

	var rot *mat.Dense
	if g.scanner {
		t := inHdr.Transform
		rot = mat.NewDense(3, 3, []float64{
			t[0][0], t[0][1], t[0][2],
			t[1][0], t[1][1], t[1][2],
			t[2][0], t[2][1], t[2][2],
		})
	}

	srcV := smoothed.View()
	probe := smoothed.View()
	outV := out.View()

	grad := mat.NewVecDense(3, nil)
	rotated := mat.NewVecDense(3, nil)

	spatial := loop.InOrder(inHdr)
	spatial.Run(func() {
		for d := 0; d < 3; d++ {
			grad.SetVec(d, g.derivative(srcV, probe, d))
		}
		v := grad
		if rot != nil {
			rotated.MulVec(rot, grad)
			v = rotated
		}
		if g.magnitude {
			outV.SetValue(math.Hypot(math.Hypot(v.AtVec(0), v.AtVec(1)), v.AtVec(2)))
			return
		}
		for d := 0; d < 3; d++ {
			outV.SetIndex(3, d)
			outV.SetValue(v.AtVec(d))
		}
	}, srcV, outV)
	return nil
}

// derivative estimates the partial derivative along one axis at the current
// position of src: centred difference over 2h in the interior, one-sided
// over h at the boundary, zero on a degenerate axis.
func (g *Gradient) derivative(src, probe *volume.View, axis int) float64 {
	n := src.Size(axis)
	if n < 2 {
		return 0
	}
	for d := 0; d < 3; d++ {
		probe.SetIndex(d, src.Index(d))
	}
	i := src.Index(axis)
	step := g.hdr.VoxelSize[axis]
	switch {
	case i == 0:
		probe.SetIndex(axis, 1)
		upper := probe.Value()
		probe.SetIndex(axis, 0)
		return (upper - probe.Value()) / step
	case i == n-1:
		probe.SetIndex(axis, n-1)
		upper := probe.Value()
		probe.SetIndex(axis, n-2)
		return (upper - probe.Value()) / step
	default:
		probe.SetIndex(axis, i+1)
		upper := probe.Value()
		probe.SetIndex(axis, i-1)
		return (upper - probe.Value()) / (2 * step)
	}
}
