package filter

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/ssheybani/mrtrix3/pkg/loop"
	"github.com/ssheybani/mrtrix3/pkg/volume"
)

// FFT applies the discrete Fourier transform independently along each
// configured axis. Data is complex throughout regardless of the input
// datatype; the output header is always Complex128. Collapsing to a
// magnitude image is a separate copy pass owned by the caller, working from
// the complex result.
type FFT struct {
	Base
	axes       []int
	inverse    bool
	centreZero bool

	plans map[int]*fourier.CmplxFFT
}

// NewFFT builds an FFT filter over the input geometry. By default the
// transform runs along the first three axes, or along every axis of an
// image with fewer than three.
func NewFFT(in volume.Header, inverse bool) (*FFT, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometry, err)
	}
	n := in.Rank()
	if n > 3 {
		n = 3
	}
	axes := make([]int, n)
	for i := range axes {
		axes[i] = i
	}
	f := &FFT{
		Base:    NewBase(in),
		axes:    axes,
		inverse: inverse,
		plans:   make(map[int]*fourier.CmplxFFT),
	}
	f.hdr.Type = volume.Complex128
	return f, nil
}

// SetAxes replaces the set of transformed axes.
func (f *FFT) SetAxes(axes []int) error {
	if len(axes) == 0 {
		return fmt.Errorf("%w: no FFT axes specified", ErrConfiguration)
	}
	seen := make(map[int]bool, len(axes))
	for _, a := range axes {
		if a < 0 || a >= f.Rank() {
			return fmt.Errorf("%w: FFT axis %d out of range for a rank-%d image",
				ErrConfiguration, a, f.Rank())
		}
		if seen[a] {
			return fmt.Errorf("%w: FFT axis %d listed twice", ErrConfiguration, a)
		}
		seen[a] = true
	}
	f.axes = append([]int(nil), axes...)
	return nil
}

// SetCentreZero selects whether the zero-frequency bin is moved to the
// centre of each transformed axis. For a forward transform the shift is
// applied after transforming; for an inverse transform the matching
// un-shift is applied before transforming, so that inverting a
// centre-zero result is exact.
func (f *FFT) SetCentreZero(enable bool) { f.centreZero = enable }

// Apply runs the transform from in into out. Both must match the geometry
// negotiated at construction; out must be complex-valued.
func (f *FFT) Apply(in, out *volume.Volume) error {
	hdr := out.Header()
	if !hdr.Type.IsComplex() {
		return fmt.Errorf("%w: FFT output must be complex-valued, got %s", ErrGeometry, hdr.Type)
	}
	if err := sameShape(in.Header(), hdr); err != nil {
		return err
	}

	// stage the input into the output buffer; all passes below are in-place
	src, dst := in.View(), out.View()
	loop.InOrder(hdr).Run(func() {
		dst.SetComplex(src.Complex())
	}, src, dst)

	if f.inverse && f.centreZero {
		for _, axis := range f.axes {
			n := hdr.Dims[axis]
			f.shiftAxis(out, axis, n-n/2)
		}
	}

	for _, axis := range f.axes {
		f.transformAxis(out, axis)
	}

	if !f.inverse && f.centreZero {
		for _, axis := range f.axes {
			n := hdr.Dims[axis]
			f.shiftAxis(out, axis, n/2)
		}
	}
	return nil
}

// transformAxis runs a 1-D DFT along every line of the given axis, in
// place. The inverse transform is scaled by 1/N so that a forward
// transform followed by an inverse one is the identity.
func (f *FFT) transformAxis(v *volume.Volume, axis int) {
	hdr := v.Header()
	n := hdr.Dims[axis]
	plan := f.plans[n]
	if plan == nil {
		plan = fourier.NewCmplxFFT(n)
		f.plans[n] = plan
	}

	line := make([]complex128, n)
	coef := make([]complex128, n)
	scale := complex(1/float64(n), 0)

	w := v.View()
	f.lineLoop(hdr, axis).Run(func() {
		for i := 0; i < n; i++ {
			w.SetIndex(axis, i)
			line[i] = w.Complex()
		}
		if f.inverse {
			plan.Sequence(coef, line)
			for i := range coef {
				coef[i] *= scale
			}
		} else {
			plan.Coefficients(coef, line)
		}
		for i := 0; i < n; i++ {
			w.SetIndex(axis, i)
			w.SetComplex(coef[i])
		}
	}, w)
}

// shiftAxis circularly rolls every line of the given axis forward by the
// given amount, in place. Rolling by n/2 is the usual fftshift; rolling by
// n - n/2 undoes it, which differs on odd lengths.
func (f *FFT) shiftAxis(v *volume.Volume, axis, amount int) {
	hdr := v.Header()
	n := hdr.Dims[axis]
	line := make([]complex128, n)

	w := v.View()
	f.lineLoop(hdr, axis).Run(func() {
		for i := 0; i < n; i++ {
			w.SetIndex(axis, i)
			line[i] = w.Complex()
		}
		for i := 0; i < n; i++ {
			w.SetIndex(axis, (i+amount)%n)
			w.SetComplex(line[i])
		}
	}, w)
}

// lineLoop builds a loop over every axis except the one being transformed,
// in memory order.
func (f *FFT) lineLoop(hdr volume.Header, axis int) *loop.Loop {
	var rest []int
	for _, a := range hdr.AxisOrder() {
		if a != axis {
			rest = append(rest, a)
		}
	}
	return loop.OverAxes(hdr, rest)
}

func sameShape(a, b volume.Header) error {
	if a.Rank() != b.Rank() {
		return fmt.Errorf("%w: rank mismatch (%d vs %d)", ErrGeometry, a.Rank(), b.Rank())
	}
	for i := range a.Dims {
		if a.Dims[i] != b.Dims[i] {
			return fmt.Errorf("%w: size mismatch along axis %d (%d vs %d)",
				ErrGeometry, i, a.Dims[i], b.Dims[i])
		}
	}
	return nil
}
