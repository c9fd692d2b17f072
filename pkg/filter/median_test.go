package filter

import (
	"errors"
	"testing"

	"github.com/ssheybani/mrtrix3/pkg/volume"
)

// TestMedianConstantVolume checks idempotence on constants, including the
// boundary voxels whose windows are truncated: a 4x4x4 all-zero volume must
// come out all zero.
func TestMedianConstantVolume(t *testing.T) {
	h := volume.NewHeader([]int{4, 4, 4}, []float64{1, 1, 1}, volume.Float32)
	in := fillReal(t, h, func([]int) float64 { return 0 })

	m, err := NewMedian(h)
	if err != nil {
		t.Fatalf("building median filter: %v", err)
	}
	out, err := volume.New(m.Header())
	if err != nil {
		t.Fatalf("allocating output: %v", err)
	}
	if err := m.Apply(in, out); err != nil {
		t.Fatalf("filtering: %v", err)
	}

	r := out.View()
	hdr := out.Header()
	for z := 0; z < hdr.Dims[2]; z++ {
		r.SetIndex(2, z)
		for y := 0; y < hdr.Dims[1]; y++ {
			r.SetIndex(1, y)
			for x := 0; x < hdr.Dims[0]; x++ {
				r.SetIndex(0, x)
				if got := r.Value(); got != 0 {
					t.Fatalf("expected 0 at (%d,%d,%d), got %g", x, y, z, got)
				}
			}
		}
	}
}

// TestMedianEvenWindowTieBreak checks the documented tie-break: a truncated
// window with an even sample count takes the mean of the two middle order
// statistics. On a 2x2x2 volume with extent 3 every window covers all eight
// voxels.
func TestMedianEvenWindowTieBreak(t *testing.T) {
	h := volume.NewHeader([]int{2, 2, 2}, []float64{1, 1, 1}, volume.Float32)
	in := fillReal(t, h, func(pos []int) float64 {
		return float64(1 + pos[0] + 2*pos[1] + 4*pos[2]) // values 1..8
	})

	m, err := NewMedian(h)
	if err != nil {
		t.Fatalf("building median filter: %v", err)
	}
	out, err := volume.New(m.Header())
	if err != nil {
		t.Fatalf("allocating output: %v", err)
	}
	if err := m.Apply(in, out); err != nil {
		t.Fatalf("filtering: %v", err)
	}

	r := out.View()
	for z := 0; z < 2; z++ {
		r.SetIndex(2, z)
		for y := 0; y < 2; y++ {
			r.SetIndex(1, y)
			for x := 0; x < 2; x++ {
				r.SetIndex(0, x)
				if got := r.Value(); got != 4.5 {
					t.Fatalf("expected median 4.5 at (%d,%d,%d), got %g", x, y, z, got)
				}
			}
		}
	}
}

// TestMedianInterior checks a fully in-bounds window: the centre of a
// 3x3x3 volume filled with 0..26 holds the median of all values.
func TestMedianInterior(t *testing.T) {
	h := volume.NewHeader([]int{3, 3, 3}, []float64{1, 1, 1}, volume.Float32)
	in := fillReal(t, h, func(pos []int) float64 {
		return float64(pos[0] + 3*pos[1] + 9*pos[2])
	})

	m, err := NewMedian(h)
	if err != nil {
		t.Fatalf("building median filter: %v", err)
	}
	out, err := volume.New(m.Header())
	if err != nil {
		t.Fatalf("allocating output: %v", err)
	}
	if err := m.Apply(in, out); err != nil {
		t.Fatalf("filtering: %v", err)
	}

	r := out.View()
	r.SetIndex(0, 1)
	r.SetIndex(1, 1)
	r.SetIndex(2, 1)
	if got := r.Value(); got != 13 {
		t.Errorf("expected 13 at the centre, got %g", got)
	}
}

// TestMedianPerVolume checks that the outer axis of a 4D image is filtered
// one volume at a time: two constant volumes keep their distinct values.
func TestMedianPerVolume(t *testing.T) {
	h := volume.NewHeader([]int{2, 2, 2, 2}, []float64{1, 1, 1, 1}, volume.Float32)
	in := fillReal(t, h, func(pos []int) float64 { return float64(1 + 4*pos[3]) })

	m, err := NewMedian(h)
	if err != nil {
		t.Fatalf("building median filter: %v", err)
	}
	m.SetWorkers(2)
	out, err := volume.New(m.Header())
	if err != nil {
		t.Fatalf("allocating output: %v", err)
	}
	if err := m.Apply(in, out); err != nil {
		t.Fatalf("filtering: %v", err)
	}

	r := out.View()
	for vol := 0; vol < 2; vol++ {
		r.SetIndex(3, vol)
		expected := float64(1 + 4*vol)
		for z := 0; z < 2; z++ {
			r.SetIndex(2, z)
			for y := 0; y < 2; y++ {
				r.SetIndex(1, y)
				for x := 0; x < 2; x++ {
					r.SetIndex(0, x)
					if got := r.Value(); got != expected {
						t.Fatalf("volume %d: expected %g at (%d,%d,%d), got %g",
							vol, expected, x, y, z, got)
					}
				}
			}
		}
	}
}

// TestMedianMask checks that voxels outside the mask are copied through
// unfiltered.
func TestMedianMask(t *testing.T) {
	h := volume.NewHeader([]int{3, 3, 3}, []float64{1, 1, 1}, volume.Float32)
	// a spike the median would normally remove
	in := fillReal(t, h, func(pos []int) float64 {
		if pos[0] == 1 && pos[1] == 1 && pos[2] == 1 {
			return 100
		}
		return 0
	})
	mask := fillReal(t, h, func([]int) float64 { return 0 })

	m, err := NewMedian(h)
	if err != nil {
		t.Fatalf("building median filter: %v", err)
	}
	m.SetMask(mask)
	out, err := volume.New(m.Header())
	if err != nil {
		t.Fatalf("allocating output: %v", err)
	}
	if err := m.Apply(in, out); err != nil {
		t.Fatalf("filtering: %v", err)
	}

	r := out.View()
	r.SetIndex(0, 1)
	r.SetIndex(1, 1)
	r.SetIndex(2, 1)
	if got := r.Value(); got != 100 {
		t.Errorf("masked-out spike should survive, got %g", got)
	}
}

// TestMedianExtentValidation checks the configuration error paths.
func TestMedianExtentValidation(t *testing.T) {
	h := volume.NewHeader([]int{4, 4, 4}, []float64{1, 1, 1}, volume.Float32)
	m, err := NewMedian(h)
	if err != nil {
		t.Fatalf("building median filter: %v", err)
	}

	for _, extent := range [][]int{{2}, {0}, {-3}, {3, 3}, {3, 3, 4}} {
		if err := m.SetExtent(extent); !errors.Is(err, ErrConfiguration) {
			t.Errorf("extent %v: expected a configuration error, got %v", extent, err)
		}
	}
	if err := m.SetExtent([]int{5}); err != nil {
		t.Errorf("extent 5 should be accepted, got %v", err)
	}
}

// TestMedianGeometry checks that only 3D and 4D inputs are accepted.
func TestMedianGeometry(t *testing.T) {
	h := volume.NewHeader([]int{8, 8}, []float64{1, 1}, volume.Float32)
	if _, err := NewMedian(h); !errors.Is(err, ErrGeometry) {
		t.Errorf("expected a geometry error for a 2D input, got %v", err)
	}
}
