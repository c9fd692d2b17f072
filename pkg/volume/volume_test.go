package volume

import (
	"math"
	"testing"
)

// TestHeaderValidate checks the header invariants: matching slice lengths,
// positive dimensions and voxel sizes, and stride magnitudes forming a
// permutation.
func TestHeaderValidate(t *testing.T) {
	good := NewHeader([]int{4, 4, 4}, []float64{1, 1, 1}, Float32)
	if err := good.Validate(); err != nil {
		t.Fatalf("valid header rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(h *Header)
	}{
		{"zero dimension", func(h *Header) { h.Dims[1] = 0 }},
		{"negative voxel size", func(h *Header) { h.VoxelSize[0] = -1 }},
		{"rank mismatch", func(h *Header) { h.Strides = h.Strides[:2] }},
		{"duplicate stride magnitude", func(h *Header) { h.Strides = []int{1, 1, 2} }},
		{"stride out of range", func(h *Header) { h.Strides = []int{1, 2, 5} }},
		{"unknown datatype", func(h *Header) { h.Type = "int16" }},
	}
	for _, tc := range cases {
		h := NewHeader([]int{4, 4, 4}, []float64{1, 1, 1}, Float32)
		tc.mutate(&h)
		if err := h.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got none", tc.name)
		}
	}
}

// TestAxisOrder checks that axes are ordered innermost-first by stride
// magnitude, ignoring sign.
func TestAxisOrder(t *testing.T) {
	h := NewHeader([]int{4, 5, 6}, []float64{1, 1, 1}, Float32)
	h.Strides = []int{3, -1, 2}

	order := h.AxisOrder()
	expected := []int{1, 2, 0}
	for i, axis := range expected {
		if order[i] != axis {
			t.Fatalf("expected axis order %v, got %v", expected, order)
		}
	}
}

// TestViewCursor checks that cursor positioning, relative movement and
// voxel access stay coherent, including on a reversed axis.
func TestViewCursor(t *testing.T) {
	h := NewHeader([]int{3, 2, 2}, []float64{1, 1, 1}, Float64)
	h.Strides = []int{-2, 1, 3}
	v, err := New(h)
	if err != nil {
		t.Fatalf("allocating volume: %v", err)
	}

	// write a unique value at every position through one view
	w := v.View()
	for z := 0; z < 2; z++ {
		w.SetIndex(2, z)
		for y := 0; y < 2; y++ {
			w.SetIndex(1, y)
			for x := 0; x < 3; x++ {
				w.SetIndex(0, x)
				w.SetValue(float64(100*x + 10*y + z))
			}
		}
	}

	// read them back through an independent view using relative moves
	r := v.View()
	r.SetIndex(0, 2)
	r.MoveIndex(0, -1)
	r.SetIndex(1, 1)
	r.SetIndex(2, 1)
	if got := r.Value(); got != 111 {
		t.Errorf("expected value 111 at (1,1,1), got %g", got)
	}

	r.Reset()
	if got := r.Value(); got != 0 {
		t.Errorf("expected value 0 at origin, got %g", got)
	}
	for axis := 0; axis < 3; axis++ {
		if r.Index(axis) != 0 {
			t.Errorf("expected index 0 on axis %d after Reset, got %d", axis, r.Index(axis))
		}
	}
}

// TestComplexAccess checks the real/complex bridging on views.
func TestComplexAccess(t *testing.T) {
	h := NewHeader([]int{2}, []float64{1}, Complex128)
	v, err := New(h)
	if err != nil {
		t.Fatalf("allocating volume: %v", err)
	}
	w := v.View()
	w.SetComplex(complex(3, -4))
	if got := w.Value(); got != 3 {
		t.Errorf("expected real part 3, got %g", got)
	}
	if got := w.Complex(); got != complex(3, -4) {
		t.Errorf("expected (3-4i), got %v", got)
	}

	rh := NewHeader([]int{2}, []float64{1}, Float64)
	rv, err := New(rh)
	if err != nil {
		t.Fatalf("allocating volume: %v", err)
	}
	rw := rv.View()
	rw.SetValue(2.5)
	if got := rw.Complex(); got != complex(2.5, 0) {
		t.Errorf("expected (2.5+0i), got %v", got)
	}
	if math.IsNaN(real(rw.Complex())) {
		t.Error("unexpected NaN")
	}
}
