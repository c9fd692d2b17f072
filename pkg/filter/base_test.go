package filter

import (
	"errors"
	"testing"

	"github.com/ssheybani/mrtrix3/pkg/volume"
)

// TestParseKind checks name resolution for the closed filter set.
func TestParseKind(t *testing.T) {
	for i, name := range []string{"fft", "gradient", "median", "smooth"} {
		k, err := ParseKind(name)
		if err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
		if k != Kind(i) {
			t.Errorf("%s: expected kind %d, got %d", name, i, k)
		}
		if k.String() != name {
			t.Errorf("kind %d: expected name %q, got %q", i, name, k.String())
		}
	}

	if _, err := ParseKind("sobel"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("unknown filter name: expected a configuration error, got %v", err)
	}
}

// TestBaseHeaderIsolation checks that the negotiated header is returned by
// value: callers cannot corrupt the filter's geometry through it.
func TestBaseHeaderIsolation(t *testing.T) {
	h := volume.NewHeader([]int{4, 4, 4}, []float64{1, 1, 1}, volume.Float32)
	b := NewBase(h)

	got := b.Header()
	got.Dims[0] = 99
	if b.Size(0) != 4 {
		t.Error("mutating the returned header changed the filter's geometry")
	}
}

// TestBaseStrideOverride checks the stride-selection contract.
func TestBaseStrideOverride(t *testing.T) {
	h := volume.NewHeader([]int{4, 4, 4}, []float64{1, 1, 1}, volume.Float32)
	b := NewBase(h)

	if err := b.SetStrides([]int{3, -1, 2}); err != nil {
		t.Fatalf("valid stride override rejected: %v", err)
	}
	out := b.Header()
	if out.Strides[0] != 3 || out.Strides[1] != -1 || out.Strides[2] != 2 {
		t.Errorf("stride override not applied: %v", out.Strides)
	}

	for _, strides := range [][]int{{1, 2}, {1, 1, 2}, {0, 1, 2}, {1, 2, 4}} {
		if err := b.SetStrides(strides); !errors.Is(err, ErrConfiguration) {
			t.Errorf("strides %v: expected a configuration error, got %v", strides, err)
		}
	}
}

// TestBaseMessage checks the progress message plumbing.
func TestBaseMessage(t *testing.T) {
	h := volume.NewHeader([]int{4, 4, 4}, []float64{1, 1, 1}, volume.Float32)
	b := NewBase(h)
	b.SetMessage("applying median filter to image in.vol...")
	if b.Message() != "applying median filter to image in.vol..." {
		t.Errorf("unexpected message %q", b.Message())
	}
}

// TestFilterVoxelSizeAccessor checks the geometry accessors filters use for
// parameter defaults.
func TestFilterVoxelSizeAccessor(t *testing.T) {
	h := volume.NewHeader([]int{4, 4, 4}, []float64{0.5, 1.25, 3}, volume.Float32)
	b := NewBase(h)
	if b.Rank() != 3 {
		t.Errorf("expected rank 3, got %d", b.Rank())
	}
	if b.VoxelSize(1) != 1.25 {
		t.Errorf("expected voxel size 1.25 on axis 1, got %g", b.VoxelSize(1))
	}
	if b.Size(2) != 4 {
		t.Errorf("expected size 4 on axis 2, got %d", b.Size(2))
	}
}
