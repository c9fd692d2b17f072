// Package volume provides the in-memory representation of N-dimensional
// raster volumes: the geometry header describing a grid, the voxel storage
// itself, cursor-bearing views over that storage, and a simple two-file
// on-disk format (YAML header plus raw little-endian data).
package volume

import "fmt"

// Identity is the voxel-to-scanner rotation of a volume whose grid axes are
// aligned with the scanner axes.
var Identity = [3][3]float64{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// Header describes the geometry of an N-dimensional volume: its shape, the
// traversal order of its axes, the physical size of a voxel along each axis,
// and the numeric type of a voxel.
//
// Strides are symbolic: the magnitude of Strides[i] gives the nesting rank of
// axis i (magnitude 1 is the fastest-varying axis in memory), and a negative
// sign means the axis is stored reversed. Magnitudes are always a permutation
// of 1..rank.
type Header struct {
	// Dims holds the number of voxels along each axis.
	Dims []int `yaml:"dims"`

	// Strides holds the symbolic stride of each axis.
	Strides []int `yaml:"strides"`

	// VoxelSize holds the physical extent of one voxel along each axis, in mm.
	VoxelSize []float64 `yaml:"voxel_size"`

	// Type is the numeric kind of a single voxel.
	Type DataType `yaml:"datatype"`

	// Transform is the voxel-to-scanner rotation. It maps a vector expressed
	// in voxel-index axes onto the scanner (physical) frame.
	Transform [3][3]float64 `yaml:"transform"`
}

// NewHeader builds a header with default strides (axis 0 fastest), unit
// scanner rotation and the given shape, voxel sizes and datatype.
func NewHeader(dims []int, voxelSize []float64, t DataType) Header {
	strides := make([]int, len(dims))
	for i := range strides {
		strides[i] = i + 1
	}
	return Header{
		Dims:      append([]int(nil), dims...),
		Strides:   strides,
		VoxelSize: append([]float64(nil), voxelSize...),
		Type:      t,
		Transform: Identity,
	}
}

// Rank returns the number of axes.
func (h Header) Rank() int { return len(h.Dims) }

// Voxels returns the total number of voxels in the grid.
func (h Header) Voxels() int {
	n := 1
	for _, d := range h.Dims {
		n *= d
	}
	return n
}

// Clone returns a deep copy of the header.
func (h Header) Clone() Header {
	c := h
	c.Dims = append([]int(nil), h.Dims...)
	c.Strides = append([]int(nil), h.Strides...)
	c.VoxelSize = append([]float64(nil), h.VoxelSize...)
	return c
}

// WithType returns a copy of the header with the voxel datatype replaced.
func (h Header) WithType(t DataType) Header {
	c := h.Clone()
	c.Type = t
	return c
}

// Validate checks the header invariants: rank at least one, matching slice
// lengths, positive dimensions and voxel sizes, a known datatype, and stride
// magnitudes forming a permutation of 1..rank.
func (h Header) Validate() error {
	if len(h.Dims) == 0 {
		return fmt.Errorf("header has no axes")
	}
	if len(h.Strides) != len(h.Dims) || len(h.VoxelSize) != len(h.Dims) {
		return fmt.Errorf("header rank mismatch: %d dims, %d strides, %d voxel sizes",
			len(h.Dims), len(h.Strides), len(h.VoxelSize))
	}
	for i, d := range h.Dims {
		if d < 1 {
			return fmt.Errorf("dimension of axis %d is %d, must be positive", i, d)
		}
	}
	for i, v := range h.VoxelSize {
		if v <= 0 {
			return fmt.Errorf("voxel size of axis %d is %g, must be positive", i, v)
		}
	}
	if _, err := ParseDataType(string(h.Type)); err != nil {
		return err
	}
	return validateStrides(h.Strides, h.Rank())
}

// SetStrides replaces the symbolic strides, typically from a user override.
func (h *Header) SetStrides(strides []int) error {
	if err := validateStrides(strides, h.Rank()); err != nil {
		return err
	}
	h.Strides = append([]int(nil), strides...)
	return nil
}

func validateStrides(strides []int, rank int) error {
	if len(strides) != rank {
		return fmt.Errorf("expected %d stride values, got %d", rank, len(strides))
	}
	seen := make([]bool, rank)
	for i, s := range strides {
		mag := s
		if mag < 0 {
			mag = -mag
		}
		if mag < 1 || mag > rank {
			return fmt.Errorf("stride %d of axis %d out of range for rank %d", s, i, rank)
		}
		if seen[mag-1] {
			return fmt.Errorf("duplicate stride magnitude %d", mag)
		}
		seen[mag-1] = true
	}
	return nil
}
