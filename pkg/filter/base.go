// Package filter implements the spatial filter algorithms applied to raster
// volumes: Fourier transform, gradient estimation, median filtering and
// Gaussian smoothing. Every filter negotiates the geometry of its output
// before any storage is allocated: it is constructed from the input header,
// adjusts a candidate output header (dimensions, strides, datatype), and
// only then is invoked with concrete input and output volumes.
package filter

import (
	"fmt"

	"github.com/ssheybani/mrtrix3/pkg/volume"
)

// Base carries the state common to all filters: the candidate output header
// and a human-readable progress message. Concrete filters embed it, mutate
// the header at construction time, and leave it fixed during Apply.
type Base struct {
	hdr     volume.Header
	message string
}

// NewBase seeds the candidate output header from the input header.
func NewBase(in volume.Header) Base {
	return Base{hdr: in.Clone()}
}

// Header returns the negotiated output header. The caller allocates output
// storage from it; the filter itself never allocates the output.
func (b *Base) Header() volume.Header { return b.hdr.Clone() }

// Rank returns the output rank.
func (b *Base) Rank() int { return b.hdr.Rank() }

// Size returns the output extent along the given axis.
func (b *Base) Size(axis int) int { return b.hdr.Dims[axis] }

// VoxelSize returns the physical voxel extent along the given axis, in mm.
// Filters use it for parameter defaults (e.g. a one-voxel smoothing stdev).
func (b *Base) VoxelSize(axis int) float64 { return b.hdr.VoxelSize[axis] }

// SetStrides overrides the computed output strides, typically from the
// command line.
func (b *Base) SetStrides(strides []int) error {
	if err := b.hdr.SetStrides(strides); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

// SetMessage sets the progress message reported while the filter runs.
func (b *Base) SetMessage(msg string) { b.message = msg }

// Message returns the progress message.
func (b *Base) Message() string { return b.message }
