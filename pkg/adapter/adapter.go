// Package adapter defines the capability set shared by every image-like
// object in the filter pipeline, plus decorators that wrap one such object
// and override specific behaviours without copying voxel storage.
package adapter

// Image is the cursor-bearing access contract over voxel storage. Anything
// satisfying it (a volume view, or another adapter) can be passed to the
// iteration engine and the filters interchangeably.
type Image interface {
	// Rank returns the number of axes.
	Rank() int
	// Size returns the number of voxels along the given axis.
	Size(axis int) int
	// Index returns the cursor position along the given axis.
	Index(axis int) int
	// SetIndex moves the cursor to the given position along one axis.
	SetIndex(axis, pos int)
	// MoveIndex advances the cursor along one axis by delta voxels.
	MoveIndex(axis, delta int)
	// Value returns the voxel under the cursor.
	Value() float64
	// SetValue stores a voxel under the cursor.
	SetValue(v float64)
	// Reset returns the cursor to position zero on every axis.
	Reset()
}

// ComplexImage extends Image with complex-valued voxel access. Only the
// frequency-domain code path needs it.
type ComplexImage interface {
	Image
	Complex() complex128
	SetComplex(c complex128)
}

// Base is the trivial decorator: it embeds the wrapped image and forwards
// every capability unchanged. Concrete adapters embed Base and shadow only
// the methods they alter.
type Base struct {
	Image
}

// NewBase wraps an image without changing any behaviour.
func NewBase(parent Image) Base { return Base{Image: parent} }
