package filter

import "errors"

// Error taxonomy. Configuration problems are detected while building a
// filter, before any image data is touched; geometry problems are detected
// when a filter meets an input whose rank or shape it cannot serve. Storage
// I/O errors are not wrapped here, they propagate from the volume package
// unchanged.
var (
	// ErrConfiguration marks invalid or contradictory filter parameters.
	ErrConfiguration = errors.New("invalid filter configuration")

	// ErrGeometry marks an input volume whose rank or shape is incompatible
	// with the filter.
	ErrGeometry = errors.New("incompatible image geometry")
)
