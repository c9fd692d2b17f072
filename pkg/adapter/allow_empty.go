package adapter

// AllowEmpty wraps an image that may be absent. When the parent is missing
// the adapter reports degenerate geometry and a caller-supplied default
// value, and swallows writes and cursor movement, so algorithm code can
// treat "no image supplied" exactly like any other input and never needs a
// nil check. The parent is never touched while absent.
type AllowEmpty struct {
	parent Image

	// ValueIfEmpty is returned by Value when the parent is absent.
	ValueIfEmpty float64
}

// Validatable is implemented by images that can be present but unusable,
// e.g. a handle whose open failed. AllowEmpty treats a parent reporting
// Valid() == false the same as a nil parent.
type Validatable interface {
	Valid() bool
}

// NewAllowEmpty wraps parent, substituting valueIfEmpty for reads when
// parent is nil or reports itself invalid.
func NewAllowEmpty(parent Image, valueIfEmpty float64) *AllowEmpty {
	return &AllowEmpty{parent: parent, ValueIfEmpty: valueIfEmpty}
}

func (a *AllowEmpty) valid() bool {
	if a.parent == nil {
		return false
	}
	if v, ok := a.parent.(Validatable); ok {
		return v.Valid()
	}
	return true
}

// Rank returns the parent's rank, or 0 when absent.
func (a *AllowEmpty) Rank() int {
	if a.valid() {
		return a.parent.Rank()
	}
	return 0
}

// Size returns the parent's size along the axis, or 0 when absent.
func (a *AllowEmpty) Size(axis int) int {
	if a.valid() {
		return a.parent.Size(axis)
	}
	return 0
}

// Index returns the parent's cursor position, or 0 when absent.
func (a *AllowEmpty) Index(axis int) int {
	if a.valid() {
		return a.parent.Index(axis)
	}
	return 0
}

// SetIndex positions the parent cursor; no-op when absent.
func (a *AllowEmpty) SetIndex(axis, pos int) {
	if a.valid() {
		a.parent.SetIndex(axis, pos)
	}
}

// MoveIndex advances the parent cursor; no-op when absent.
func (a *AllowEmpty) MoveIndex(axis, delta int) {
	if a.valid() {
		a.parent.MoveIndex(axis, delta)
	}
}

// Value returns the parent voxel, or ValueIfEmpty when absent.
func (a *AllowEmpty) Value() float64 {
	if a.valid() {
		return a.parent.Value()
	}
	return a.ValueIfEmpty
}

// SetValue writes to the parent voxel; no-op when absent.
func (a *AllowEmpty) SetValue(v float64) {
	if a.valid() {
		a.parent.SetValue(v)
	}
}

// Reset zeroes the parent cursor on every axis; no-op when absent.
func (a *AllowEmpty) Reset() {
	if !a.valid() {
		return
	}
	for axis := 0; axis < a.parent.Rank(); axis++ {
		a.parent.SetIndex(axis, 0)
	}
}
