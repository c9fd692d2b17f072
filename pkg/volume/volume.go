package volume

import "fmt"

// Volume is the shared voxel storage for one N-dimensional grid. The buffer
// itself is never accessed directly by filter code; all reads and writes go
// through cursor-bearing Views, which are cheap to create so that every
// worker can own an independent cursor over the same storage.
type Volume struct {
	hdr Header

	// exactly one of these is allocated, depending on hdr.Type
	real []float64
	cplx []complex128

	// resolved element strides and origin offset
	lin    []int
	origin int
}

// New allocates zero-filled storage for the given header.
func New(hdr Header) (*Volume, error) {
	if err := hdr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid volume header: %w", err)
	}
	v := &Volume{hdr: hdr.Clone()}
	if hdr.Type.IsComplex() {
		v.cplx = make([]complex128, hdr.Voxels())
	} else {
		v.real = make([]float64, hdr.Voxels())
	}
	v.lin, v.origin = linearLayout(v.hdr)
	return v, nil
}

// Header returns a copy of the volume's geometry header.
func (v *Volume) Header() Header { return v.hdr.Clone() }

// View returns a new cursor over the volume, positioned at the origin.
func (v *Volume) View() *View {
	return &View{
		vol: v,
		pos: make([]int, v.hdr.Rank()),
		off: v.origin,
	}
}

// View is a cursor-bearing window onto a Volume. It satisfies the image
// capability set used by the adapter, loop and filter packages. Views share
// the underlying storage; concurrent use is safe as long as writers touch
// disjoint voxel regions.
type View struct {
	vol *Volume
	pos []int
	off int
}

// Rank returns the number of axes of the underlying volume.
func (w *View) Rank() int { return w.vol.hdr.Rank() }

// Size returns the number of voxels along the given axis.
func (w *View) Size(axis int) int { return w.vol.hdr.Dims[axis] }

// Index returns the cursor position along the given axis.
func (w *View) Index(axis int) int { return w.pos[axis] }

// SetIndex moves the cursor to the given position along one axis.
func (w *View) SetIndex(axis, pos int) {
	w.off += (pos - w.pos[axis]) * w.vol.lin[axis]
	w.pos[axis] = pos
}

// MoveIndex advances the cursor along one axis by delta voxels.
func (w *View) MoveIndex(axis, delta int) {
	w.off += delta * w.vol.lin[axis]
	w.pos[axis] += delta
}

// Reset returns the cursor to position zero on every axis.
func (w *View) Reset() {
	for axis := range w.pos {
		w.SetIndex(axis, 0)
	}
}

// Value returns the voxel under the cursor. For complex volumes this is the
// real component.
func (w *View) Value() float64 {
	if w.vol.cplx != nil {
		return real(w.vol.cplx[w.off])
	}
	return w.vol.real[w.off]
}

// SetValue stores a voxel under the cursor. Writing a real value to a
// complex volume clears the imaginary component.
func (w *View) SetValue(v float64) {
	if w.vol.cplx != nil {
		w.vol.cplx[w.off] = complex(v, 0)
		return
	}
	w.vol.real[w.off] = v
}

// Complex returns the voxel under the cursor as a complex number. Real
// volumes report a zero imaginary component.
func (w *View) Complex() complex128 {
	if w.vol.cplx != nil {
		return w.vol.cplx[w.off]
	}
	return complex(w.vol.real[w.off], 0)
}

// SetComplex stores a complex voxel under the cursor. Writing to a real
// volume keeps the real component only.
func (w *View) SetComplex(c complex128) {
	if w.vol.cplx != nil {
		w.vol.cplx[w.off] = c
		return
	}
	w.vol.real[w.off] = real(c)
}
