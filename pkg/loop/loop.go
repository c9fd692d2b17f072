// Package loop implements the iteration engine: a restartable traversal of
// the Cartesian product of axis indices that keeps the cursors of several
// images in lock-step, so a loop body is written once and reused by every
// filter and copy pass.
package loop

import (
	"github.com/ssheybani/mrtrix3/pkg/adapter"
	"github.com/ssheybani/mrtrix3/pkg/volume"
)

// Loop describes a traversal: which axes to iterate, in which nesting order
// (first axis is innermost), and their extents.
type Loop struct {
	axes  []int
	sizes []int
}

// InOrder builds a loop over every axis of the header, nested by ascending
// stride magnitude so the innermost axis is the fastest-varying in memory.
func InOrder(h volume.Header) *Loop {
	return OverAxes(h, h.AxisOrder())
}

// OverAxes builds a loop over the given axes in the given nesting order
// (innermost first), with extents taken from the header.
func OverAxes(h volume.Header, axes []int) *Loop {
	l := &Loop{
		axes:  append([]int(nil), axes...),
		sizes: make([]int, len(axes)),
	}
	for i, axis := range axes {
		l.sizes[i] = h.Dims[axis]
	}
	return l
}

// Run traverses the loop once, invoking body at every position with all
// images positioned in lock-step.
func (l *Loop) Run(body func(), images ...adapter.Image) {
	for c := l.Start(images...); c.Ok(); c.Next() {
		body()
	}
}

// Start resets all images to position zero along the loop axes and returns
// a cursor over the traversal. Images whose rank does not reach a loop axis
// are simply not positioned along it, which is how a 3D mask rides along a
// 4D traversal.
func (l *Loop) Start(images ...adapter.Image) *Cursor {
	c := &Cursor{
		loop:   l,
		images: images,
		pos:    make([]int, len(l.axes)),
	}
	for i, axis := range l.axes {
		c.pos[i] = 0
		for _, img := range images {
			if axis < img.Rank() {
				img.SetIndex(axis, 0)
			}
		}
	}
	return c
}

// Cursor is one in-flight traversal of a Loop.
type Cursor struct {
	loop   *Loop
	images []adapter.Image
	pos    []int
	done   bool
}

// Ok reports whether the cursor still points at a valid position.
func (c *Cursor) Ok() bool { return !c.done }

// Next advances every image to the next position, carrying from the
// innermost axis outwards.
func (c *Cursor) Next() {
	for i, axis := range c.loop.axes {
		c.pos[i]++
		for _, img := range c.images {
			if axis < img.Rank() {
				img.MoveIndex(axis, 1)
			}
		}
		if c.pos[i] < c.loop.sizes[i] {
			return
		}
		// carry: rewind this axis and advance the next
		c.pos[i] = 0
		for _, img := range c.images {
			if axis < img.Rank() {
				img.SetIndex(axis, 0)
			}
		}
	}
	c.done = true
}
