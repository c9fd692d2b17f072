package volume

import "sort"

// AxisOrder returns the axis indices sorted by ascending stride magnitude,
// i.e. innermost (fastest-varying in memory) axis first. Iterating axes in
// this order visits voxels in memory order.
func (h Header) AxisOrder() []int {
	order := make([]int, h.Rank())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return absInt(h.Strides[order[a]]) < absInt(h.Strides[order[b]])
	})
	return order
}

// linearLayout resolves the symbolic strides of a header into per-axis
// element offsets plus the linear offset of voxel (0,0,...). The element
// stride of the axis with magnitude m is the product of the dimensions of
// all axes with smaller magnitudes; a negative symbolic stride flips the
// sign and shifts the origin to the far end of that axis.
func linearLayout(h Header) (strides []int, origin int) {
	rank := h.Rank()
	strides = make([]int, rank)

	// axis index by stride magnitude
	byMag := make([]int, rank)
	for axis, s := range h.Strides {
		byMag[absInt(s)-1] = axis
	}

	step := 1
	for _, axis := range byMag {
		strides[axis] = step
		step *= h.Dims[axis]
	}

	for axis, s := range h.Strides {
		if s < 0 {
			origin += (h.Dims[axis] - 1) * strides[axis]
			strides[axis] = -strides[axis]
		}
	}
	return strides, origin
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
