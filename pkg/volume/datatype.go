package volume

import "fmt"

// DataType identifies the numeric kind of a single voxel. The names double
// as the on-disk spelling in the volume header file.
type DataType string

const (
	Float32    DataType = "float32"
	Float64    DataType = "float64"
	Complex64  DataType = "complex64"
	Complex128 DataType = "complex128"
)

// ParseDataType converts the header spelling of a datatype into a DataType.
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case Float32, Float64, Complex64, Complex128:
		return DataType(s), nil
	}
	return "", fmt.Errorf("unknown datatype %q", s)
}

// IsComplex reports whether voxels of this type carry an imaginary part.
func (d DataType) IsComplex() bool {
	return d == Complex64 || d == Complex128
}

// BytesPerVoxel returns the on-disk size of a single voxel.
func (d DataType) BytesPerVoxel() int {
	switch d {
	case Float32:
		return 4
	case Float64, Complex64:
		return 8
	case Complex128:
		return 16
	}
	return 0
}
