package filter

import "fmt"

// Kind is the closed set of available filter algorithms.
type Kind int

const (
	KindFFT Kind = iota
	KindGradient
	KindMedian
	KindSmooth
)

// Names lists the accepted filter names in the order of their Kind values.
var Names = []string{"fft", "gradient", "median", "smooth"}

// ParseKind resolves a user-supplied filter name. An unknown name is a
// configuration error; once parsed, a Kind can be switched over
// exhaustively.
func ParseKind(name string) (Kind, error) {
	for i, n := range Names {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown filter %q (expected one of fft, gradient, median, smooth)",
		ErrConfiguration, name)
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(Names) {
		return Names[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}
