package tensor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxRank is the highest tensor rank the grid renderer accepts
const MaxRank = 2

var (
	// ErrShapeMismatch reports values that do not fill the declared shape
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnsupportedRank reports a tensor whose rank the renderer cannot draw
	ErrUnsupportedRank = errors.New("unsupported rank")
)

// Tensor is a named multi-dimensional numeric array with an explicit shape
type Tensor struct {
	Name   string `json:"-"`
	Shape  []int  `json:"shape"`
	Values Values `json:"values"`
}

// New creates a tensor from row-major data
func New(name string, shape []int, data []float64) Tensor {
	return Tensor{
		Name:   name,
		Shape:  append([]int(nil), shape...),
		Values: Values{Data: data},
	}
}

// Rank returns the number of dimensions in the declared shape
func (t Tensor) Rank() int {
	return len(t.Shape)
}

// Size returns the element count implied by the declared shape, or -1 when
// a dimension is negative or the product overflows int
func (t Tensor) Size() int {
	if len(t.Shape) == 0 {
		return 0
	}
	size := 1
	for _, d := range t.Shape {
		if d < 0 || (d > 0 && size > math.MaxInt/d) {
			return -1
		}
		size *= d
	}
	return size
}

// Rows returns the number of grid rows; rank-1 tensors occupy a single row
func (t Tensor) Rows() int {
	if len(t.Shape) == 2 {
		return t.Shape[0]
	}
	return 1
}

// Cols returns the number of grid columns
func (t Tensor) Cols() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[len(t.Shape)-1]
}

// At returns the element at row r, column c. The tensor must be valid.
func (t Tensor) At(r, c int) float64 {
	return t.Values.Data[r*t.Cols()+c]
}

// Label returns the human readable shape, e.g. "32 x 64"
func (t Tensor) Label() string {
	return ShapeLabel(t.Shape)
}

// Validate checks rank and element count against the declared shape
func (t Tensor) Validate() error {
	rank := t.Rank()
	if rank == 0 || rank > MaxRank {
		return fmt.Errorf("%w: tensor %q has rank %d, supported ranks are 1..%d",
			ErrUnsupportedRank, t.Name, rank, MaxRank)
	}

	for i, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("%w: tensor %q has non-positive dimension %d at axis %d",
				ErrShapeMismatch, t.Name, d, i)
		}
	}

	if t.Values.Ragged {
		return fmt.Errorf("%w: tensor %q has ragged nested values", ErrShapeMismatch, t.Name)
	}

	// The running product never exceeds n, so it cannot overflow
	n := t.Values.Len()
	size := 1
	for _, d := range t.Shape {
		if size > n/d {
			return fmt.Errorf("%w: tensor %q declares %s but holds only %d values",
				ErrShapeMismatch, t.Name, t.Label(), n)
		}
		size *= d
	}
	if size != n {
		return fmt.Errorf("%w: tensor %q declares %s (%d elements) but holds %d values",
			ErrShapeMismatch, t.Name, t.Label(), size, n)
	}

	// Nested input must match the declared layout, not just the count
	if len(t.Values.Dims) > 1 && !equalDims(t.Values.Dims, t.Shape) {
		return fmt.Errorf("%w: tensor %q declares %s but values are nested as %s",
			ErrShapeMismatch, t.Name, t.Label(), ShapeLabel(t.Values.Dims))
	}

	return nil
}

// ShapeLabel joins dimensions with " x "
func ShapeLabel(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, " x ")
}

func equalDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
