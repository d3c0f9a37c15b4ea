package render

import (
	"math"

	"github.com/skypro1111/audio-cnn-visualizer/internal/scale"
	"github.com/skypro1111/audio-cnn-visualizer/internal/tensor"
)

// Options bounds the size of rendered grids. Zero means unbounded.
type Options struct {
	MaxRows int
	MaxCols int
}

// Grid is a tensor rendered as rows of "#rrggbb" cells
type Grid struct {
	Name  string     `json:"name"`
	Label string     `json:"label"`
	Shape []int      `json:"shape"`
	Rows  int        `json:"rows"`
	Cols  int        `json:"cols"`
	Cells [][]string `json:"cells"`
}

// Render validates t and colours every element through s. Rank-1 tensors
// become a single row. Grids exceeding opts are block-averaged; the label
// always reports the declared shape.
func Render(t tensor.Tensor, s scale.Scale, opts Options) (*Grid, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	rows, cols := t.Rows(), t.Cols()
	outRows := bound(rows, opts.MaxRows)
	outCols := bound(cols, opts.MaxCols)

	cells := make([][]string, outRows)
	for r := 0; r < outRows; r++ {
		r0, r1 := span(r, outRows, rows)
		cells[r] = make([]string, outCols)
		for c := 0; c < outCols; c++ {
			c0, c1 := span(c, outCols, cols)
			cells[r][c] = s.Hex(blockMean(t, r0, r1, c0, c1))
		}
	}

	return &Grid{
		Name:  t.Name,
		Label: t.Label(),
		Shape: append([]int(nil), t.Shape...),
		Rows:  outRows,
		Cols:  outCols,
		Cells: cells,
	}, nil
}

func bound(n, max int) int {
	if max > 0 && n > max {
		return max
	}
	return n
}

// span returns the input range [lo, hi) covered by output index i
func span(i, out, in int) (int, int) {
	return i * in / out, (i + 1) * in / out
}

// blockMean averages the non-NaN values of a block; an all-NaN block stays NaN
func blockMean(t tensor.Tensor, r0, r1, c0, c1 int) float64 {
	if r1-r0 == 1 && c1-c0 == 1 {
		return t.At(r0, c0)
	}

	var sum float64
	var n int
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			v := t.At(r, c)
			if math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
