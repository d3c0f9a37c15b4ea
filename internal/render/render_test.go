package render

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/audio-cnn-visualizer/internal/scale"
	"github.com/skypro1111/audio-cnn-visualizer/internal/tensor"
)

func TestRender2D(t *testing.T) {
	s := scale.Default()
	tn := tensor.New("conv1", []int{2, 3}, []float64{-1, 0, 1, -5, 5, math.NaN()})

	grid, err := Render(tn, s, Options{})
	require.NoError(t, err)

	assert.Equal(t, "conv1", grid.Name)
	assert.Equal(t, "2 x 3", grid.Label)
	assert.Equal(t, 2, grid.Rows)
	assert.Equal(t, 3, grid.Cols)
	assert.Equal(t, [][]string{
		{"#ff8033", "#ffffff", "#3380ff"},
		{"#ff8033", "#3380ff", "#ffffff"},
	}, grid.Cells)
}

func TestRender1D(t *testing.T) {
	grid, err := Render(tensor.New("waveform", []int{4}, []float64{-1, -0.5, 0.5, 1}), scale.Default(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, grid.Rows)
	assert.Equal(t, 4, grid.Cols)
	assert.Equal(t, "4", grid.Label)
	assert.Len(t, grid.Cells[0], 4)
}

func TestRenderShapeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		data  []float64
	}{
		{"too few values", []int{2, 3}, []float64{1, 2, 3, 4, 5}},
		{"product wraps to zero", []int{4294967296, 4294967296}, []float64{}},
		{"product wraps to value count", []int{3, 6148914691236517206}, []float64{1, 2}},
		{"huge shape unbounded", []int{1 << 20, 1 << 20}, []float64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, err := Render(tensor.New("bad", tt.shape, tt.data), scale.Default(), Options{})
			assert.Nil(t, grid)
			assert.True(t, errors.Is(err, tensor.ErrShapeMismatch), "got %v", err)
		})
	}
}

func TestRenderUnsupportedRank(t *testing.T) {
	_, err := Render(tensor.New("cube", []int{2, 2, 2}, make([]float64, 8)), scale.Default(), Options{})
	assert.True(t, errors.Is(err, tensor.ErrUnsupportedRank))
}

func TestRenderBounded(t *testing.T) {
	data := make([]float64, 4*8)
	for i := range data {
		if i%8 >= 4 {
			data[i] = 1
		} else {
			data[i] = -1
		}
	}
	tn := tensor.New("wide", []int{4, 8}, data)

	grid, err := Render(tn, scale.Default(), Options{MaxRows: 2, MaxCols: 2})
	require.NoError(t, err)

	assert.Equal(t, "4 x 8", grid.Label)
	assert.Equal(t, []int{4, 8}, grid.Shape)
	assert.Equal(t, 2, grid.Rows)
	assert.Equal(t, 2, grid.Cols)
	assert.Equal(t, [][]string{
		{"#ff8033", "#3380ff"},
		{"#ff8033", "#3380ff"},
	}, grid.Cells)
}

func TestRenderSmallerThanBoundIsUntouched(t *testing.T) {
	grid, err := Render(tensor.New("small", []int{2, 2}, []float64{0, 0, 0, 0}), scale.Default(), Options{MaxRows: 64, MaxCols: 64})
	require.NoError(t, err)
	assert.Equal(t, 2, grid.Rows)
	assert.Equal(t, 2, grid.Cols)
}

func TestRenderAllPartialDegradation(t *testing.T) {
	tensors := []tensor.Tensor{
		tensor.New("conv1", []int{2, 2}, []float64{0.1, 0.2, 0.3, 0.4}),
		tensor.New("conv2", []int{2, 3}, []float64{1, 2, 3, 4, 5}),
		tensor.New("conv3", []int{3}, []float64{-1, 0, 1}),
		tensor.New("fc", []int{1, 2}, []float64{0.5, -0.5}),
	}

	batch := RenderAll(context.Background(), tensors, scale.Default(), Options{}, 3)

	require.Len(t, batch.Grids, 3)
	assert.Equal(t, "conv1", batch.Grids[0].Name)
	assert.Equal(t, "conv3", batch.Grids[1].Name)
	assert.Equal(t, "fc", batch.Grids[2].Name)

	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "conv2", batch.Failures[0].Name)
	assert.Equal(t, KindShapeMismatch, batch.Failures[0].Kind)

	assert.Equal(t, 1, batch.Failures[0].Index)

	assert.Nil(t, batch.Grid("conv2"))
	assert.NotNil(t, batch.Grid("fc"))
	assert.Nil(t, batch.At(1))
	assert.Equal(t, "conv3", batch.At(2).Name)
	assert.Nil(t, batch.At(4))
}

func TestRenderAllSharesScale(t *testing.T) {
	// the same value must have the same colour in every grid
	tensors := []tensor.Tensor{
		tensor.New("a", []int{1, 3}, []float64{0.25, -0.6, 0.9}),
		tensor.New("b", []int{5}, []float64{0.9, 0.9, 0.25, 7, -0.6}),
	}

	batch := RenderAll(context.Background(), tensors, scale.Default(), Options{}, 2)
	require.Len(t, batch.Grids, 2)

	a, b := batch.Grid("a"), batch.Grid("b")
	assert.Equal(t, a.Cells[0][0], b.Cells[0][2])
	assert.Equal(t, a.Cells[0][1], b.Cells[0][4])
	assert.Equal(t, a.Cells[0][2], b.Cells[0][0])
}

func TestRenderAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := RenderAll(ctx, []tensor.Tensor{tensor.New("a", []int{1}, []float64{0})}, scale.Default(), Options{}, 1)
	assert.Empty(t, batch.Grids)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, KindCancelled, batch.Failures[0].Kind)
}

func TestRenderAllRecoversPanics(t *testing.T) {
	renderTensor = func(tn tensor.Tensor, s scale.Scale, opts Options) (*Grid, error) {
		if tn.Name == "boom" {
			panic("index out of range")
		}
		return Render(tn, s, opts)
	}
	t.Cleanup(func() { renderTensor = Render })

	tensors := []tensor.Tensor{
		tensor.New("conv1", []int{2}, []float64{0.1, 0.2}),
		tensor.New("boom", []int{2}, []float64{0.3, 0.4}),
		tensor.New("fc", []int{1}, []float64{0.5}),
	}

	batch := RenderAll(context.Background(), tensors, scale.Default(), Options{}, 2)

	require.Len(t, batch.Grids, 2)
	assert.Equal(t, "conv1", batch.At(0).Name)
	assert.Nil(t, batch.At(1))
	assert.Equal(t, "fc", batch.At(2).Name)

	require.Len(t, batch.Failures, 1)
	assert.Equal(t, 1, batch.Failures[0].Index)
	assert.Equal(t, KindUnknown, batch.Failures[0].Kind)
	assert.True(t, errors.Is(batch.Failures[0].Err, ErrRenderPanic))
}
