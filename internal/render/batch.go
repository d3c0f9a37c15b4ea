package render

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/skypro1111/audio-cnn-visualizer/internal/scale"
	"github.com/skypro1111/audio-cnn-visualizer/internal/tensor"
)

// Failure kinds
const (
	KindShapeMismatch   = "shape_mismatch"
	KindUnsupportedRank = "unsupported_rank"
	KindCancelled       = "cancelled"
	KindUnknown         = "render_error"
)

// ErrRenderPanic reports a tensor whose rendering panicked
var ErrRenderPanic = errors.New("render panicked")

// renderTensor is replaced in tests
var renderTensor = Render

// Failure records a tensor that could not be rendered
type Failure struct {
	Index int
	Name  string
	Kind  string
	Err   error
}

// Batch is the outcome of rendering many tensors with one scale
type Batch struct {
	Grids    []*Grid
	Failures []Failure

	byName  map[string]*Grid
	byIndex []*Grid
}

// Grid returns the rendered grid for name, or nil if it failed. When names
// repeat the last one wins; use At for positional lookup.
func (b *Batch) Grid(name string) *Grid {
	return b.byName[name]
}

// At returns the grid rendered from the i-th input tensor, or nil if it failed
func (b *Batch) At(i int) *Grid {
	if i < 0 || i >= len(b.byIndex) {
		return nil
	}
	return b.byIndex[i]
}

// KindOf classifies a render error
func KindOf(err error) string {
	switch {
	case errors.Is(err, tensor.ErrShapeMismatch):
		return KindShapeMismatch
	case errors.Is(err, tensor.ErrUnsupportedRank):
		return KindUnsupportedRank
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindUnknown
	}
}

// renderRecovered turns a panic in one tensor into an error so the rest of
// the batch still renders
func renderRecovered(t tensor.Tensor, s scale.Scale, opts Options) (grid *Grid, err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		grid, err = renderTensor(t, s, opts)
	})
	if rec := catcher.Recovered(); rec != nil {
		return nil, fmt.Errorf("%w: tensor %q: %v", ErrRenderPanic, t.Name, rec.Value)
	}
	return grid, err
}

type result struct {
	index int
	grid  *Grid
	err   error
}

// RenderAll renders every tensor with the same scale on at most workers
// goroutines. Successful grids keep input order; failures never stop the batch.
func RenderAll(ctx context.Context, tensors []tensor.Tensor, s scale.Scale, opts Options, workers int) *Batch {
	if workers < 1 {
		workers = 1
	}

	p := pool.NewWithResults[result]().WithMaxGoroutines(workers)
	for i, t := range tensors {
		p.Go(func() result {
			if err := ctx.Err(); err != nil {
				return result{index: i, err: err}
			}
			grid, err := renderRecovered(t, s, opts)
			return result{index: i, grid: grid, err: err}
		})
	}
	results := p.Wait()

	sort.Slice(results, func(a, b int) bool {
		return results[a].index < results[b].index
	})

	batch := &Batch{
		byName:  make(map[string]*Grid, len(tensors)),
		byIndex: make([]*Grid, len(tensors)),
	}
	for _, res := range results {
		if res.err != nil {
			batch.Failures = append(batch.Failures, Failure{
				Index: res.index,
				Name:  tensors[res.index].Name,
				Kind:  KindOf(res.err),
				Err:   res.err,
			})
			continue
		}
		batch.Grids = append(batch.Grids, res.grid)
		batch.byName[res.grid.Name] = res.grid
		batch.byIndex[res.index] = res.grid
	}
	return batch
}
