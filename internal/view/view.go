package view

import (
	"fmt"

	"github.com/skypro1111/audio-cnn-visualizer/internal/codec"
	"github.com/skypro1111/audio-cnn-visualizer/internal/labels"
	"github.com/skypro1111/audio-cnn-visualizer/internal/layers"
	"github.com/skypro1111/audio-cnn-visualizer/internal/render"
	"github.com/skypro1111/audio-cnn-visualizer/internal/scale"
	"github.com/skypro1111/audio-cnn-visualizer/internal/tensor"
)

// DefaultTopPredictions is the number of predictions shown when unset
const DefaultTopPredictions = 3

// Diagnostic kinds added on top of the render failure kinds
const (
	KindDroppedLayer     = "dropped_layer"
	KindOrphanedInternal = "orphaned_internal"
)

// Prediction is one class score ready for display
type Prediction struct {
	Class       string  `json:"class"`
	DisplayName string  `json:"display_name"`
	Glyph       string  `json:"glyph"`
	Confidence  float64 `json:"confidence"`
	Percent     string  `json:"percent"`
	Primary     bool    `json:"primary"`
}

// Card is a titled grid. Grid is nil when the tensor could not be rendered.
type Card struct {
	Title string       `json:"title"`
	Grid  *render.Grid `json:"grid"`
}

// InternalCard is one sub-stage of a layer
type InternalCard struct {
	Name      string       `json:"name"`
	ShortName string       `json:"short_name"`
	Grid      *render.Grid `json:"grid"`
}

// LayerCard is a main layer with its internals sorted by name
type LayerCard struct {
	Name      string         `json:"name"`
	Grid      *render.Grid   `json:"grid"`
	Internals []InternalCard `json:"internals"`
}

// Diagnostic explains why part of a response is missing from the display
type Diagnostic struct {
	Layer   string `json:"layer"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// View is everything needed to display one response
type View struct {
	RequestID   string       `json:"request_id,omitempty"`
	FileName    string       `json:"file_name,omitempty"`
	Predictions []Prediction `json:"predictions"`
	Spectrogram Card         `json:"spectrogram"`
	Waveform    Card         `json:"waveform"`
	Layers      []LayerCard  `json:"layers"`
	Scale       scale.Legend `json:"scale"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Options controls view composition
type Options struct {
	TopPredictions int
}

type internalSlot struct {
	entry layers.Entry
	index int
}

type layerSlot struct {
	name      string
	index     int
	internals []internalSlot
}

// Layout maps a response onto the flat list of tensors to render
type Layout struct {
	tensors []tensor.Tensor
	layers  []layerSlot
	dropped []string
	orphans []orphan
}

type orphan struct {
	parent string
	count  int
}

const (
	spectrogramIndex = 0
	waveformIndex    = 1
)

// NewLayout plans the render order: spectrogram, waveform, then each main
// layer followed by its internals. Orphaned internal buckets are not rendered.
func NewLayout(resp *codec.Response, group *layers.Group) *Layout {
	l := &Layout{
		tensors: make([]tensor.Tensor, 0, 2+group.Len()),
		dropped: group.Dropped,
	}

	l.tensors = append(l.tensors, *resp.InputSpectrogram, resp.Waveform.Tensor())

	for _, main := range group.Main {
		slot := layerSlot{name: main.Name, index: l.add(main.Tensor)}
		for _, internal := range group.SortedInternals(main.Name) {
			slot.internals = append(slot.internals, internalSlot{
				entry: internal,
				index: l.add(internal.Tensor),
			})
		}
		l.layers = append(l.layers, slot)
	}

	for _, parent := range group.Orphans() {
		l.orphans = append(l.orphans, orphan{parent: parent, count: len(group.Internals[parent])})
	}

	return l
}

func (l *Layout) add(t tensor.Tensor) int {
	l.tensors = append(l.tensors, t)
	return len(l.tensors) - 1
}

// Tensors returns the tensors to render, in layout order
func (l *Layout) Tensors() []tensor.Tensor {
	return l.tensors
}

// Compose builds the View from a batch rendered from l.Tensors()
func (l *Layout) Compose(resp *codec.Response, batch *render.Batch, legend scale.Legend, opts Options) *View {
	v := &View{
		Predictions: TopPredictions(resp.Predictions, opts.TopPredictions),
		Spectrogram: Card{
			Title: tensor.ShapeLabel(resp.InputSpectrogram.Shape),
			Grid:  batch.At(spectrogramIndex),
		},
		Waveform: Card{
			Title: WaveformTitle(resp.Waveform),
			Grid:  batch.At(waveformIndex),
		},
		Layers:      make([]LayerCard, 0, len(l.layers)),
		Scale:       legend,
		Diagnostics: []Diagnostic{},
	}

	for _, slot := range l.layers {
		card := LayerCard{
			Name:      slot.name,
			Grid:      batch.At(slot.index),
			Internals: make([]InternalCard, 0, len(slot.internals)),
		}
		for _, in := range slot.internals {
			card.Internals = append(card.Internals, InternalCard{
				Name:      in.entry.Name,
				ShortName: in.entry.ShortName(),
				Grid:      batch.At(in.index),
			})
		}
		v.Layers = append(v.Layers, card)
	}

	for _, f := range batch.Failures {
		v.Diagnostics = append(v.Diagnostics, Diagnostic{
			Layer:   f.Name,
			Kind:    f.Kind,
			Message: f.Err.Error(),
		})
	}

	for _, name := range l.dropped {
		v.Diagnostics = append(v.Diagnostics, Diagnostic{
			Layer:   name,
			Kind:    KindDroppedLayer,
			Message: "layer name has an empty parent prefix",
		})
	}

	for _, o := range l.orphans {
		v.Diagnostics = append(v.Diagnostics, Diagnostic{
			Layer:   o.parent,
			Kind:    KindOrphanedInternal,
			Message: fmt.Sprintf("%d internal layer(s) reference missing main layer %q", o.count, o.parent),
		})
	}

	return v
}

// TopPredictions keeps the first n predictions. n <= 0 means DefaultTopPredictions.
func TopPredictions(preds []codec.Prediction, n int) []Prediction {
	if n <= 0 {
		n = DefaultTopPredictions
	}
	if n > len(preds) {
		n = len(preds)
	}

	out := make([]Prediction, 0, n)
	for i, p := range preds[:n] {
		out = append(out, Prediction{
			Class:       p.Class,
			DisplayName: labels.DisplayName(p.Class),
			Glyph:       labels.Annotate(p.Class),
			Confidence:  p.Confidence,
			Percent:     labels.FormatConfidence(p.Confidence),
			Primary:     i == 0,
		})
	}
	return out
}

// WaveformTitle formats the waveform card title, e.g. "5.00s * 44100Hz"
func WaveformTitle(w *codec.Waveform) string {
	return fmt.Sprintf("%.2fs * %dHz", w.Duration, w.SampleRate)
}
