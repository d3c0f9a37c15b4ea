package main

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/skypro1111/audio-cnn-visualizer/internal/audio"
	"github.com/skypro1111/audio-cnn-visualizer/internal/codec"
	"github.com/skypro1111/audio-cnn-visualizer/internal/labels"
	"github.com/skypro1111/audio-cnn-visualizer/internal/tensor"
)

const (
	melBins        = 64
	frameSize      = 1024
	maxFrames      = 256
	waveformPoints = 8000
	numPredictions = 5
)

// matrix is a dense row-major feature map
type matrix struct {
	rows, cols int
	data       []float64
}

func newMatrix(rows, cols int) *matrix {
	return &matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

func (m *matrix) at(r, c int) float64     { return m.data[r*m.cols+c] }
func (m *matrix) set(r, c int, v float64) { m.data[r*m.cols+c] = v }

// tensor converts m, keeping the row nesting for the JSON encoding
func (m *matrix) tensor(name string) tensor.Tensor {
	t := tensor.New(name, []int{m.rows, m.cols}, m.data)
	t.Values.Dims = []int{m.rows, m.cols}
	return t
}

// apply returns a new matrix with fn applied to every element
func (m *matrix) apply(fn func(float64) float64) *matrix {
	out := newMatrix(m.rows, m.cols)
	for i, v := range m.data {
		out.data[i] = fn(v)
	}
	return out
}

// pool halves both dimensions by averaging 2x2 blocks
func (m *matrix) pool() *matrix {
	rows := (m.rows + 1) / 2
	cols := (m.cols + 1) / 2
	out := newMatrix(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var sum float64
			var n int
			for dr := 0; dr < 2; dr++ {
				for dc := 0; dc < 2; dc++ {
					rr, cc := 2*r+dr, 2*c+dc
					if rr < m.rows && cc < m.cols {
						sum += m.at(rr, cc)
						n++
					}
				}
			}
			out.set(r, c, sum/float64(n))
		}
	}
	return out
}

// normalize scales to zero mean and the given spread
func (m *matrix) normalize(spread float64) *matrix {
	var mean float64
	for _, v := range m.data {
		mean += v
	}
	mean /= float64(len(m.data))

	var variance float64
	for _, v := range m.data {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(m.data)))
	if std == 0 {
		std = 1
	}

	return m.apply(func(v float64) float64 { return (v - mean) / std * spread })
}

func relu(v float64) float64 { return math.Max(0, v) }

// spectrogram builds a dB-like energy map: rows are bands, columns are frames
func spectrogram(samples []float64) *matrix {
	frames := 1
	hop := frameSize / 2
	if len(samples) > frameSize {
		frames = (len(samples)-frameSize)/hop + 1
	}
	if frames > maxFrames {
		hop = (len(samples) - frameSize) / (maxFrames - 1)
		frames = maxFrames
	}

	m := newMatrix(melBins, frames)
	band := frameSize / melBins

	for f := 0; f < frames; f++ {
		start := f * hop
		for b := 0; b < melBins; b++ {
			var energy float64
			var n int
			for i := start + b*band; i < start+(b+1)*band && i < len(samples); i++ {
				energy += samples[i] * samples[i]
				n++
			}
			rms := 0.0
			if n > 0 {
				rms = math.Sqrt(energy / float64(n))
			}
			db := 20 * math.Log10(rms+1e-6)
			m.set(b, f, math.Max(-1, math.Min(1, (db+40)/40)))
		}
	}
	return m
}

// waveform downsamples samples to at most waveformPoints values
func waveform(samples []float64, info *audio.Info) *codec.Waveform {
	step := 1
	if len(samples) > waveformPoints {
		step = len(samples) / waveformPoints
	}

	values := make([]float64, 0, len(samples)/step+1)
	for i := 0; i < len(samples); i += step {
		values = append(values, samples[i])
	}

	return &codec.Waveform{
		Values:     tensor.Values{Data: values},
		Duration:   info.Duration,
		SampleRate: int(info.SampleRate),
	}
}

// predictions picks classes from a hash of the audio so the same file always
// gets the same answer
func predictions(samples []float64) []codec.Prediction {
	h := fnv.New64a()
	buf := make([]byte, 8)
	for _, s := range samples {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(s))
		h.Write(buf)
	}
	seed := h.Sum64()

	classes := labels.Classes()
	weights := []float64{8, 3, 1.5, 0.8, 0.4}
	var total float64
	for _, w := range weights {
		total += w
	}

	used := make(map[int]bool, numPredictions)
	out := make([]codec.Prediction, 0, numPredictions)
	for k := 0; k < numPredictions; k++ {
		idx := int((seed + uint64(k)*7919) % uint64(len(classes)))
		for used[idx] {
			idx = (idx + 1) % len(classes)
		}
		used[idx] = true

		out = append(out, codec.Prediction{
			Class:      classes[idx],
			Confidence: weights[k] / total,
		})
	}
	return out
}

// infer produces a complete response for decoded audio
func infer(samples []float64, info *audio.Info) *codec.Response {
	mel := spectrogram(samples)
	specTensor := mel.tensor(codec.SpectrogramName)

	viz := tensor.NewBundle()

	conv1 := mel.pool().apply(func(v float64) float64 { return math.Tanh(1.5 * v) })
	bn := conv1.normalize(0.5)
	viz.Set("conv1", conv1.tensor("conv1"))
	viz.Set("conv1.bn", bn.tensor("conv1.bn"))
	viz.Set("conv1.relu", bn.apply(relu).tensor("conv1.relu"))

	prev := bn.apply(relu)
	for i, name := range []string{"layer1", "layer2", "layer3", "layer4"} {
		gain := 1.0 + float64(i)*0.5
		out := prev.pool().normalize(0.6)
		conv := out.apply(func(v float64) float64 { return math.Tanh(gain*v - 0.1) })

		viz.Set(name, out.tensor(name))
		viz.Set(name+".conv1", conv.tensor(name+".conv1"))
		viz.Set(name+".relu", conv.apply(relu).tensor(name+".relu"))

		prev = conv.apply(relu)
	}

	return &codec.Response{
		Predictions:      predictions(samples),
		Visualization:    viz,
		InputSpectrogram: &specTensor,
		Waveform:         waveform(samples, info),
	}
}
