package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/skypro1111/audio-cnn-visualizer/internal/tensor"
)

// Names given to the non-layer tensors of a response
const (
	SpectrogramName = "input_spectrogram"
	WaveformName    = "waveform"
)

// ErrMalformedResponse reports an inference response missing required fields
var ErrMalformedResponse = errors.New("malformed inference response")

var validate = validator.New()

// Request is the JSON body posted to the inference service
type Request struct {
	AudioData string `json:"audio_data"`
}

// Prediction is one class score from the classifier
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Waveform is the raw signal summary returned alongside the predictions
type Waveform struct {
	Values     tensor.Values `json:"values"`
	Duration   float64       `json:"duration"`
	SampleRate int           `json:"sample_rate"`
}

// Tensor exposes the waveform samples as a rank-1 tensor
func (w *Waveform) Tensor() tensor.Tensor {
	return tensor.Tensor{
		Name:   WaveformName,
		Shape:  []int{w.Values.Len()},
		Values: tensor.Values{Data: w.Values.Data},
	}
}

// Response is the decoded inference service reply. Predictions are
// assumed sorted by descending confidence.
type Response struct {
	Predictions      []Prediction   `json:"predictions" validate:"required"`
	Visualization    *tensor.Bundle `json:"visualization" validate:"required"`
	InputSpectrogram *tensor.Tensor `json:"input_spectrogram" validate:"required"`
	Waveform         *Waveform      `json:"waveform" validate:"required"`
}

// EncodeAudio returns the base64 transport form of raw audio bytes.
// Empty input encodes to the empty string.
func EncodeAudio(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeAudio reverses EncodeAudio
func DecodeAudio(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}
	return raw, nil
}

// NewRequest builds the inference request body for raw audio bytes
func NewRequest(raw []byte) Request {
	return Request{AudioData: EncodeAudio(raw)}
}

// DecodeResponse parses an inference response body. Only the presence of the
// top-level fields is checked; tensor shapes are validated at render time.
func DecodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if err := validate.Struct(&resp); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, describe(err))
	}

	resp.InputSpectrogram.Name = SpectrogramName
	return &resp, nil
}

// describe turns validation errors into a short list of offending fields
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}
