package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const validResponse = `{
	"predictions": [
		{"class": "dog", "confidence": 0.91},
		{"class": "rooster", "confidence": 0.05},
		{"class": "crow", "confidence": 0.02},
		{"class": "rain", "confidence": 0.01}
	],
	"visualization": {
		"conv1": {"shape": [2, 2], "values": [[0.1, -0.1], [0.5, -0.5]]},
		"conv1.bn": {"shape": [2, 2], "values": [[0.2, -0.2], [0.4, -0.4]]}
	},
	"input_spectrogram": {"shape": [2, 3], "values": [[1, 2, 3], [4, 5, 6]]},
	"waveform": {"values": [0.0, 0.5, -0.5, 0.25], "duration": 5.0, "sample_rate": 44100}
}`

func TestAudioRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"nil", nil},
		{"single byte", []byte{0x00}},
		{"wav header", []byte("RIFF\x24\x00\x00\x00WAVEfmt ")},
		{"all byte values", allBytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeAudio(tt.data)
			decoded, err := DecodeAudio(encoded)
			if err != nil {
				t.Fatalf("DecodeAudio failed: %v", err)
			}
			if !bytes.Equal(decoded, tt.data) {
				t.Errorf("Round trip mismatch: got %v, expected %v", decoded, tt.data)
			}
		})
	}
}

func TestEncodeAudioEmpty(t *testing.T) {
	if got := EncodeAudio(nil); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
}

func TestDecodeAudioInvalid(t *testing.T) {
	if _, err := DecodeAudio("not base64!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}

func TestDecodeResponse(t *testing.T) {
	resp, err := DecodeResponse([]byte(validResponse))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}

	if len(resp.Predictions) != 4 {
		t.Errorf("Expected 4 predictions, got %d", len(resp.Predictions))
	}
	if resp.Predictions[0].Class != "dog" {
		t.Errorf("Expected first class dog, got %s", resp.Predictions[0].Class)
	}
	if resp.Visualization.Len() != 2 {
		t.Errorf("Expected 2 layers, got %d", resp.Visualization.Len())
	}
	if resp.InputSpectrogram.Name != SpectrogramName {
		t.Errorf("Expected spectrogram name %q, got %q", SpectrogramName, resp.InputSpectrogram.Name)
	}
	if resp.Waveform.SampleRate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", resp.Waveform.SampleRate)
	}

	wave := resp.Waveform.Tensor()
	if wave.Rank() != 1 || wave.Size() != 4 {
		t.Errorf("Expected rank-1 waveform of 4 samples, got shape %v", wave.Shape)
	}
}

func TestDecodeResponseDoesNotCheckShapes(t *testing.T) {
	body := strings.Replace(validResponse, `"shape": [2, 3]`, `"shape": [9, 9]`, 1)
	if _, err := DecodeResponse([]byte(body)); err != nil {
		t.Errorf("Shape consistency is a render concern, got error: %v", err)
	}
}

func TestDecodeResponseMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>502 Bad Gateway</html>`},
		{"empty object", `{}`},
		{"missing predictions", `{"visualization": {}, "input_spectrogram": {"shape":[1],"values":[0]}, "waveform": {"values": []}}`},
		{"missing visualization", `{"predictions": [], "input_spectrogram": {"shape":[1],"values":[0]}, "waveform": {"values": []}}`},
		{"missing spectrogram", `{"predictions": [], "visualization": {}, "waveform": {"values": []}}`},
		{"missing waveform", `{"predictions": [], "visualization": {}, "input_spectrogram": {"shape":[1],"values":[0]}}`},
		{"null visualization", `{"predictions": [], "visualization": null, "input_spectrogram": {"shape":[1],"values":[0]}, "waveform": {"values": []}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResponse([]byte(tt.body))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("Expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestDecodeResponsePredictionWithoutClass(t *testing.T) {
	body := `{"predictions": [{"confidence": 0.5}], "visualization": {}, "input_spectrogram": {"shape":[1],"values":[0]}, "waveform": {"values": []}}`

	resp, err := DecodeResponse([]byte(body))
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if len(resp.Predictions) != 1 || resp.Predictions[0].Class != "" {
		t.Errorf("Expected one prediction with an empty class, got %+v", resp.Predictions)
	}
}

func allBytes() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
