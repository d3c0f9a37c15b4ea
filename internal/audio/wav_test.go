package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func sine(n, sampleRate int, frequency float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = int16(16383.0 * math.Sin(2*math.Pi*frequency*t))
	}
	return samples
}

func TestEncodeWAVInspect(t *testing.T) {
	// 0.1 seconds of a 440Hz tone at 8kHz
	sampleRate := 8000
	samples := sine(800, sampleRate, 440)

	wavData, err := EncodeWAV(samples, sampleRate, 1)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	// WAV header should be 44 bytes
	expectedSize := 44 + len(samples)*2
	if len(wavData) != expectedSize {
		t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
	}

	info, err := Inspect(wavData)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if info.SampleRate != uint32(sampleRate) {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, info.SampleRate)
	}

	if info.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", info.Channels)
	}

	if info.BitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", info.BitsPerSample)
	}

	if info.NumFrames != 800 {
		t.Errorf("Expected 800 frames, got %d", info.NumFrames)
	}

	if math.Abs(info.Duration-0.1) > 0.001 {
		t.Errorf("Expected duration 0.100, got %.3f", info.Duration)
	}
}

func TestDecodeMono(t *testing.T) {
	wavData, err := EncodeWAV([]int16{0, 16384, -16384, 32767, -32768}, 8000, 1)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	samples, info, err := Decode(wavData)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if info.SampleRate != 8000 {
		t.Errorf("Expected sample rate 8000, got %d", info.SampleRate)
	}

	want := []float64{0, 0.5, -0.5, 32767.0 / 32768, -1}
	if len(samples) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(samples))
	}

	for i := range want {
		if math.Abs(samples[i]-want[i]) > 1e-9 {
			t.Errorf("Sample %d: expected %f, got %f", i, want[i], samples[i])
		}
	}
}

func TestDecodeStereoMixdown(t *testing.T) {
	// Interleaved L/R frames
	wavData, err := EncodeWAV([]int16{16384, 0, -16384, -16384}, 22050, 2)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	samples, info, err := Decode(wavData)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if info.Channels != 2 || info.NumFrames != 2 {
		t.Fatalf("Expected 2 channels and 2 frames, got %d and %d", info.Channels, info.NumFrames)
	}

	if samples[0] != 0.25 || samples[1] != -0.5 {
		t.Errorf("Unexpected mixdown: %v", samples)
	}
}

func TestInspectSkipsUnknownChunks(t *testing.T) {
	wavData, err := EncodeWAV([]int16{1, 2, 3, 4}, 16000, 1)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	// Insert an odd-sized LIST chunk (plus pad byte) between fmt and data
	list := []byte{'L', 'I', 'S', 'T', 0, 0, 0, 0, 'a', 'b', 'c', 0}
	binary.LittleEndian.PutUint32(list[4:8], 3)

	withList := append([]byte{}, wavData[:36]...)
	withList = append(withList, list...)
	withList = append(withList, wavData[36:]...)

	info, err := Inspect(withList)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if info.NumFrames != 4 {
		t.Errorf("Expected 4 frames, got %d", info.NumFrames)
	}
}

func TestInspectTruncatedData(t *testing.T) {
	wavData, err := EncodeWAV([]int16{1, 2, 3, 4}, 16000, 1)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	info, err := Inspect(wavData[:len(wavData)-4])
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if info.NumFrames != 2 {
		t.Errorf("Expected 2 frames, got %d", info.NumFrames)
	}
}

func TestEncodeWAVInvalid(t *testing.T) {
	tests := []struct {
		name       string
		samples    []int16
		sampleRate int
		channels   int
	}{
		{"empty", []int16{}, 8000, 1},
		{"zero rate", []int16{1, 2}, 0, 1},
		{"negative rate", []int16{1, 2}, -1000, 1},
		{"no channels", []int16{1, 2}, 8000, 0},
		{"partial frame", []int16{1, 2, 3}, 8000, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeWAV(tt.samples, tt.sampleRate, tt.channels); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestInspectInvalid(t *testing.T) {
	fake := make([]byte, 50)
	copy(fake[0:4], "FAKE")

	notWave := make([]byte, 50)
	copy(notWave[0:4], "RIFF")
	copy(notWave[8:12], "AVI ")

	noData := make([]byte, 36)
	copy(noData[0:4], "RIFF")
	copy(noData[8:12], "WAVE")
	copy(noData[12:16], "fmt ")
	binary.LittleEndian.PutUint32(noData[16:20], 16)
	binary.LittleEndian.PutUint16(noData[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(noData[22:24], 1)
	binary.LittleEndian.PutUint32(noData[24:28], 8000)
	binary.LittleEndian.PutUint16(noData[34:36], 16)

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{1, 2, 3}},
		{"missing RIFF", fake},
		{"missing WAVE", notWave},
		{"missing data chunk", noData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Inspect(tt.data); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
