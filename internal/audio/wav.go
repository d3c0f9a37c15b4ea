package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// WAV format tags
const (
	FormatPCM        = 1
	FormatIEEEFloat  = 3
	FormatExtensible = 0xFFFE
)

// Header is the canonical 44-byte header written by EncodeWAV
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// fmtChunk is the leading 16 bytes of a "fmt " chunk
type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Info describes a WAV stream
type Info struct {
	Format        uint16  `json:"format"`
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumFrames     uint32  `json:"num_frames"`
}

// EncodeWAV encodes PCM-16 samples (interleaved when channels > 1) into WAV format
func EncodeWAV(samples []int16, sampleRate int, channels int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if channels < 1 || len(samples)%channels != 0 {
		return nil, fmt.Errorf("sample count %d does not fit %d channels", len(samples), channels)
	}

	numChannels := uint16(channels)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(samples) * 2)

	header := Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   FormatPCM,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))

	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// Inspect reads the format and data size of a WAV file without decoding samples
func Inspect(data []byte) (*Info, error) {
	info, _, err := parse(data)
	return info, err
}

// Decode returns the samples of a WAV file mixed down to mono and scaled to [-1, 1]
func Decode(data []byte) ([]float64, *Info, error) {
	info, pcm, err := parse(data)
	if err != nil {
		return nil, nil, err
	}

	bytesPerSample := int(info.BitsPerSample) / 8
	channels := int(info.Channels)
	frames := int(info.NumFrames)

	samples := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			off := (f*channels + ch) * bytesPerSample
			sum += sampleAt(pcm[off:off+bytesPerSample], info.Format, info.BitsPerSample)
		}
		samples[f] = sum / float64(channels)
	}

	return samples, info, nil
}

// parse walks the RIFF chunk list and returns the format and raw sample bytes.
// Chunks other than "fmt " and "data" (LIST, fact, ...) are skipped.
func parse(data []byte) (*Info, []byte, error) {
	if len(data) < 12 {
		return nil, nil, fmt.Errorf("WAV data too short: need at least 12 bytes, got %d", len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return nil, nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(data[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	var format *fmtChunk
	var pcm []byte

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		start := offset + 8
		end := start + size

		if end > len(data) {
			// Streaming writers often leave a bogus data size
			if id != "data" {
				return nil, nil, fmt.Errorf("invalid WAV file: chunk %q truncated", id)
			}
			end = len(data)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, nil, fmt.Errorf("invalid WAV file: fmt chunk too short (%d bytes)", size)
			}
			format = &fmtChunk{}
			if err := binary.Read(bytes.NewReader(data[start:start+16]), binary.LittleEndian, format); err != nil {
				return nil, nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
		case "data":
			pcm = data[start:end]
		}

		// Chunks are word aligned
		offset = end + (end-start)%2
	}

	if format == nil {
		return nil, nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	if pcm == nil {
		return nil, nil, fmt.Errorf("invalid WAV file: missing data chunk")
	}

	if err := checkFormat(format); err != nil {
		return nil, nil, err
	}

	audioFormat := format.AudioFormat
	if audioFormat == FormatExtensible {
		audioFormat = FormatPCM
		if format.BitsPerSample == 32 {
			// 32-bit extensible files in the wild are nearly always float
			audioFormat = FormatIEEEFloat
		}
	}

	frameSize := int(format.NumChannels) * int(format.BitsPerSample) / 8
	frames := len(pcm) / frameSize

	return &Info{
		Format:        audioFormat,
		SampleRate:    format.SampleRate,
		Channels:      format.NumChannels,
		BitsPerSample: format.BitsPerSample,
		Duration:      float64(frames) / float64(format.SampleRate),
		DataSize:      uint32(len(pcm)),
		NumFrames:     uint32(frames),
	}, pcm, nil
}

func checkFormat(f *fmtChunk) error {
	if f.NumChannels == 0 {
		return fmt.Errorf("invalid WAV file: zero channels")
	}

	if f.SampleRate == 0 {
		return fmt.Errorf("invalid sample rate: 0")
	}

	switch f.AudioFormat {
	case FormatPCM, FormatExtensible:
		switch f.BitsPerSample {
		case 8, 16, 24, 32:
			return nil
		}
		return fmt.Errorf("unsupported bit depth: %d", f.BitsPerSample)
	case FormatIEEEFloat:
		if f.BitsPerSample != 32 {
			return fmt.Errorf("unsupported float bit depth: %d (only 32-bit is supported)", f.BitsPerSample)
		}
		return nil
	}

	return fmt.Errorf("unsupported audio format: %d", f.AudioFormat)
}

// sampleAt converts one little-endian sample to [-1, 1]
func sampleAt(b []byte, format uint16, bits uint16) float64 {
	switch bits {
	case 8:
		return (float64(b[0]) - 128) / 128
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
		return float64(v) / 8388608
	default:
		u := binary.LittleEndian.Uint32(b)
		if format == FormatIEEEFloat {
			return float64(math.Float32frombits(u))
		}
		return float64(int32(u)) / 2147483648
	}
}
