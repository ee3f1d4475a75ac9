package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	wavHeaderSize  = 44
	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8
)

// wavHeader is the canonical 44-byte RIFF/WAVE header for 16-bit linear PCM.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // total length - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for linear PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * 2
	BlockAlign    uint16 // NumChannels * 2
	BitsPerSample uint16 // 16, fixed
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload bytes
}

func newWAVHeader(channels, sampleRate, frames int) wavHeader {
	dataSize := uint32(frames * channels * bytesPerSample)
	return wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * bytesPerSample),
		BlockAlign:    uint16(channels * bytesPerSample),
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// QuantizeSample converts one float sample to signed 16-bit PCM. The value is
// clamped to [-1, 1] and scaled asymmetrically (32768 for negative values,
// 32767 otherwise), rounding by truncation after biasing the magnitude by 0.5.
// This is the only place in the pipeline where samples are clamped.
func QuantizeSample(s float64) int16 {
	if s > 1.0 {
		s = 1.0
	}
	if s < -1.0 {
		s = -1.0
	}
	if s < 0 {
		return int16(s*32768 - 0.5)
	}
	return int16(s*32767 + 0.5)
}

// EncodeWAV serializes a decoded buffer into a 16-bit linear PCM WAV blob.
// Frames are written in order with channels interleaved per frame, samples
// little-endian. The result is bit-exact for a given input: no dithering,
// no compression.
func EncodeWAV(buf *Buffer) ([]byte, error) {
	if buf == nil {
		return nil, fmt.Errorf("cannot encode nil buffer")
	}
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid buffer: %w", err)
	}

	channels := buf.Channels()
	frames := buf.Frames()

	out := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+frames*channels*bytesPerSample))
	if err := binary.Write(out, binary.LittleEndian, newWAVHeader(channels, buf.SampleRate, frames)); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	var sample [2]byte
	for frame := 0; frame < frames; frame++ {
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(sample[:], uint16(QuantizeSample(buf.Samples[ch][frame])))
			out.Write(sample[:])
		}
	}

	return out.Bytes(), nil
}

// EncodePCM16 wraps already-quantized interleaved little-endian samples in a
// WAV container without touching the payload. Used when finalizing a capture
// session whose device already delivers 16-bit PCM chunks.
func EncodePCM16(raw []byte, channels, sampleRate int) ([]byte, error) {
	if channels < 1 {
		return nil, fmt.Errorf("channel count must be >= 1, got %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	blockAlign := channels * bytesPerSample
	if len(raw)%blockAlign != 0 {
		return nil, fmt.Errorf("payload length %d is not a multiple of block align %d", len(raw), blockAlign)
	}

	frames := len(raw) / blockAlign
	out := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(raw)))
	if err := binary.Write(out, binary.LittleEndian, newWAVHeader(channels, sampleRate, frames)); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	out.Write(raw)

	return out.Bytes(), nil
}

// DecodeWAV parses a 16-bit linear PCM WAV blob into a float buffer.
// Samples are scaled back with the same asymmetric factors used by
// EncodeWAV so that a round trip stays within one quantization step.
func DecodeWAV(data []byte) (*Buffer, error) {
	var header wavHeader
	if err := readWAVHeader(data, &header); err != nil {
		return nil, err
	}

	channels := int(header.NumChannels)
	payload := data[wavHeaderSize:]
	if uint32(len(payload)) < header.Subchunk2Size {
		return nil, fmt.Errorf("truncated WAV data: header declares %d payload bytes, got %d", header.Subchunk2Size, len(payload))
	}
	payload = payload[:header.Subchunk2Size]

	frames := len(payload) / (channels * bytesPerSample)
	buf, err := NewBuffer(channels, frames, int(header.SampleRate))
	if err != nil {
		return nil, err
	}

	for frame := 0; frame < frames; frame++ {
		base := frame * channels * bytesPerSample
		for ch := 0; ch < channels; ch++ {
			v := int16(binary.LittleEndian.Uint16(payload[base+ch*bytesPerSample:]))
			if v < 0 {
				buf.Samples[ch][frame] = float64(v) / 32768.0
			} else {
				buf.Samples[ch][frame] = float64(v) / 32767.0
			}
		}
	}

	return buf, nil
}

// WAVDuration returns the duration in seconds of a WAV blob without decoding
// the sample payload.
func WAVDuration(data []byte) (float64, error) {
	var header wavHeader
	if err := readWAVHeader(data, &header); err != nil {
		return 0, err
	}

	frames := header.Subchunk2Size / uint32(header.BlockAlign)
	return float64(frames) / float64(header.SampleRate), nil
}

// WAVInfo describes the format of a WAV blob.
type WAVInfo struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Frames     int     `json:"frames"`
	Duration   float64 `json:"duration_seconds"`
	DataSize   int     `json:"data_size_bytes"`
}

// ProbeWAV extracts format metadata from a WAV blob.
func ProbeWAV(data []byte) (*WAVInfo, error) {
	var header wavHeader
	if err := readWAVHeader(data, &header); err != nil {
		return nil, err
	}

	frames := int(header.Subchunk2Size) / int(header.BlockAlign)
	return &WAVInfo{
		SampleRate: int(header.SampleRate),
		Channels:   int(header.NumChannels),
		Frames:     frames,
		Duration:   float64(frames) / float64(header.SampleRate),
		DataSize:   int(header.Subchunk2Size),
	}, nil
}

func readWAVHeader(data []byte, header *wavHeader) error {
	if len(data) < wavHeaderSize {
		return fmt.Errorf("WAV data too short: need at least %d bytes, got %d", wavHeaderSize, len(data))
	}

	if err := binary.Read(bytes.NewReader(data[:wavHeaderSize]), binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return fmt.Errorf("invalid WAV data: missing RIFF header")
	}
	if string(header.Format[:]) != "WAVE" {
		return fmt.Errorf("invalid WAV data: missing WAVE format")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return fmt.Errorf("invalid WAV data: missing fmt chunk")
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return fmt.Errorf("invalid WAV data: missing data chunk")
	}
	if header.AudioFormat != 1 {
		return fmt.Errorf("unsupported audio format: %d (only linear PCM is supported)", header.AudioFormat)
	}
	if header.BitsPerSample != bitsPerSample {
		return fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", header.BitsPerSample)
	}
	if header.NumChannels == 0 {
		return fmt.Errorf("invalid channel count: 0")
	}
	if header.SampleRate == 0 {
		return fmt.Errorf("invalid sample rate: 0")
	}
	if header.BlockAlign == 0 {
		return fmt.Errorf("invalid block align: 0")
	}

	return nil
}
