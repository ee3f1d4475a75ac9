package audio

import (
	"fmt"
)

// Buffer holds decoded multi-channel float samples with an explicit sample rate.
// Sample values are nominally in [-1.0, 1.0] but are not clamped here; clamping
// happens only when encoding to 16-bit PCM.
type Buffer struct {
	SampleRate int
	Samples    [][]float64 // Samples[channel][frame]
}

// NewBuffer allocates a silent buffer with the given shape.
func NewBuffer(channels, frames, sampleRate int) (*Buffer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("buffer must have at least one channel, got %d", channels)
	}
	if frames < 0 {
		return nil, fmt.Errorf("frame count must be >= 0, got %d", frames)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	samples := make([][]float64, channels)
	for ch := range samples {
		samples[ch] = make([]float64, frames)
	}

	return &Buffer{
		SampleRate: sampleRate,
		Samples:    samples,
	}, nil
}

// Channels returns the number of channels in the buffer.
func (b *Buffer) Channels() int {
	return len(b.Samples)
}

// Frames returns the number of frames per channel.
func (b *Buffer) Frames() int {
	if len(b.Samples) == 0 {
		return 0
	}
	return len(b.Samples[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	samples := make([][]float64, len(b.Samples))
	for ch := range b.Samples {
		samples[ch] = make([]float64, len(b.Samples[ch]))
		copy(samples[ch], b.Samples[ch])
	}
	return &Buffer{
		SampleRate: b.SampleRate,
		Samples:    samples,
	}
}

// Validate checks that the buffer shape is internally consistent.
func (b *Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", b.SampleRate)
	}
	if len(b.Samples) == 0 {
		return fmt.Errorf("buffer must have at least one channel")
	}
	frames := len(b.Samples[0])
	for ch, data := range b.Samples {
		if len(data) != frames {
			return fmt.Errorf("channel %d has %d frames, expected %d", ch, len(data), frames)
		}
	}
	return nil
}
