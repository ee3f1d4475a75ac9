package audio

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/voxdroplab/voxdrop/internal/config"
)

// SyntheticBackend emits a generated tone instead of reading hardware. It
// backs the capture tests and the recorder's dry-run mode, where no sound
// server is available.
type SyntheticBackend struct {
	Seconds   float64 // length of signal before EOF; 0 means endless
	Frequency float64 // sine frequency in Hz; 0 emits silence
	Amplitude float64 // 0..1, defaults to 0.5
	Unplugged bool    // simulate a missing device / denied permission

	mu         sync.Mutex
	lastDevice *SyntheticDevice
}

// Acquire returns a generated-signal device, or a wrapped
// ErrDeviceUnavailable when Unplugged is set.
func (b *SyntheticBackend) Acquire(cfg *config.Config, logWriter io.Writer) (Device, error) {
	if b.Unplugged {
		return nil, fmt.Errorf("%w: no capture source present", ErrDeviceUnavailable)
	}

	amp := b.Amplitude
	if amp == 0 {
		amp = 0.5
	}

	d := &SyntheticDevice{
		sampleRate: cfg.Capture.SampleRate,
		channels:   cfg.Capture.Channels,
		frequency:  b.Frequency,
		amplitude:  amp,
		maxFrames:  int(b.Seconds * float64(cfg.Capture.SampleRate)),
	}

	b.mu.Lock()
	b.lastDevice = d
	b.mu.Unlock()

	return d, nil
}

// ListSources returns the single synthetic source
func (b *SyntheticBackend) ListSources() ([]string, error) {
	return []string{"synthetic:tone"}, nil
}

// GetType returns the backend type
func (b *SyntheticBackend) GetType() BackendType {
	return BackendType("synthetic")
}

// LastDevice returns the most recently acquired device, for inspecting
// release behavior in tests.
func (b *SyntheticBackend) LastDevice() *SyntheticDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDevice
}

// SyntheticDevice generates s16le sine or silence chunks on demand.
type SyntheticDevice struct {
	sampleRate int
	channels   int
	frequency  float64
	amplitude  float64
	maxFrames  int // 0 means endless

	mu         sync.Mutex
	frame      int
	closed     bool
	CloseCalls int
}

func (d *SyntheticDevice) ReadChunk(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, io.EOF
	}

	frameBytes := d.channels * 2
	frames := len(p) / frameBytes
	if d.maxFrames > 0 {
		remaining := d.maxFrames - d.frame
		if remaining <= 0 {
			return 0, io.EOF
		}
		if frames > remaining {
			frames = remaining
		}
	}

	for i := 0; i < frames; i++ {
		var s float64
		if d.frequency > 0 {
			s = d.amplitude * math.Sin(2*math.Pi*d.frequency*float64(d.frame)/float64(d.sampleRate))
		}
		v := uint16(QuantizeSample(s))
		for ch := 0; ch < d.channels; ch++ {
			off := (i*d.channels + ch) * 2
			p[off] = byte(v)
			p[off+1] = byte(v >> 8)
		}
		d.frame++
	}

	n := frames * frameBytes
	if d.maxFrames > 0 && d.frame >= d.maxFrames {
		return n, io.EOF
	}
	return n, nil
}

func (d *SyntheticDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCalls++
	d.closed = true
	return nil
}
