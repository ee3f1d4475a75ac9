package audio

import (
	"errors"
	"io"
	"strings"

	"github.com/voxdroplab/voxdrop/internal/config"
)

// BackendType represents the type of capture backend
type BackendType string

const (
	BackendTypePulse  BackendType = "pulse"
	BackendTypeFFmpeg BackendType = "ffmpeg"
	BackendTypeAuto   BackendType = "auto"
)

// ErrDeviceUnavailable is returned when the input device cannot be acquired:
// no device present, permission denied, or the backend tool is missing.
var ErrDeviceUnavailable = errors.New("audio input device unavailable")

// Device is an acquired audio input handle. It streams signed 16-bit
// little-endian PCM at the configured rate and channel count. A Device is
// exclusively owned by one recording session and must be closed exactly once.
type Device interface {
	// ReadChunk blocks until the next time-sliced chunk is available and
	// copies it into p. Returns io.EOF when the stream ends.
	ReadChunk(p []byte) (int, error)

	// Close releases the underlying device handle.
	Close() error
}

// Backend acquires input devices and enumerates capture sources.
type Backend interface {
	// Acquire requests an input device with the configured constraints
	// (channel count, sample rate, echo cancellation, noise suppression,
	// automatic gain). Fails with a wrapped ErrDeviceUnavailable.
	Acquire(cfg *config.Config, logWriter io.Writer) (Device, error)

	// List available capture sources
	ListSources() ([]string, error)

	// Get the backend type
	GetType() BackendType
}

// NewBackend creates a capture backend based on configuration.
func NewBackend(cfg *config.Config) Backend {
	switch determineBackend(cfg) {
	case BackendTypeFFmpeg:
		return &FFmpegBackend{}
	default:
		return &PulseBackend{}
	}
}

// NewBackendOfType creates a backend of the given concrete type.
func NewBackendOfType(t BackendType) Backend {
	if t == BackendTypeFFmpeg {
		return &FFmpegBackend{}
	}
	return &PulseBackend{}
}

// determineBackend decides which backend to use based on configuration
func determineBackend(cfg *config.Config) BackendType {
	switch strings.ToLower(cfg.Capture.Backend) {
	case "ffmpeg":
		return BackendTypeFFmpeg
	case "pulse":
		return BackendTypePulse
	default:
		// Prefer the native pulse tools, fall back to ffmpeg when absent
		if pulseAvailable() {
			return BackendTypePulse
		}
		return BackendTypeFFmpeg
	}
}

// GetAvailableBackends returns the backends usable on the current system
func GetAvailableBackends() []BackendType {
	backends := []BackendType{}
	if pulseAvailable() {
		backends = append(backends, BackendTypePulse)
	}
	backends = append(backends, BackendTypeFFmpeg)
	return backends
}
