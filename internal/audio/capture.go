package audio

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/voxdroplab/voxdrop/internal/config"
)

// Clip is a finalized, immutable recording: a WAV blob plus its duration.
// Ownership transfers to whoever receives it from Stop.
type Clip struct {
	Data     []byte
	Duration float64
}

// Waveform returns per-bucket peak values in 0..255 for preview rendering.
func (c *Clip) Waveform(buckets int) []int {
	info, err := ProbeWAV(c.Data)
	if err != nil {
		return nil
	}
	return WaveformPCM16(c.Data[wavHeaderSize:], info.Channels, buckets)
}

// session holds the transient state of one active recording. At most one
// session exists per Capture instance; the device handle is exclusively
// owned by it and released exactly once.
type session struct {
	device    Device
	startTime time.Time
	chunks    [][]byte
	byteCount int
	released  bool
	stop      chan struct{}
	done      chan struct{}
}

// Capture owns the microphone stream lifecycle: it acquires the device,
// slices the incoming PCM into periodic chunks, meters the level while
// recording, and finalizes everything into a Clip on stop.
type Capture struct {
	cfg       *config.Config
	backend   Backend
	logWriter io.Writer

	mu        sync.Mutex
	session   *session
	level     int
	elapsed   float64
	lastError string
}

// NewCapture creates a capture controller using the given backend.
func NewCapture(cfg *config.Config, backend Backend, logWriter io.Writer) *Capture {
	if logWriter == nil {
		logWriter = io.Discard
	}
	if backend == nil {
		backend = NewBackend(cfg)
	}

	return &Capture{
		cfg:       cfg,
		backend:   backend,
		logWriter: logWriter,
	}
}

// Start acquires the input device and begins streaming chunks into memory.
// On failure no session is created and LastError reports the reason.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return fmt.Errorf("recording already in progress")
	}

	device, err := c.backend.Acquire(c.cfg, c.logWriter)
	if err != nil {
		c.lastError = err.Error()
		slog.Error("Failed to acquire capture device", "backend", c.backend.GetType(), "error", err)
		return err
	}

	s := &session{
		device:    device,
		startTime: time.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	c.session = s
	c.level = 0
	c.elapsed = 0
	c.lastError = ""

	go c.readLoop(s)

	slog.Info("Capture started", "backend", c.backend.GetType(),
		"rate", c.cfg.Capture.SampleRate, "channels", c.cfg.Capture.Channels)
	return nil
}

// readLoop pulls time-sliced chunks off the device until stopped, the
// stream ends, or the configured maximum duration is reached. Level and
// elapsed time are updated per chunk; a metering failure degrades the
// level to zero instead of aborting the capture.
func (c *Capture) readLoop(s *session) {
	defer close(s.done)

	frameBytes := c.cfg.Capture.Channels * 2
	chunkBytes := c.cfg.Capture.SampleRate * frameBytes * c.cfg.Capture.ChunkIntervalMs / 1000
	maxBytes := c.cfg.Capture.SampleRate * frameBytes * c.cfg.Capture.MaxSeconds

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		buf := make([]byte, chunkBytes)
		n, err := s.device.ReadChunk(buf)
		if n > 0 {
			c.mu.Lock()
			s.chunks = append(s.chunks, buf[:n])
			s.byteCount += n
			c.level = LevelPCM16(buf[:n])
			c.elapsed = float64(s.byteCount) / float64(c.cfg.Capture.SampleRate*frameBytes)
			overLimit := s.byteCount >= maxBytes
			c.mu.Unlock()

			if overLimit {
				slog.Info("Capture reached maximum duration", "max_seconds", c.cfg.Capture.MaxSeconds)
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				slog.Debug("Capture chunk read failed, metering degraded", "error", err)
			}
			c.mu.Lock()
			c.level = 0
			c.mu.Unlock()
			if err == io.EOF {
				return
			}
			return
		}
	}
}

// Stop halts metering, finalizes the captured chunks into one Clip, and
// releases the device handle. Idempotent: calling it with no active
// session returns (nil, nil) and never attempts a second release.
func (c *Capture) Stop() (*Clip, error) {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return nil, nil
	}

	close(s.stop)
	<-s.done

	if !s.released {
		s.released = true
		if err := s.device.Close(); err != nil {
			slog.Debug("Device release reported error", "error", err)
		}
	}

	c.mu.Lock()
	c.level = 0
	raw := make([]byte, 0, s.byteCount)
	for _, chunk := range s.chunks {
		raw = append(raw, chunk...)
	}
	c.mu.Unlock()

	data, err := EncodePCM16(raw, c.cfg.Capture.Channels, c.cfg.Capture.SampleRate)
	if err != nil {
		c.mu.Lock()
		c.lastError = err.Error()
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to finalize recording: %w", err)
	}

	frameBytes := c.cfg.Capture.Channels * 2
	clip := &Clip{
		Data:     data,
		Duration: float64(len(raw)/frameBytes) / float64(c.cfg.Capture.SampleRate),
	}

	slog.Info("Capture stopped", "duration", fmt.Sprintf("%.2fs", clip.Duration), "bytes", len(clip.Data))
	return clip, nil
}

// Active reports whether a recording session is in progress.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Level returns the most recent metering sample (0..255). Zero when idle.
func (c *Capture) Level() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Elapsed returns the recorded duration in seconds so far.
func (c *Capture) Elapsed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// LastError returns the last observable error string, empty when none.
func (c *Capture) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Waveform returns a preview of the audio captured so far.
func (c *Capture) Waveform(buckets int) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	raw := make([]byte, 0, c.session.byteCount)
	for _, chunk := range c.session.chunks {
		raw = append(raw, chunk...)
	}
	return WaveformPCM16(raw, c.cfg.Capture.Channels, buckets)
}

// Cleanup releases metering resources and resets transient state. Safe to
// call whether or not a session is active, and more than once.
func (c *Capture) Cleanup() {
	if c.Active() {
		if _, err := c.Stop(); err != nil {
			slog.Debug("Cleanup stop failed", "error", err)
		}
	}

	c.mu.Lock()
	c.level = 0
	c.elapsed = 0
	c.lastError = ""
	c.mu.Unlock()
}
