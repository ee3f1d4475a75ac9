package audio

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/voxdroplab/voxdrop/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Capture.SampleRate = 8000
	cfg.Capture.Channels = 1
	cfg.Capture.ChunkIntervalMs = 100
	cfg.Capture.MaxSeconds = 10
	return cfg
}

// waitForDrain polls until the synthetic signal has been fully consumed.
func waitForDrain(t *testing.T, c *Capture, seconds float64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Elapsed() >= seconds {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("capture never reached %.1fs, elapsed %.2fs", seconds, c.Elapsed())
}

func TestCaptureTwoSeconds(t *testing.T) {
	backend := &SyntheticBackend{Seconds: 2, Frequency: 440}
	c := NewCapture(testConfig(), backend, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !c.Active() {
		t.Fatal("expected capture to be active after Start")
	}

	waitForDrain(t, c, 2.0)

	clip, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if clip == nil {
		t.Fatal("expected a clip from Stop")
	}
	if math.Abs(clip.Duration-2.0) > 0.15 {
		t.Errorf("expected duration about 2.0s, got %.3fs", clip.Duration)
	}

	info, err := ProbeWAV(clip.Data)
	if err != nil {
		t.Fatalf("clip is not valid WAV: %v", err)
	}
	if info.SampleRate != 8000 || info.Channels != 1 {
		t.Errorf("unexpected clip format: %+v", info)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	backend := &SyntheticBackend{Seconds: 1, Frequency: 220}
	c := NewCapture(testConfig(), backend, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForDrain(t, c, 1.0)

	if _, err := c.Stop(); err != nil {
		t.Fatalf("first Stop failed: %v", err)
	}

	clip, err := c.Stop()
	if err != nil {
		t.Errorf("second Stop returned error: %v", err)
	}
	if clip != nil {
		t.Error("second Stop returned a clip")
	}

	if calls := backend.LastDevice().CloseCalls; calls != 1 {
		t.Errorf("expected exactly one device release, got %d", calls)
	}
}

func TestStartUnplugged(t *testing.T) {
	backend := &SyntheticBackend{Unplugged: true}
	c := NewCapture(testConfig(), backend, nil)

	err := c.Start()
	if err == nil {
		t.Fatal("expected Start to fail with unplugged device")
	}
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
	if c.Active() {
		t.Error("no session should exist after a failed Start")
	}
	if c.LastError() == "" {
		t.Error("expected an observable error string")
	}
}

func TestCleanupWithoutSession(t *testing.T) {
	c := NewCapture(testConfig(), &SyntheticBackend{}, nil)

	c.Cleanup()
	c.Cleanup()

	if c.Active() || c.Level() != 0 || c.Elapsed() != 0 || c.LastError() != "" {
		t.Error("Cleanup with no session should leave state zeroed")
	}
}

func TestCleanupReleasesActiveSession(t *testing.T) {
	backend := &SyntheticBackend{Frequency: 440} // endless signal
	c := NewCapture(testConfig(), backend, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	c.Cleanup()

	if c.Active() {
		t.Error("expected no active session after Cleanup")
	}
	if calls := backend.LastDevice().CloseCalls; calls != 1 {
		t.Errorf("expected exactly one device release, got %d", calls)
	}
}

func TestLevelMeteringWhileRecording(t *testing.T) {
	backend := &SyntheticBackend{Frequency: 440, Amplitude: 0.9}
	c := NewCapture(testConfig(), backend, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Cleanup()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Level() > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("level never rose above zero while recording a tone")
}

func TestMaxDurationStopsCapture(t *testing.T) {
	cfg := testConfig()
	cfg.Capture.MaxSeconds = 1
	backend := &SyntheticBackend{Frequency: 440} // endless signal
	c := NewCapture(cfg, backend, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForDrain(t, c, 1.0)

	clip, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if clip.Duration > 1.2 {
		t.Errorf("capture ran past the maximum duration: %.2fs", clip.Duration)
	}
}
