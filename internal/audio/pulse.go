package audio

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/voxdroplab/voxdrop/internal/config"
)

// PulseBackend acquires capture devices through the PulseAudio/PipeWire
// command line tools (parec, pactl).
type PulseBackend struct{}

func pulseAvailable() bool {
	_, err := exec.LookPath("parec")
	return err == nil
}

// Acquire starts a parec process streaming s16le PCM from the configured
// source. Echo cancellation, noise suppression and automatic gain are
// requested through the echo-cancel filter property; whether the sound
// server honors them depends on the loaded modules.
func (b *PulseBackend) Acquire(cfg *config.Config, logWriter io.Writer) (Device, error) {
	if logWriter == nil {
		logWriter = io.Discard
	}

	args := []string{
		"--format=s16le",
		fmt.Sprintf("--rate=%d", cfg.Capture.SampleRate),
		fmt.Sprintf("--channels=%d", cfg.Capture.Channels),
		fmt.Sprintf("--latency-msec=%d", cfg.Capture.ChunkIntervalMs),
	}
	if cfg.Capture.Source != "" {
		args = append(args, "-d", cfg.Capture.Source)
	}

	cmd := exec.Command("parec", args...)
	cmd.Stderr = logWriter

	env := os.Environ()
	if cfg.Capture.EchoCancellation {
		env = append(env, "PULSE_PROP_filter.want=echo-cancel")
	}
	if cfg.Capture.NoiseSuppression {
		env = append(env, "PULSE_PROP_media.echo-cancel.noise-suppression=1")
	}
	if cfg.Capture.AutoGainControl {
		env = append(env, "PULSE_PROP_media.echo-cancel.agc=1")
	}
	cmd.Env = env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create capture pipe: %v", ErrDeviceUnavailable, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start parec: %v", ErrDeviceUnavailable, err)
	}

	return &execDevice{cmd: cmd, stdout: stdout}, nil
}

// ListSources lists capture sources via pactl
func (b *PulseBackend) ListSources() ([]string, error) {
	out, err := exec.Command("pactl", "list", "short", "sources").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	var sources []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			sources = append(sources, fields[1])
		}
	}

	return sources, nil
}

// GetType returns the backend type
func (b *PulseBackend) GetType() BackendType {
	return BackendTypePulse
}

// execDevice wraps a capture subprocess streaming PCM on stdout.
type execDevice struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (d *execDevice) ReadChunk(p []byte) (int, error) {
	n, err := io.ReadFull(d.stdout, p)
	if err == io.ErrUnexpectedEOF {
		return n, io.EOF
	}
	return n, err
}

func (d *execDevice) Close() error {
	d.stdout.Close()

	if d.cmd.Process != nil {
		if err := d.cmd.Process.Signal(os.Interrupt); err != nil {
			d.cmd.Process.Kill()
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- d.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(3 * time.Second):
		if d.cmd.Process != nil {
			d.cmd.Process.Kill()
		}
		<-done
		return nil
	}
}
