package audio

import (
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/voxdroplab/voxdrop/internal/config"
)

// FFmpegBackend acquires capture devices through FFmpeg, used when the
// native pulse tools are not installed.
type FFmpegBackend struct{}

// Acquire starts an ffmpeg process streaming raw s16le PCM to stdout.
func (b *FFmpegBackend) Acquire(cfg *config.Config, logWriter io.Writer) (Device, error) {
	if logWriter == nil {
		logWriter = io.Discard
	}

	source := cfg.Capture.Source
	if source == "" {
		source = "default"
	}

	filters := []string{}
	if cfg.Capture.NoiseSuppression {
		filters = append(filters, "afftdn")
	}
	if cfg.Capture.EchoCancellation {
		filters = append(filters, "aecho=0.8:0.9:40:0.25")
	}

	args := []string{
		"-f", "pulse",
		"-i", source,
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}
	args = append(args,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", cfg.Capture.SampleRate),
		"-ac", fmt.Sprintf("%d", cfg.Capture.Channels),
		"-",
	)

	cmd := exec.Command("ffmpeg", args...)
	cmd.Stderr = logWriter

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create capture pipe: %v", ErrDeviceUnavailable, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", ErrDeviceUnavailable, err)
	}

	return &execDevice{cmd: cmd, stdout: stdout}, nil
}

// ListSources lists pulse sources through ffmpeg's device enumeration
func (b *FFmpegBackend) ListSources() ([]string, error) {
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
func (b *FFmpegBackend) GetType() BackendType {
	return BackendTypeFFmpeg
}
