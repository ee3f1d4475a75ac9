package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/voxdroplab/voxdrop/internal/audio"

	"github.com/spf13/cobra"
)

var recordOutput string

var recordCmd = &cobra.Command{
	Use:   "record [name]",
	Short: "Record a voice clip to a local WAV file",
	Long: `Record from the microphone until Ctrl+C or the configured maximum
duration, then save the clip as a WAV file in the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		capture := audio.NewCapture(cfg, nil, backendLogWriter())

		if err := capture.Start(); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}

		slog.Info("Recording... Press Ctrl+C to stop")
		waitForStop(capture)

		clip, err := capture.Stop()
		if err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}
		if clip == nil {
			return fmt.Errorf("no audio captured")
		}

		name := time.Now().Format("20060102-150405")
		if len(args) == 1 {
			name = args[0]
		}

		outputDir := cfg.Output.Directory
		if recordOutput != "" {
			outputDir = recordOutput
		}
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		path := filepath.Join(outputDir, name+".wav")
		if err := os.WriteFile(path, clip.Data, 0644); err != nil {
			return fmt.Errorf("failed to write clip: %w", err)
		}

		slog.Info("Clip saved", "path", path, "duration", fmt.Sprintf("%.2fs", clip.Duration))
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "output directory (overrides config)")
}

// waitForStop blocks until Ctrl+C or until the capture ends on its own
// (device gone or maximum duration reached).
func waitForStop(capture *audio.Capture) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			return
		case <-ticker.C:
			if !capture.Active() || capture.Elapsed() >= float64(cfg.Capture.MaxSeconds) {
				return
			}
			slog.Debug("Recording", "elapsed", fmt.Sprintf("%.1fs", capture.Elapsed()), "level", capture.Level())
		}
	}
}
