package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/voxdroplab/voxdrop/internal/api"
	"github.com/voxdroplab/voxdrop/internal/audio"
	"github.com/voxdroplab/voxdrop/internal/config"
	"github.com/voxdroplab/voxdrop/internal/dsp"
	"github.com/voxdroplab/voxdrop/internal/post"

	"github.com/spf13/cobra"
)

var (
	postEffect  string
	postChannel string
	postReplyTo string
	postFile    string
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Record a voice clip and post it to the feed",
	Long: `Record from the microphone (or take an existing WAV file), apply the
selected effect in an offline render, and upload the clip.

Without --effect the default effect saved with 'effects set-default'
applies, falling back to none.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := api.NewClient(&cfg.API)
		if err != nil {
			return fmt.Errorf("failed to create API client: %w", err)
		}

		capture := audio.NewCapture(cfg, nil, backendLogWriter())
		coordinator := post.NewCoordinator(capture, client, client.Cache().Invalidate)
		defer coordinator.Close()

		if postFile != "" {
			clip, err := loadClipFile(postFile)
			if err != nil {
				return err
			}
			if err := coordinator.LoadClip(clip); err != nil {
				return err
			}
		} else {
			if err := coordinator.StartRecording(); err != nil {
				return fmt.Errorf("failed to start recording: %w", err)
			}

			slog.Info("Recording... Press Ctrl+C to stop and post")
			waitForStop(capture)

			clip, err := coordinator.StopRecording()
			if err != nil {
				return fmt.Errorf("failed to stop recording: %w", err)
			}
			if clip == nil || len(clip.Data) == 0 {
				return fmt.Errorf("no audio captured")
			}
			slog.Info("Clip recorded", "duration", fmt.Sprintf("%.2fs", clip.Duration))
		}

		presets, err := config.LoadPresets(cfg.Output.Directory)
		if err != nil {
			slog.Debug("Failed to load presets", "error", err)
			presets = &config.Presets{}
		}

		name := postEffect
		if name == "" {
			name = presets.DefaultEffect
		}
		effect, err := dsp.Preset(name)
		if err != nil {
			return err
		}
		if err := coordinator.SelectEffect(effect); err != nil {
			return err
		}

		if postChannel == "" {
			postChannel = presets.DefaultChannel
		}
		coordinator.SetChannel(postChannel)
		coordinator.SetParent(postReplyTo)

		created, err := coordinator.Upload(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to post clip: %w", err)
		}

		slog.Info("Clip posted", "post_id", created.ID, "effect", effect.Kind.String())
		return nil
	},
}

func init() {
	postCmd.Flags().StringVarP(&postEffect, "effect", "e", "", "effect preset: none, reverb, distortion, delay, pitch-up, pitch-down")
	postCmd.Flags().StringVarP(&postChannel, "channel", "c", "", "target channel id")
	postCmd.Flags().StringVarP(&postReplyTo, "reply-to", "r", "", "parent post id to reply to")
	postCmd.Flags().StringVarP(&postFile, "file", "f", "", "post an existing WAV file instead of recording")
}

func loadClipFile(path string) (*audio.Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	duration, err := audio.WAVDuration(data)
	if err != nil {
		return nil, fmt.Errorf("%s is not a usable WAV file: %w", path, err)
	}
	return &audio.Clip{Data: data, Duration: duration}, nil
}
