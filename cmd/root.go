package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/voxdroplab/voxdrop/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	cfgFile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "voxdrop",
	Short: "Voice clip recorder and poster",
	Long: `VoxDrop records short voice clips from the microphone, applies an
optional audio effect, and posts them to a VoxDrop feed.

Clips are captured as raw PCM, rendered offline through the selected
effect, encoded as WAV and uploaded in one go.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure slog based on verbose level
		setupLogging(verboseLevel)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/voxdrop.yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug, 2=backend output")

	// Add subcommands
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(effectsCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging configures slog based on the verbose level
func setupLogging(level int) {
	var slogLevel slog.Level
	switch level {
	case 0:
		slogLevel = slog.LevelInfo
	default:
		slogLevel = slog.LevelDebug
	}

	// Configure text handler for clean terminal output
	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger := slog.New(handler)
	slog.SetDefault(logger)
}

// backendLogWriter returns where capture backend output goes: discarded by
// default, passed through to stderr at verbose level 2.
func backendLogWriter() io.Writer {
	if verboseLevel >= 2 {
		return os.Stderr
	}
	return nil
}
