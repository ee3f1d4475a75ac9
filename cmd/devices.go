package cmd

import (
	"fmt"

	"github.com/voxdroplab/voxdrop/internal/audio"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio input sources",
	Long: `List the capture sources each available backend reports. Use a source
name as capture.source in the config to record from it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		backends := audio.GetAvailableBackends()
		if len(backends) == 0 {
			return fmt.Errorf("no capture backend available (need parec or ffmpeg in PATH)")
		}

		for _, backendType := range backends {
			backend := audio.NewBackendOfType(backendType)
			fmt.Printf("%s:\n", backendType)

			sources, err := backend.ListSources()
			if err != nil {
				fmt.Printf("  (failed to list sources: %v)\n", err)
				continue
			}
			if len(sources) == 0 {
				fmt.Println("  (no sources found)")
				continue
			}
			for _, source := range sources {
				fmt.Printf("  %s\n", source)
			}
		}
		return nil
	},
}
