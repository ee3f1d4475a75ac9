package cmd

import (
	"fmt"
	"log/slog"

	"github.com/voxdroplab/voxdrop/internal/config"
	"github.com/voxdroplab/voxdrop/internal/dsp"

	"github.com/spf13/cobra"
)

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "List the available effect presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		presets, err := config.LoadPresets(cfg.Output.Directory)
		if err != nil {
			return err
		}

		for _, name := range dsp.PresetNames() {
			effect, err := dsp.Preset(name)
			if err != nil {
				return err
			}
			marker := " "
			if name == presets.DefaultEffect {
				marker = "*"
			}
			fmt.Printf("%s %-12s %s\n", marker, name, effect)
		}
		return nil
	},
}

var effectsSetDefaultCmd = &cobra.Command{
	Use:   "set-default [name]",
	Short: "Save an effect preset as the default for new posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, err := dsp.Preset(name); err != nil {
			return err
		}

		presets, err := config.LoadPresets(cfg.Output.Directory)
		if err != nil {
			return err
		}
		presets.DefaultEffect = name
		if err := config.SavePresets(cfg.Output.Directory, presets); err != nil {
			return err
		}

		slog.Info("Default effect saved", "effect", name)
		return nil
	},
}

func init() {
	effectsCmd.AddCommand(effectsSetDefaultCmd)
}
