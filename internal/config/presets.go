package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Presets stores the recorder defaults the user last picked, persisted next
// to the recordings so they survive between sessions.
type Presets struct {
	DefaultEffect  string `yaml:"default_effect"`
	DefaultChannel string `yaml:"default_channel"`
	LastUpdated    string `yaml:"last_updated"`
}

func presetsPath(outputDir string) string {
	return filepath.Join(outputDir, "presets.yaml")
}

// LoadPresets reads the saved presets. A missing file yields zero-value
// presets, not an error.
func LoadPresets(outputDir string) (*Presets, error) {
	data, err := os.ReadFile(presetsPath(outputDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Presets{}, nil
		}
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}

	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	return &p, nil
}

// SavePresets writes the presets file, creating the output directory if needed.
func SavePresets(outputDir string, p *Presets) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	p.LastUpdated = time.Now().Format(time.RFC3339)

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal presets: %w", err)
	}

	if err := os.WriteFile(presetsPath(outputDir), data, 0644); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}

	return nil
}
