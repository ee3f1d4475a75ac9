package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	if cfg.Capture.SampleRate != 48000 {
		t.Errorf("expected default sample rate 48000, got %d", cfg.Capture.SampleRate)
	}
	if cfg.Capture.Channels != 1 {
		t.Errorf("expected single channel capture by default, got %d", cfg.Capture.Channels)
	}
	if cfg.Capture.ChunkIntervalMs != 100 {
		t.Errorf("expected 100ms chunks by default, got %d", cfg.Capture.ChunkIntervalMs)
	}
	if !cfg.Capture.EchoCancellation || !cfg.Capture.NoiseSuppression || !cfg.Capture.AutoGainControl {
		t.Error("expected voice processing enabled by default")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unsupported sample rate", func(c *Config) { c.Capture.SampleRate = 12345 }},
		{"three channels", func(c *Config) { c.Capture.Channels = 3 }},
		{"chunk interval too short", func(c *Config) { c.Capture.ChunkIntervalMs = 5 }},
		{"chunk interval too long", func(c *Config) { c.Capture.ChunkIntervalMs = 2000 }},
		{"unknown backend", func(c *Config) { c.Capture.Backend = "jack" }},
		{"zero max seconds", func(c *Config) { c.Capture.MaxSeconds = 0 }},
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }},
		{"base url without scheme", func(c *Config) { c.API.BaseURL = "localhost:3000" }},
		{"zero timeout", func(c *Config) { c.API.TimeoutSeconds = 0 }},
		{"missing port", func(c *Config) { c.Server.Port = "" }},
	}

	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voxdrop.yaml")
	content := `capture:
  sample_rate: 44100
  channels: 2
api:
  base_url: https://drops.example.com
  token: tok-123
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Capture.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100 from file, got %d", cfg.Capture.SampleRate)
	}
	if cfg.Capture.Channels != 2 {
		t.Errorf("expected 2 channels from file, got %d", cfg.Capture.Channels)
	}
	if cfg.API.BaseURL != "https://drops.example.com" {
		t.Errorf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.Token != "tok-123" {
		t.Errorf("unexpected token %q", cfg.API.Token)
	}

	// Values absent from the file keep their defaults.
	if cfg.Capture.ChunkIntervalMs != 100 {
		t.Errorf("expected default chunk interval, got %d", cfg.Capture.ChunkIntervalMs)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voxdrop.yaml")
	if err := os.WriteFile(path, []byte("capture:\n  sample_rate: 12345\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unsupported sample rate")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("VOXDROP_CAPTURE_SAMPLE_RATE", "16000")
	t.Setenv("VOXDROP_API_TOKEN", "env-token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Capture.SampleRate != 16000 {
		t.Errorf("expected sample rate 16000 from environment, got %d", cfg.Capture.SampleRate)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("expected token from environment, got %q", cfg.API.Token)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got := expandPath("~/Audio/VoxDrop")
	want := filepath.Join(home, "Audio", "VoxDrop")
	if got != want {
		t.Errorf("expandPath = %q, want %q", got, want)
	}

	if got := expandPath("/absolute/path"); got != "/absolute/path" {
		t.Errorf("absolute paths must pass through, got %q", got)
	}
}
