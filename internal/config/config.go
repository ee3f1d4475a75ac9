package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// CaptureConfig describes how the input device is requested. The sample rate
// is a configuration constant, not discovered at runtime: the same value is
// used when decoding and encoding, so a runtime that silently resamples would
// drift duration and pitch downstream.
type CaptureConfig struct {
	SampleRate       int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels         int    `mapstructure:"channels" yaml:"channels"`
	ChunkIntervalMs  int    `mapstructure:"chunk_interval_ms" yaml:"chunk_interval_ms"`
	Backend          string `mapstructure:"backend" yaml:"backend"` // "pulse", "ffmpeg", "auto"
	Source           string `mapstructure:"source" yaml:"source"`   // device name, empty = system default
	EchoCancellation bool   `mapstructure:"echo_cancellation" yaml:"echo_cancellation"`
	NoiseSuppression bool   `mapstructure:"noise_suppression" yaml:"noise_suppression"`
	AutoGainControl  bool   `mapstructure:"auto_gain_control" yaml:"auto_gain_control"`
	MaxSeconds       int    `mapstructure:"max_seconds" yaml:"max_seconds"`
}

type APIConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	Token          string `mapstructure:"token" yaml:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

var defaultConfig = Config{
	Capture: CaptureConfig{
		SampleRate:       48000,
		Channels:         1,
		ChunkIntervalMs:  100,
		Backend:          "auto",
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		MaxSeconds:       120,
	},
	API: APIConfig{
		BaseURL:        "http://localhost:3000",
		TimeoutSeconds: 30,
	},
	Server: ServerConfig{
		Port: "8080",
	},
	Output: OutputConfig{
		Directory: filepath.Join(os.Getenv("HOME"), "Audio", "VoxDrop"),
	},
}

// Default returns a copy of the built-in defaults.
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// Load reads the configuration file and merges it over the defaults.
// A missing file is not an error when configFile is empty: the defaults
// apply and environment variables (VOXDROP_*) can still override them.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("capture.sample_rate", defaultConfig.Capture.SampleRate)
	v.SetDefault("capture.channels", defaultConfig.Capture.Channels)
	v.SetDefault("capture.chunk_interval_ms", defaultConfig.Capture.ChunkIntervalMs)
	v.SetDefault("capture.backend", defaultConfig.Capture.Backend)
	v.SetDefault("capture.echo_cancellation", defaultConfig.Capture.EchoCancellation)
	v.SetDefault("capture.noise_suppression", defaultConfig.Capture.NoiseSuppression)
	v.SetDefault("capture.auto_gain_control", defaultConfig.Capture.AutoGainControl)
	v.SetDefault("capture.max_seconds", defaultConfig.Capture.MaxSeconds)
	v.SetDefault("capture.source", defaultConfig.Capture.Source)
	v.SetDefault("api.base_url", defaultConfig.API.BaseURL)
	v.SetDefault("api.token", defaultConfig.API.Token)
	v.SetDefault("api.timeout_seconds", defaultConfig.API.TimeoutSeconds)
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("output.directory", defaultConfig.Output.Directory)

	v.SetEnvPrefix("VOXDROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		defaultPath := os.ExpandEnv("$HOME/.config/voxdrop.yaml")
		if _, err := os.Stat(defaultPath); err == nil {
			configFile = defaultPath
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Output.Directory = expandPath(cfg.Output.Directory)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for values the pipeline cannot work with.
func Validate(cfg *Config) error {
	if err := validateCapture(&cfg.Capture); err != nil {
		return err
	}

	if cfg.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0, got %d", cfg.API.TimeoutSeconds)
	}
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must start with http:// or https://, got: %s", cfg.API.BaseURL)
	}

	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	return nil
}

func validateCapture(c *CaptureConfig) error {
	switch c.SampleRate {
	case 8000, 16000, 22050, 24000, 44100, 48000, 96000:
	default:
		return fmt.Errorf("capture.sample_rate %d is not a supported rate", c.SampleRate)
	}

	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("capture.channels must be 1 or 2, got %d", c.Channels)
	}

	if c.ChunkIntervalMs < 10 || c.ChunkIntervalMs > 1000 {
		return fmt.Errorf("capture.chunk_interval_ms must be between 10 and 1000, got %d", c.ChunkIntervalMs)
	}

	switch strings.ToLower(c.Backend) {
	case "pulse", "ffmpeg", "auto", "":
	default:
		return fmt.Errorf("capture.backend must be 'pulse', 'ffmpeg' or 'auto', got: %s", c.Backend)
	}

	if c.MaxSeconds <= 0 {
		return fmt.Errorf("capture.max_seconds must be > 0, got %d", c.MaxSeconds)
	}

	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
