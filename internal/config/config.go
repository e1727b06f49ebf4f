package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/menta2k/glasses-detector/internal/utils"
	"github.com/menta2k/glasses-detector/pkg/processing"
)

// Config holds the application configuration
type Config struct {
	Detector DetectorConfig `json:"detector"`
	Camera   CameraConfig   `json:"camera"`
	Resizer  ResizerConfig  `json:"resizer"`
	Log      LogConfig      `json:"log"`
}

// DetectorConfig holds configuration for the live classifier
type DetectorConfig struct {
	PollIntervalMs int    `json:"poll_interval_ms"`
	TargetFPS      int    `json:"target_fps"`
	InputSize      int    `json:"input_size"`
	Backend        string `json:"backend"`
	Model          string `json:"model"`
	URL            string `json:"url"`
}

// CameraConfig holds configuration for the frame source
type CameraConfig struct {
	Device    int     `json:"device"`
	FramesDir string  `json:"frames_dir"`
	FPS       float64 `json:"fps"`
	Loop      bool    `json:"loop"`
}

// ResizerConfig holds configuration for training-data preprocessing
type ResizerConfig struct {
	InputPath  string   `json:"input_path"`
	OutputPath string   `json:"output_path"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Extensions []string `json:"extensions"`
	Quality    int      `json:"quality"`
	Fit        string   `json:"fit"`
	Naming     string   `json:"naming"`
	Workers    int      `json:"workers"`
}

// LogConfig holds configuration for the logger
type LogConfig struct {
	Level   string `json:"level"`
	NoColor bool   `json:"no_color"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			PollIntervalMs: 300,
			TargetFPS:      10,
			InputSize:      224,
			Backend:        "ollama",
			Model:          "openbmb/minicpm-v4.5",
			URL:            "",
		},
		Camera: CameraConfig{
			Device:    0,
			FramesDir: "",
			FPS:       30,
			Loop:      false,
		},
		Resizer: ResizerConfig{
			InputPath:  "input",
			OutputPath: "train-images",
			Width:      224,
			Height:     224,
			Extensions: append([]string(nil), utils.DefaultImageExtensions...),
			Quality:    80,
			Fit:        string(processing.FitCover),
			Naming:     string(utils.NamingLastDot),
			Workers:    runtime.NumCPU(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// PollInterval returns the debounce interval as a duration
func (d DetectorConfig) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalMs) * time.Millisecond
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename when it exists and falls back to defaults otherwise
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFromFile(filename)
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Detector.PollIntervalMs < 1 {
		return fmt.Errorf("detector.poll_interval_ms must be positive")
	}

	if c.Detector.TargetFPS < 1 || c.Detector.TargetFPS > 60 {
		return fmt.Errorf("detector.target_fps must be between 1 and 60")
	}

	if c.Detector.InputSize < 1 {
		return fmt.Errorf("detector.input_size must be positive")
	}

	switch c.Detector.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("detector.backend must be ollama or llamacpp, got %q", c.Detector.Backend)
	}

	if c.Camera.Device < 0 {
		return fmt.Errorf("camera.device must not be negative")
	}

	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera.fps must be positive")
	}

	if c.Resizer.Width < 1 || c.Resizer.Height < 1 {
		return fmt.Errorf("resizer.width and resizer.height must be positive")
	}

	if len(c.Resizer.Extensions) == 0 {
		return fmt.Errorf("resizer.extensions cannot be empty")
	}

	if c.Resizer.Quality < 1 || c.Resizer.Quality > 100 {
		return fmt.Errorf("resizer.quality must be between 1 and 100")
	}

	if _, err := processing.ParseFit(c.Resizer.Fit); err != nil {
		return fmt.Errorf("resizer.fit: %w", err)
	}

	if _, err := utils.ParseNaming(c.Resizer.Naming); err != nil {
		return fmt.Errorf("resizer.naming: %w", err)
	}

	if c.Resizer.Workers < 1 {
		return fmt.Errorf("resizer.workers must be positive")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// ParseLevel maps a level name to a slog level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "glassescam", "config.json")
}
