// Package config loads the service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ─── Sections ───────────────────────────────────────────────────────────

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
	UploadDir string `yaml:"upload_dir"`
	// MaxUploadMB bounds the multipart body accepted by the upload handler.
	MaxUploadMB int64 `yaml:"max_upload_mb"`
}

type DatasetConfig struct {
	Dir      string `yaml:"dir"`
	Manifest string `yaml:"manifest"`
	Cache    bool   `yaml:"cache"`
}

type DetectorConfig struct {
	ScriptPath      string        `yaml:"script_path"`
	PythonPath      string        `yaml:"python_path"`
	ModelComplexity int           `yaml:"model_complexity"`
	MinConfidence   float64       `yaml:"min_confidence"`
	MinTrackingConf float64       `yaml:"min_tracking_confidence"`
	StaticImageMode bool          `yaml:"static_image_mode"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	// Mock replaces MediaPipe with a detector that never finds a pose.
	Mock bool `yaml:"mock"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
	// Disabled turns off check history.
	Disabled bool `yaml:"disabled"`
}

// Config is the top-level structure for asana.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Detector DetectorConfig `yaml:"detector"`
	Store    StoreConfig    `yaml:"store"`
}

// ─── Defaults ───────────────────────────────────────────────────────────

// HomeDir returns the data directory, ~/.asana, falling back to ./.asana
// when the home directory is unknown.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".asana"
	}
	return filepath.Join(home, ".asana")
}

// Default returns a configuration with every value filled in.
func Default() *Config {
	base := HomeDir()
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			UploadDir:   filepath.Join(base, "uploads"),
			MaxUploadMB: 64,
		},
		Dataset: DatasetConfig{
			Dir: filepath.Join(base, "dataset"),
		},
		Detector: DetectorConfig{
			ModelComplexity: 1,
			MinConfidence:   0.5,
			MinTrackingConf: 0.5,
			IdleTimeout:     30 * time.Second,
		},
		Store: StoreConfig{
			Path: filepath.Join(base, "asana.db"),
		},
	}
}

// ─── Loaders ────────────────────────────────────────────────────────────

// Load reads asana.yaml on top of Default. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Dataset.Dir == "" && c.Dataset.Manifest == "" {
		return fmt.Errorf("config: dataset.dir or dataset.manifest is required")
	}
	if c.Detector.ModelComplexity < 0 || c.Detector.ModelComplexity > 2 {
		return fmt.Errorf("config: detector.model_complexity must be 0, 1 or 2, got %d", c.Detector.ModelComplexity)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("config: detector.min_confidence must be within [0, 1], got %v", c.Detector.MinConfidence)
	}
	if c.Detector.MinTrackingConf < 0 || c.Detector.MinTrackingConf > 1 {
		return fmt.Errorf("config: detector.min_tracking_confidence must be within [0, 1], got %v", c.Detector.MinTrackingConf)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("config: server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}
