package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the static application configuration loaded at startup.
// Mutable runtime state (cameras, detection settings) lives in the Store.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Storage   StorageConfig   `yaml:"storage"`
	Detection DetectionConfig `yaml:"detection"`
}

type ServerConfig struct {
	HTTPPort   int  `yaml:"http_port"`
	Production bool `yaml:"production"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

type TelegramConfig struct {
	Token      string `yaml:"token"`
	ChatID     string `yaml:"chat_id"`
	TimeoutSec int    `yaml:"timeout"`
}

type StorageConfig struct {
	RuntimeFile  string `yaml:"runtime_file"`
	DatabasePath string `yaml:"database_path"`
}

// DetectionConfig provides defaults for a fresh runtime store. Once the
// runtime file exists its values win. Booleans are pointers so an omitted
// key falls back to the built-in default instead of false.
type DetectionConfig struct {
	Enabled          *bool  `yaml:"enabled"`
	Mode             string `yaml:"mode"`
	Threshold        int    `yaml:"threshold"`
	MinContourArea   int    `yaml:"min_contour_area"`
	CooldownSeconds  int    `yaml:"cooldown"`
	CooldownScope    string `yaml:"cooldown_scope"`
	CheckIntervalSec int    `yaml:"check_interval"`
	TimeoutSec       int    `yaml:"timeout"`
	DrawContours     *bool  `yaml:"draw_contours"`
	ContourColor     []int  `yaml:"contour_color"`
	ContourThickness int    `yaml:"contour_thickness"`
}

// LoadConfig reads and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks the static configuration values.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}

	if c.Storage.RuntimeFile == "" {
		return fmt.Errorf("storage.runtime_file must be set")
	}

	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path must be set")
	}

	return nil
}

// DetectionDefaults converts the YAML detection section into runtime
// settings, falling back to built-in defaults for missing fields.
func (c *Config) DetectionDefaults() DetectionSettings {
	d := DefaultDetectionSettings()

	if c.Detection.Enabled != nil {
		d.Enabled = *c.Detection.Enabled
	}
	if c.Detection.Mode != "" {
		d.Mode = DetectionMode(c.Detection.Mode)
	}
	if c.Detection.Threshold != 0 {
		d.Threshold = c.Detection.Threshold
	}
	if c.Detection.MinContourArea != 0 {
		d.MinContourArea = c.Detection.MinContourArea
	}
	if c.Detection.CooldownSeconds != 0 {
		d.CooldownSeconds = c.Detection.CooldownSeconds
	}
	if c.Detection.CooldownScope != "" {
		d.CooldownScope = CooldownScope(c.Detection.CooldownScope)
	}
	if c.Detection.CheckIntervalSec != 0 {
		d.CheckIntervalSec = c.Detection.CheckIntervalSec
	}
	if c.Detection.TimeoutSec != 0 {
		d.TimeoutSec = c.Detection.TimeoutSec
	}
	if c.Detection.DrawContours != nil {
		d.DrawContours = *c.Detection.DrawContours
	}
	if len(c.Detection.ContourColor) == 3 {
		for i, v := range c.Detection.ContourColor {
			d.ContourColor[i] = uint8(clampInt(v, 0, 255))
		}
	}
	if c.Detection.ContourThickness != 0 {
		d.ContourThickness = c.Detection.ContourThickness
	}

	d.Normalize()
	return d
}
