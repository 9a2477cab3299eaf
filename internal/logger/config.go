package logger

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level" env:"LOG_LEVEL"`
	ConsoleEnabled *bool  `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format" env:"LOG_CONSOLE_FORMAT"`
	FileEnabled    bool   `yaml:"file_enabled" env:"LOG_FILE_ENABLED"`
	FilePath       string `yaml:"file_path" env:"LOG_FILE_PATH"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// fileConfig wraps the Config for YAML parsing
type fileConfig struct {
	Logging Config `yaml:"logging"`
}

// DefaultConfig returns console-only text logging at INFO.
func DefaultConfig() Config {
	enabled := true
	return Config{
		Level:          "INFO",
		ConsoleEnabled: &enabled,
		ConsoleFormat:  "text",
		FileEnabled:    false,
		FilePath:       "logs/riftsim.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// Console reports whether console output is enabled. Unset means enabled.
func (c Config) Console() bool {
	return c.ConsoleEnabled == nil || *c.ConsoleEnabled
}

// LoadConfig reads the logging section of a YAML file and applies
// LOG_* environment overrides. A missing or unreadable file silently
// falls back to defaults; only a bad environment value is an error.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err == nil {
				config.merge(fc.Logging)
			}
		}
	}

	if err := env.Parse(&config); err != nil {
		return config, fmt.Errorf("parse logging env: %w", err)
	}

	return config, nil
}

// merge copies the fields that were set in the file over the defaults.
func (c *Config) merge(loaded Config) {
	if loaded.Level != "" {
		c.Level = loaded.Level
	}
	if loaded.ConsoleEnabled != nil {
		c.ConsoleEnabled = loaded.ConsoleEnabled
	}
	if loaded.ConsoleFormat != "" {
		c.ConsoleFormat = loaded.ConsoleFormat
	}
	c.FileEnabled = loaded.FileEnabled
	if loaded.FilePath != "" {
		c.FilePath = loaded.FilePath
	}
	if loaded.FileFormat != "" {
		c.FileFormat = loaded.FileFormat
	}
	if loaded.FileMaxSizeMB > 0 {
		c.FileMaxSizeMB = loaded.FileMaxSizeMB
	}
	if loaded.FileMaxBackups > 0 {
		c.FileMaxBackups = loaded.FileMaxBackups
	}
	if loaded.FileMaxAgeDays > 0 {
		c.FileMaxAgeDays = loaded.FileMaxAgeDays
	}
}
