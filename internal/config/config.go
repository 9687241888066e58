package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	InputPath      string  `yaml:"input" toml:"input"`
	OutputDir      string  `yaml:"output_dir" toml:"output_dir"`
	Tolerance      int     `yaml:"tolerance" toml:"tolerance"`
	Scale          float64 `yaml:"scale" toml:"scale"`
	ViewportWidth  int     `yaml:"viewport_width" toml:"viewport_width"`
	CaptureTimeout string  `yaml:"capture_timeout" toml:"capture_timeout"`
	LoadTimeout    string  `yaml:"load_timeout" toml:"load_timeout"`
	FallbackOnly   bool    `yaml:"fallback_only" toml:"fallback_only"`
	Preview        bool    `yaml:"preview" toml:"preview"`
	FontPath       string  `yaml:"font_path" toml:"font_path"`
	Workers        int     `yaml:"workers" toml:"workers"`
	ShowStats      bool    `yaml:"show_stats" toml:"show_stats"`
	Verbose        bool    `yaml:"verbose" toml:"verbose"`
	BuildVersion   string  `yaml:"-" toml:"-"`
}

// Default возвращает настройки самого редактора: масштаб 2x, допуск 8 и
// колонку превью 512px (max-w-lg).
func Default() *Config {
	return &Config{
		OutputDir:     "output",
		Tolerance:     8,
		Scale:         2,
		ViewportWidth: 512,
		Workers:       1,
	}
}

// Load читает YAML или TOML поверх значений по умолчанию. Формат
// определяется по расширению.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Tolerance < 0 || c.Tolerance > 255 {
		return fmt.Errorf("tolerance must be within 0..255, got %d", c.Tolerance)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %g", c.Scale)
	}
	if c.ViewportWidth <= 0 {
		return fmt.Errorf("viewport width must be positive, got %d", c.ViewportWidth)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if _, err := c.CaptureTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.LoadTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// CaptureTimeoutDuration возвращает ноль, если таймаут не задан.
func (c *Config) CaptureTimeoutDuration() (time.Duration, error) {
	return parseTimeout("capture_timeout", c.CaptureTimeout)
}

// LoadTimeoutDuration возвращает ноль, если таймаут не задан.
func (c *Config) LoadTimeoutDuration() (time.Duration, error) {
	return parseTimeout("load_timeout", c.LoadTimeout)
}

func parseTimeout(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}
