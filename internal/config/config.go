// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Data acquisition modes.
const (
	ModePush = "push"
	ModePoll = "poll"
)

// Output kinds.
const (
	OutputAuto = "auto"
	OutputTUI  = "tui"
	OutputText = "text"
	OutputJSON = "json"
	OutputHTML = "html"
)

// Reconnect controls redialing the streaming endpoint after a drop.
type Reconnect struct {
	Enabled bool          `yaml:"enabled"`
	Delay   time.Duration `yaml:"delay"`
}

// ViewConfig is the root configuration of the viewer.
type ViewConfig struct {
	Origin         string        `yaml:"origin"`
	Mode           string        `yaml:"mode"`
	APIPath        string        `yaml:"api_path"`
	StreamPath     string        `yaml:"stream_path"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	DumpInterval   time.Duration `yaml:"dump_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Output         string        `yaml:"output"`
	HTMLPath       string        `yaml:"html_path"`
	HTMLRefresh    int           `yaml:"html_refresh"`
	BarWidth       int           `yaml:"bar_width"`
	StatusAddr     string        `yaml:"status_addr"`
	LogLevel       string        `yaml:"log_level"`
	LogFile        string        `yaml:"log_file"`
	Reconnect      Reconnect     `yaml:"reconnect"`
}

// Default returns the configuration used when no file is given.
func Default() *ViewConfig {
	return &ViewConfig{
		Origin:       "http://localhost:8081/",
		Mode:         ModePush,
		APIPath:      "/api/cpus",
		StreamPath:   "/rt/cpus",
		PollInterval: 200 * time.Millisecond,
		DumpInterval: time.Second,
		Output:       OutputAuto,
		HTMLPath:     "cpuload.html",
		HTMLRefresh:  1,
		BarWidth:     40,
		LogLevel:     "info",
		Reconnect:    Reconnect{Delay: time.Second},
	}
}

// Load reads a YAML config on top of Default and validates it against a CUE
// schema. An empty configPath returns Default.
func Load(configPath, cueSchemaPath string) (*ViewConfig, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CPULOAD_* environment variables.
func (c *ViewConfig) ApplyEnv() error {
	if v := os.Getenv("CPULOAD_ORIGIN"); v != "" {
		c.Origin = v
	}
	if v := os.Getenv("CPULOAD_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("CPULOAD_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CPULOAD_POLL_INTERVAL: %w", err)
		}
		c.PollInterval = d
	}
	return c.Validate()
}

// Validate checks invariants that hold after every override.
func (c *ViewConfig) Validate() error {
	switch c.Mode {
	case ModePush, ModePoll:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModePush, ModePoll, c.Mode)
	}
	switch c.Output {
	case OutputAuto, OutputTUI, OutputText, OutputJSON, OutputHTML:
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}
	if c.Origin == "" {
		return fmt.Errorf("origin is required")
	}
	if c.PollInterval <= 0 || c.DumpInterval <= 0 {
		return fmt.Errorf("poll and dump intervals must be positive")
	}
	if c.Output == OutputHTML && c.HTMLPath == "" {
		return fmt.Errorf("html output needs html_path")
	}
	return nil
}
