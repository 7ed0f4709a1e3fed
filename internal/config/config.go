// Package config loads config-puller configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (CONFIG_PULLER_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. the path given with --config
//  2. .config-puller.yaml in current directory
//  3. ~/.config/config-puller/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timvw/config-puller/internal/artifact"
	"github.com/timvw/config-puller/internal/executor"
	"github.com/timvw/config-puller/internal/model"
	"github.com/timvw/config-puller/internal/readiness"
)

// Config holds all config-puller configuration.
type Config struct {
	// Console
	Port             string `yaml:"port"`
	Hostname         string `yaml:"hostname"`
	BaudRate         int    `yaml:"baud_rate"`
	ReadTimeout      string `yaml:"read_timeout"`      // Go duration string, e.g. "5s"
	ReadinessTimeout string `yaml:"readiness_timeout"` // Go duration string, e.g. "60s"
	MaxEmptyReads    int    `yaml:"max_empty_reads"`

	// Extraction
	Output   string   `yaml:"output"`
	Commands []string `yaml:"commands"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console or json

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// Parsed durations (not from YAML, set after loading)
	ReadTimeoutDuration      time.Duration `yaml:"-"`
	ReadinessTimeoutDuration time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// DefaultPort returns the conventional first serial port for this OS.
func DefaultPort() string {
	if runtime.GOOS == "windows" {
		return "COM1"
	}
	return "/dev/ttyUSB0"
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Port:             DefaultPort(),
		Hostname:         "Router",
		BaudRate:         model.DefaultBaudRate,
		ReadTimeout:      model.DefaultReadTimeout.String(),
		ReadinessTimeout: readiness.DefaultTimeout.String(),
		MaxEmptyReads:    executor.DefaultMaxEmptyReads,
		Output:           artifact.DefaultPath,
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

// Load reads configuration from file and environment variables.
// explicitPath, when set, must exist. Environment variables always
// override file values.
func Load(explicitPath string) (*Config, error) {
	cfg := Defaults()

	path, data, err := findConfigFile(explicitPath)
	switch {
	case err == nil:
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	case explicitPath != "":
		return nil, err
	}

	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}

	cfg.ReadTimeoutDuration, err = parsePositiveDuration(cfg.ReadTimeout, model.DefaultReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", cfg.ReadTimeout, err)
	}
	cfg.ReadinessTimeoutDuration, err = parsePositiveDuration(cfg.ReadinessTimeout, readiness.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid readiness timeout %q: %w", cfg.ReadinessTimeout, err)
	}
	if cfg.MaxEmptyReads <= 0 {
		return nil, fmt.Errorf("max_empty_reads must be positive, got %d", cfg.MaxEmptyReads)
	}

	return cfg, nil
}

// Connection returns the console connection settings.
func (c *Config) Connection() model.ConnectionConfig {
	return model.ConnectionConfig{
		Port:        c.Port,
		BaudRate:    c.BaudRate,
		ReadTimeout: c.ReadTimeoutDuration,
		Hostname:    c.Hostname,
	}
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile(explicitPath string) (string, []byte, error) {
	if explicitPath != "" {
		data, err := os.ReadFile(explicitPath)
		if err != nil {
			return "", nil, fmt.Errorf("reading config file: %w", err)
		}
		return explicitPath, data, nil
	}

	if data, err := os.ReadFile(".config-puller.yaml"); err == nil {
		return ".config-puller.yaml", data, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "config-puller", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Port != "" {
		cfg.Port = file.Port
	}
	if file.Hostname != "" {
		cfg.Hostname = file.Hostname
	}
	if file.BaudRate > 0 {
		cfg.BaudRate = file.BaudRate
	}
	if file.ReadTimeout != "" {
		cfg.ReadTimeout = file.ReadTimeout
	}
	if file.ReadinessTimeout != "" {
		cfg.ReadinessTimeout = file.ReadinessTimeout
	}
	if file.MaxEmptyReads > 0 {
		cfg.MaxEmptyReads = file.MaxEmptyReads
	}
	if file.Output != "" {
		cfg.Output = file.Output
	}
	if len(file.Commands) > 0 {
		cfg.Commands = file.Commands
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		cfg.LogFormat = file.LogFormat
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	if v := os.Getenv("CONFIG_PULLER_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("CONFIG_PULLER_HOSTNAME"); v != "" {
		cfg.Hostname = v
	}
	if v := os.Getenv("CONFIG_PULLER_BAUD_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid CONFIG_PULLER_BAUD_RATE %q", v)
		}
		cfg.BaudRate = n
	}
	if v := os.Getenv("CONFIG_PULLER_READ_TIMEOUT"); v != "" {
		cfg.ReadTimeout = v
	}
	if v := os.Getenv("CONFIG_PULLER_READINESS_TIMEOUT"); v != "" {
		cfg.ReadinessTimeout = v
	}
	if v := os.Getenv("CONFIG_PULLER_MAX_EMPTY_READS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CONFIG_PULLER_MAX_EMPTY_READS %q", v)
		}
		cfg.MaxEmptyReads = n
	}
	if v := os.Getenv("CONFIG_PULLER_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("CONFIG_PULLER_COMMANDS"); v != "" {
		cfg.Commands = SplitCommands(v)
	}
	if v := os.Getenv("CONFIG_PULLER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CONFIG_PULLER_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
	return nil
}

// SplitCommands splits a semicolon-separated command list, dropping blanks.
func SplitCommands(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ";") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// parsePositiveDuration parses a duration string. Empty string returns
// the fallback; zero and negative durations are rejected.
func parsePositiveDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}
