// Package config loads, defaults and validates formulary configuration.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
	"git.home.luguber.info/inful/formulary/internal/retry"
)

// DefaultConfigFile is the config file name used when -c is not given.
const DefaultConfigFile = "formulary.yaml"

// Config is the complete formulary configuration. Every component receives the
// pieces it needs at construction; nothing reads package-level paths.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Paths   PathsConfig   `yaml:"paths"`
	Extract ExtractConfig `yaml:"extract"`
	Serve   ServeConfig   `yaml:"serve"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`

	// BaseDir anchors relative paths. It is the directory of the loaded config
	// file, or the working directory when no file exists.
	BaseDir string `yaml:"-"`
	// File is the config file that was loaded, empty when defaults were used.
	File string `yaml:"-"`
}

// SiteConfig describes the generated site.
type SiteConfig struct {
	Name        string `yaml:"name" validate:"required"` // recorded as sourceName in the record set
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
	IntroFile   string `yaml:"intro_file"` // optional Markdown shown on the index page
}

// PathsConfig locates inputs and outputs.
type PathsConfig struct {
	Source    string `yaml:"source" validate:"required"`
	Templates string `yaml:"templates" validate:"required"`
	Style     string `yaml:"style"`
	Script    string `yaml:"script"`
	Assets    string `yaml:"assets"`
	Output    string `yaml:"output" validate:"required"`
	Data      string `yaml:"data" validate:"required"`
}

// ExtractConfig tunes definition file discovery.
type ExtractConfig struct {
	Extensions []string      `yaml:"extensions" validate:"required,min=1,dive,startswith=."`
	Timestamps TimestampMode `yaml:"timestamps"`
}

// ServeConfig configures the local preview server.
type ServeConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

// WatchConfig configures the change watcher.
type WatchConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`
	Debounce     time.Duration `yaml:"debounce" validate:"gte=0"`
	ErrorBackoff time.Duration `yaml:"error_backoff" validate:"gte=0"`
	// BackoffMode grows the pause across consecutive failed rebuilds (fixed|linear|exponential).
	BackoffMode retry.Mode    `yaml:"backoff_mode"`
	MaxBackoff  time.Duration `yaml:"max_backoff" validate:"gte=0"`
	// Notify enables fsnotify wakeups on top of polling. Nil means enabled.
	Notify *bool `yaml:"notify"`
	// Files are extra top-level files that trigger rebuilds (the config file and .env are always watched).
	Files []string `yaml:"files"`
}

// BackoffPolicy returns the watcher's error backoff policy.
func (w WatchConfig) BackoffPolicy() retry.Policy {
	return retry.NewPolicy(w.BackoffMode, w.ErrorBackoff, w.MaxBackoff)
}

// NotifyEnabled reports whether fsnotify wakeups should be used.
func (w WatchConfig) NotifyEnabled() bool {
	return w.Notify == nil || *w.Notify
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint exposed by the preview server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"omitempty,startswith=/"`
}

// Load reads configPath, applies .env and environment overrides, normalizes,
// applies defaults, and validates. When the file does not exist and required is
// false, a default configuration anchored at the working directory is returned.
func Load(configPath string, required bool) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	cfg := &Config{}
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !required:
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, ferrors.WrapError(wdErr, ferrors.CategoryConfig, "resolve working directory").Fatal().Build()
		}
		cfg.BaseDir = wd
	case err != nil:
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read config file").
			Fatal().UserAction().WithContext("path", configPath).Build()
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "parse config file").
				Fatal().UserAction().WithContext("path", configPath).Build()
		}
		abs, absErr := filepath.Abs(configPath)
		if absErr != nil {
			return nil, ferrors.WrapError(absErr, ferrors.CategoryConfig, "resolve config path").Fatal().Build()
		}
		cfg.File = abs
		cfg.BaseDir = filepath.Dir(abs)
	}

	applyEnvOverrides(cfg)
	if err := Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a validated configuration with every default applied,
// anchored at baseDir.
func Default(baseDir string) (*Config, error) {
	cfg := &Config{BaseDir: baseDir}
	if err := Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize normalizes enumerations, applies defaults and validates cfg in place.
// Callers that build a Config in code (tests, init) use it instead of Load.
func Finalize(cfg *Config) error {
	for _, w := range normalizeConfig(cfg) {
		slog.Warn("Config value normalized", "detail", w)
	}
	if err := applyDefaults(cfg); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "apply defaults").Fatal().Build()
	}
	return ValidateConfig(cfg)
}

// Resolve turns a configured path into an absolute path anchored at BaseDir.
// Empty input yields empty output so optional paths stay optional.
func (c *Config) Resolve(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.BaseDir, p)
}

// ReportPath is where the build report is written: beside the data file so the
// generated site itself stays byte-identical between runs.
func (c *Config) ReportPath() string {
	return filepath.Join(filepath.Dir(c.Resolve(c.Paths.Data)), "build-report.json")
}
