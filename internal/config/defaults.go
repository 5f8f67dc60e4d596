package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/formulary/internal/retry"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// SiteDefaultApplier handles Site configuration defaults.
type SiteDefaultApplier struct{}

func (s *SiteDefaultApplier) Domain() string { return "site" }

func (s *SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Site.Name == "" {
		name := filepath.Base(cfg.BaseDir)
		if name == "" || name == "." || name == string(filepath.Separator) {
			name = "formulary"
		}
		cfg.Site.Name = name
	}
	if cfg.Site.Title == "" {
		cfg.Site.Title = cfg.Site.Name
	}
	cfg.Site.BaseURL = strings.TrimRight(cfg.Site.BaseURL, "/")
	return nil
}

// PathsDefaultApplier handles input and output location defaults.
type PathsDefaultApplier struct{}

func (p *PathsDefaultApplier) Domain() string { return "paths" }

func (p *PathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Paths.Source == "" {
		cfg.Paths.Source = "Formula"
	}
	if cfg.Paths.Templates == "" {
		cfg.Paths.Templates = "templates"
	}
	if cfg.Paths.Style == "" {
		cfg.Paths.Style = "src/style.css"
	}
	if cfg.Paths.Script == "" {
		cfg.Paths.Script = "src/script.js"
	}
	if cfg.Paths.Assets == "" {
		cfg.Paths.Assets = "assets"
	}
	if cfg.Paths.Output == "" {
		cfg.Paths.Output = "site"
	}
	if cfg.Paths.Data == "" {
		cfg.Paths.Data = "data/packages.json"
	}
	return nil
}

// ExtractDefaultApplier handles extraction defaults.
type ExtractDefaultApplier struct{}

func (e *ExtractDefaultApplier) Domain() string { return "extract" }

func (e *ExtractDefaultApplier) ApplyDefaults(cfg *Config) error {
	if len(cfg.Extract.Extensions) == 0 {
		cfg.Extract.Extensions = []string{".rb"}
	}
	for i, ext := range cfg.Extract.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Extract.Extensions[i] = ext
	}
	if cfg.Extract.Timestamps == "" {
		cfg.Extract.Timestamps = TimestampsMTime
	}
	return nil
}

// ServeDefaultApplier handles preview server defaults.
type ServeDefaultApplier struct{}

func (s *ServeDefaultApplier) Domain() string { return "serve" }

func (s *ServeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Serve.Host == "" {
		cfg.Serve.Host = "127.0.0.1"
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = 4000
	}
	return nil
}

// WatchDefaultApplier handles watcher timing defaults.
type WatchDefaultApplier struct{}

func (w *WatchDefaultApplier) Domain() string { return "watch" }

func (w *WatchDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.PollInterval <= 0 {
		cfg.Watch.PollInterval = time.Second
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = time.Second
	}
	if cfg.Watch.ErrorBackoff == 0 {
		cfg.Watch.ErrorBackoff = 2 * time.Second
	}
	if cfg.Watch.BackoffMode == "" {
		cfg.Watch.BackoffMode = retry.ModeFixed
	}
	if cfg.Watch.MaxBackoff == 0 {
		cfg.Watch.MaxBackoff = 30 * time.Second
	}
	return nil
}

// ObservabilityDefaultApplier handles logging and metrics defaults.
type ObservabilityDefaultApplier struct{}

func (o *ObservabilityDefaultApplier) Domain() string { return "observability" }

func (o *ObservabilityDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/_metrics"
	}
	return nil
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&SiteDefaultApplier{},
		&PathsDefaultApplier{},
		&ExtractDefaultApplier{},
		&ServeDefaultApplier{},
		&WatchDefaultApplier{},
		&ObservabilityDefaultApplier{},
	}
}

func applyDefaults(cfg *Config) error {
	for _, applier := range defaultAppliers() {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("%s defaults: %w", applier.Domain(), err)
		}
	}
	return nil
}
