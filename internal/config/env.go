package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/formulary/internal/logfields"
)

// Environment variables that override values from the config file.
const (
	EnvLogLevel  = "FORMULARY_LOG_LEVEL"
	EnvLogFormat = "FORMULARY_LOG_FORMAT"
	EnvOutput    = "FORMULARY_OUTPUT"
	EnvHost      = "FORMULARY_HOST"
	EnvPort      = "FORMULARY_PORT"
)

// envFileNames are loaded from the config directory, in order.
// Variables already present in the environment are never overridden.
var envFileNames = []string{".env", ".env.local"}

// EnvFiles returns the env files considered for a config located in dir.
func EnvFiles(dir string) []string {
	out := make([]string, 0, len(envFileNames))
	for _, name := range envFileNames {
		out = append(out, filepath.Join(dir, name))
	}
	return out
}

func loadEnvFiles(dir string) {
	for _, p := range EnvFiles(dir) {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		// godotenv.Load leaves existing variables untouched.
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(p), logfields.Error(err))
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = LogLevel(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = LogFormat(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutput)); v != "" {
		cfg.Paths.Output = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHost)); v != "" {
		cfg.Serve.Host = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Serve.Port = port
		}
	}
}
