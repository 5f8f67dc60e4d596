package config

import (
	"git.home.luguber.info/inful/formulary/internal/foundation/normalization"
	"git.home.luguber.info/inful/formulary/internal/retry"
)

// TimestampMode selects where lastModifiedTimestamp comes from.
type TimestampMode string

const (
	// TimestampsMTime uses the file modification time.
	TimestampsMTime TimestampMode = "mtime"
	// TimestampsGit uses the committer time of the last commit touching the file,
	// falling back to mtime outside a repository.
	TimestampsGit TimestampMode = "git"
)

var timestampNormalizer = normalization.NewNormalizer(map[string]TimestampMode{
	"mtime": TimestampsMTime,
	"git":   TimestampsGit,
}, TimestampsMTime)

// NormalizeTimestampMode maps raw input to a TimestampMode, defaulting to mtime.
func NormalizeTimestampMode(raw string) TimestampMode {
	return timestampNormalizer.Normalize(raw)
}

// normalizeConfig case-folds enumerations and returns human-readable warnings
// for values that were not recognized.
func normalizeConfig(cfg *Config) []string {
	var warnings []string
	if raw := string(cfg.Logging.Level); raw != "" {
		if _, err := logLevelNormalizer.Parse(raw); err != nil {
			warnings = append(warnings, "logging.level: "+err.Error())
		}
		cfg.Logging.Level = NormalizeLogLevel(raw)
	}
	if raw := string(cfg.Logging.Format); raw != "" {
		if _, err := logFormatNormalizer.Parse(raw); err != nil {
			warnings = append(warnings, "logging.format: "+err.Error())
		}
		cfg.Logging.Format = NormalizeLogFormat(raw)
	}
	if raw := string(cfg.Extract.Timestamps); raw != "" {
		if _, err := timestampNormalizer.Parse(raw); err != nil {
			warnings = append(warnings, "extract.timestamps: "+err.Error())
		}
		cfg.Extract.Timestamps = NormalizeTimestampMode(raw)
	}
	if raw := string(cfg.Watch.BackoffMode); raw != "" {
		if _, err := retry.ParseMode(raw); err != nil {
			warnings = append(warnings, "watch.backoff_mode: "+err.Error())
		}
		cfg.Watch.BackoffMode = retry.NormalizeMode(raw)
	}
	return warnings
}
