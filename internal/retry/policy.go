// Package retry computes backoff delays after consecutive failures.
package retry

import (
	"time"

	"git.home.luguber.info/inful/formulary/internal/foundation/errors"
	"git.home.luguber.info/inful/formulary/internal/foundation/normalization"
)

// Mode selects how the delay grows with consecutive failures.
type Mode string

const (
	ModeFixed       Mode = "fixed"
	ModeLinear      Mode = "linear"
	ModeExponential Mode = "exponential"
)

var modeNormalizer = normalization.NewNormalizer(map[string]Mode{
	"fixed":       ModeFixed,
	"linear":      ModeLinear,
	"exponential": ModeExponential,
}, ModeFixed)

// NormalizeMode maps raw input to a Mode, defaulting to fixed.
func NormalizeMode(raw string) Mode {
	return modeNormalizer.Normalize(raw)
}

// ParseMode is NormalizeMode that reports unknown spellings.
func ParseMode(raw string) (Mode, error) {
	return modeNormalizer.Parse(raw)
}

// Policy encapsulates backoff settings. It is immutable after construction.
type Policy struct {
	Mode    Mode          // fixed|linear|exponential
	Initial time.Duration // base delay
	Max     time.Duration // cap for growth
}

// DefaultPolicy returns a fixed 2s backoff capped at 30s.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeFixed, Initial: 2 * time.Second, Max: 30 * time.Second}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
// A zero initial delay is kept: it disables the pause entirely.
func NewPolicy(mode Mode, initial, maxDuration time.Duration) Policy {
	p := DefaultPolicy()
	if initial >= 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case ModeFixed, ModeLinear, ModeExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the pause after the given number of consecutive failures (1-based).
func (p Policy) Delay(failures int) time.Duration {
	if failures <= 0 || p.Initial <= 0 {
		return 0
	}
	switch p.Mode {
	case ModeLinear:
		d := time.Duration(failures) * p.Initial
		return min(d, p.Max)
	case ModeExponential:
		d := p.Initial
		for i := 1; i < failures && d < p.Max; i++ {
			d *= 2
		}
		return min(d, p.Max)
	default:
		return p.Initial
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial < 0 {
		return errors.ValidationError("backoff initial delay cannot be negative").Build()
	}
	if p.Max <= 0 {
		return errors.ValidationError("backoff max must be >0").Build()
	}
	if p.Initial > p.Max {
		return errors.ValidationError("backoff initial delay exceeds max").Build()
	}
	return nil
}
