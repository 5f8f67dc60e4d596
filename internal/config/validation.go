package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateConfig checks struct tags and the cross-field rules tags cannot express.
func ValidateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ferrors.ValidationError(fmt.Sprintf("invalid config field %s: failed %q", fe.Namespace(), fe.Tag())).
				WithContext("field", fe.Namespace()).
				WithContext("value", fmt.Sprint(fe.Value())).
				Build()
		}
		return ferrors.WrapError(err, ferrors.CategoryValidation, "validate config").Fatal().Build()
	}
	return validateOutputPlacement(cfg)
}

// validateOutputPlacement rejects layouts where cleaning or promoting the
// output directory would destroy inputs.
func validateOutputPlacement(cfg *Config) error {
	out := cfg.Resolve(cfg.Paths.Output)
	if within(out, cfg.BaseDir) {
		return ferrors.ValidationError("output directory must not contain the project directory").
			WithContext("output", out).Build()
	}
	inputs := map[string]string{
		"source":    cfg.Resolve(cfg.Paths.Source),
		"templates": cfg.Resolve(cfg.Paths.Templates),
		"assets":    cfg.Resolve(cfg.Paths.Assets),
	}
	for name, in := range inputs {
		if in == "" {
			continue
		}
		if within(in, out) || within(out, in) {
			return ferrors.ValidationError(fmt.Sprintf("output directory overlaps %s directory", name)).
				WithContext("output", out).
				WithContext(name, in).
				Build()
		}
	}
	if within(out, cfg.Resolve(cfg.Paths.Data)) {
		return ferrors.ValidationError("data file must live outside the output directory").
			WithContext("output", out).
			WithContext("data", cfg.Resolve(cfg.Paths.Data)).
			Build()
	}
	return nil
}

// within reports whether path equals dir or is nested below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
