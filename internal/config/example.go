package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
)

// ExampleYAML is the config written by `formulary init`.
const ExampleYAML = `# formulary configuration
site:
  name: my-tap
  title: My Tap
  description: Packages available from this tap.
  # base_url: https://example.com/tap
  # intro_file: INTRO.md

paths:
  source: Formula
  templates: templates
  style: src/style.css
  script: src/script.js
  assets: assets
  output: site
  data: data/packages.json

extract:
  extensions: [".rb"]
  timestamps: mtime # or git

serve:
  host: 127.0.0.1
  port: 4000

watch:
  poll_interval: 1s
  debounce: 1s
  error_backoff: 2s
  backoff_mode: fixed # linear or exponential grow the pause after repeated failures
  max_backoff: 30s
  notify: true

logging:
  level: ${FORMULARY_LOG_LEVEL}
  format: text

metrics:
  enabled: false
  path: /_metrics
`

// WriteExample writes ExampleYAML to path. An existing file is only replaced when force is set.
func WriteExample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return ferrors.ValidationError("config file already exists (use --force to overwrite)").
				WithContext("path", path).Build()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return ferrors.FileSystemError("stat config file").WithCause(err).WithContext("path", path).Build()
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return ferrors.FileSystemError("create config directory").WithCause(err).Build()
	}
	if err := os.WriteFile(path, []byte(ExampleYAML), 0o600); err != nil {
		return ferrors.FileSystemError("write config file").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}
