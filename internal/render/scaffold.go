package render

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
)

//go:embed all:defaults
var defaultsFS embed.FS

// ScaffoldTargets maps each part of the default theme to its destination.
// Empty destinations are not written.
type ScaffoldTargets struct {
	TemplatesDir string
	StyleFile    string
	ScriptFile   string
	SourceDir    string
}

// Scaffold writes the default templates, stylesheet, script and an example
// definition. Existing files are only replaced when force is set; otherwise
// nothing is written. It returns the written paths.
func Scaffold(t ScaffoldTargets, force bool) ([]string, error) {
	plan, dests, err := scaffoldPlan(t)
	if err != nil {
		return nil, err
	}
	if !force {
		if err := refuseExisting(dests); err != nil {
			return nil, err
		}
	}

	for _, dest := range dests {
		data, err := defaultsFS.ReadFile(plan[dest])
		if err != nil {
			return nil, ferrors.InternalError("read embedded default").WithCause(err).WithContext("file", plan[dest]).Build()
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, ferrors.FileSystemError("create scaffold directory").WithCause(err).WithContext("path", dest).Build()
		}
		// #nosec G306 -- scaffolded sources are ordinary project files.
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return nil, ferrors.FileSystemError("write scaffold file").WithCause(err).WithContext("path", dest).Build()
		}
	}
	return dests, nil
}

// CheckScaffold reports the error Scaffold would return for existing files
// without writing anything.
func CheckScaffold(t ScaffoldTargets, force bool) error {
	if force {
		return nil
	}
	_, dests, err := scaffoldPlan(t)
	if err != nil {
		return err
	}
	return refuseExisting(dests)
}

// scaffoldPlan maps destination paths to embedded sources; dests is sorted.
func scaffoldPlan(t ScaffoldTargets) (map[string]string, []string, error) {
	plan := map[string]string{}
	if t.TemplatesDir != "" {
		entries, err := fs.ReadDir(defaultsFS, "defaults/templates")
		if err != nil {
			return nil, nil, ferrors.InternalError("read embedded templates").WithCause(err).Build()
		}
		for _, e := range entries {
			plan[filepath.Join(t.TemplatesDir, e.Name())] = path.Join("defaults/templates", e.Name())
		}
	}
	if t.StyleFile != "" {
		plan[t.StyleFile] = "defaults/src/style.css"
	}
	if t.ScriptFile != "" {
		plan[t.ScriptFile] = "defaults/src/script.js"
	}
	if t.SourceDir != "" {
		plan[filepath.Join(t.SourceDir, "example-tool.rb")] = "defaults/Formula/example-tool.rb"
	}

	dests := make([]string, 0, len(plan))
	for dest := range plan {
		dests = append(dests, dest)
	}
	sort.Strings(dests)
	return plan, dests, nil
}

func refuseExisting(dests []string) error {
	for _, dest := range dests {
		if _, err := os.Stat(dest); err == nil {
			return ferrors.ValidationError(fmt.Sprintf("%s already exists (use --force to overwrite)", dest)).
				WithContext("path", dest).Build()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return ferrors.FileSystemError("stat scaffold target").WithCause(err).WithContext("path", dest).Build()
		}
	}
	return nil
}
