package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
)

func TestScaffold(t *testing.T) {
	dir := t.TempDir()
	targets := ScaffoldTargets{
		TemplatesDir: filepath.Join(dir, "templates"),
		StyleFile:    filepath.Join(dir, "src", "style.css"),
		ScriptFile:   filepath.Join(dir, "src", "script.js"),
		SourceDir:    filepath.Join(dir, "Formula"),
	}
	written, err := Scaffold(targets, false)
	require.NoError(t, err)
	assert.Contains(t, written, filepath.Join(dir, "templates", "_package-card.tmpl"))
	assert.Contains(t, written, filepath.Join(dir, "Formula", "example-tool.rb"))
	for _, name := range RequiredTemplates {
		assert.FileExists(t, filepath.Join(targets.TemplatesDir, name))
	}

	_, err = Scaffold(targets, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	require.NoError(t, os.WriteFile(targets.StyleFile, []byte("custom"), 0o644))
	_, err = Scaffold(targets, true)
	require.NoError(t, err)
	data, err := os.ReadFile(targets.StyleFile)
	require.NoError(t, err)
	assert.NotEqual(t, "custom", string(data))
}

func TestCheckScaffold(t *testing.T) {
	dir := t.TempDir()
	targets := ScaffoldTargets{StyleFile: filepath.Join(dir, "style.css")}
	require.NoError(t, CheckScaffold(targets, false))

	require.NoError(t, os.WriteFile(targets.StyleFile, []byte("custom"), 0o644))
	err := CheckScaffold(targets, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	assert.NoError(t, CheckScaffold(targets, true))
}
