package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
	"git.home.luguber.info/inful/formulary/internal/timefmt"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestRunExtractsSortedRecords(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "example-tool.rb", exampleDefinition)
	writeFile(t, root, "nested/alpha.rb", "class Alpha < Formula\n  desc \"first\"\nend\n")
	writeFile(t, root, "no-class.rb", "# helper script\n")
	writeFile(t, root, "README.md", "class Ignored < Formula\n")
	writeFile(t, root, ".hidden.rb", "class Hidden < Formula\n")
	writeFile(t, root, ".git/objects/x.rb", "class InGit < Formula\n")

	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "example-tool.rb"), mtime, mtime))
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	set, stats, err := New(root, "demo", WithClock(timefmt.FixedClock(now))).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{FilesScanned: 3, Records: 2, Skipped: 1}, stats)
	require.Equal(t, 2, set.Count)
	assert.Equal(t, "demo", set.SourceName)
	assert.Equal(t, "2024-06-01T00:00:00Z", set.GeneratedAt)
	assert.Equal(t, "alpha", set.Records[0].Name)
	assert.Equal(t, "nested/alpha.rb", set.Records[0].RelativeFilePath)
	assert.Equal(t, []string{}, set.Records[0].Dependencies)

	tool := set.Records[1]
	assert.Equal(t, "example-tool", tool.Name)
	assert.Equal(t, "ExampleTool", tool.DeclaredTypeName)
	assert.Equal(t, "2.3.1", tool.Version)
	assert.Equal(t, "2024-03-01T12:00:00Z", tool.LastModifiedTimestamp)
}

func TestRunDuplicateNamesLastWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/tool.rb", "class Tool < Formula\n  desc \"from a\"\nend\n")
	writeFile(t, root, "b/tool.rb", "class Tool < Formula\n  desc \"from b\"\nend\n")

	set, stats, err := New(root, "demo").Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Duplicates)
	require.Len(t, set.Records, 1)
	assert.Equal(t, "from b", set.Records[0].Description)
	assert.Equal(t, "b/tool.rb", set.Records[0].RelativeFilePath)
}

func TestRunCustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "one.rb", "class One < Formula\n")
	writeFile(t, root, "two.formula", "class Two < Formula\n")

	set, _, err := New(root, "demo", WithExtensions(".formula")).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Records, 1)
	assert.Equal(t, "two", set.Records[0].Name)
}

func TestRunMissingRoot(t *testing.T) {
	_, _, err := New(filepath.Join(t.TempDir(), "missing"), "demo").Run(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryExtract))
}

func TestRunEmptyRoot(t *testing.T) {
	set, stats, err := New(t.TempDir(), "demo").Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, set.Count)
	assert.NotNil(t, set.Records)
	assert.Zero(t, stats.FilesScanned)
}

func TestRunCanceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "one.rb", "class One < Formula\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := New(root, "demo").Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGitSourceUsesCommitTime(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	writeFile(t, root, "Formula/tracked.rb", "class Tracked < Formula\n")
	untracked := writeFile(t, root, "Formula/untracked.rb", "class Untracked < Formula\n")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("Formula/tracked.rb")
	require.NoError(t, err)
	committed := time.Date(2023, 7, 4, 9, 30, 0, 0, time.UTC)
	_, err = wt.Commit("add tracked", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: committed},
	})
	require.NoError(t, err)

	mtime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(untracked, mtime, mtime))

	src := NewGitSource(filepath.Join(root, "Formula"))
	set, _, err := New(filepath.Join(root, "Formula"), "demo", WithTimestampSource(src)).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Records, 2)

	byName := map[string]string{}
	for _, r := range set.Records {
		byName[r.Name] = r.LastModifiedTimestamp
	}
	assert.Equal(t, "2023-07-04T09:30:00Z", byName["tracked"])
	assert.Equal(t, "2024-01-01T00:00:00Z", byName["untracked"])
}

func TestGitSourceOutsideRepository(t *testing.T) {
	root := t.TempDir()
	p := writeFile(t, root, "a.rb", "class A < Formula\n")
	mtime := time.Date(2022, 2, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(p, mtime, mtime))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.True(t, NewGitSource(root).ModTime(p, info).Equal(mtime))
}
