package extract

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/formulary/internal/logfields"
)

// TimestampSource reports when a definition file last changed.
type TimestampSource interface {
	ModTime(absPath string, info fs.FileInfo) time.Time
}

// MTimeSource uses the filesystem modification time.
type MTimeSource struct{}

func (MTimeSource) ModTime(_ string, info fs.FileInfo) time.Time { return info.ModTime() }

// GitSource uses the committer time of the newest commit touching a file.
// Files outside a repository, untracked files and lookup failures fall back
// to the modification time.
type GitSource struct {
	repo *git.Repository
	root string
}

// NewGitSource opens the repository containing dir. When dir is not inside a
// repository the returned source always falls back to modification times.
func NewGitSource(dir string) *GitSource {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			slog.Warn("Unable to open git repository, using file modification times",
				logfields.Path(dir), logfields.Error(err))
		}
		return &GitSource{}
	}
	wt, err := repo.Worktree()
	if err != nil {
		slog.Warn("Repository has no worktree, using file modification times",
			logfields.Path(dir), logfields.Error(err))
		return &GitSource{}
	}
	root, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		root = wt.Filesystem.Root()
	}
	return &GitSource{repo: repo, root: root}
}

func (g *GitSource) ModTime(absPath string, info fs.FileInfo) time.Time {
	if g.repo == nil {
		return info.ModTime()
	}
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolved = absPath
	}
	rel, err := filepath.Rel(g.root, resolved)
	if err != nil {
		return info.ModTime()
	}
	rel = filepath.ToSlash(rel)
	iter, err := g.repo.Log(&git.LogOptions{FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		return info.ModTime()
	}
	defer iter.Close()
	commit, err := iter.Next()
	if err != nil || commit == nil {
		return info.ModTime()
	}
	return commit.Committer.When
}
