package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/formulary/internal/util/sets"
)

// Targets lists what the watcher observes. Directories are walked
// recursively; files are watched individually and may not exist yet.
type Targets struct {
	Dirs  []string
	Files []string
}

// scan walks the targets and returns the newest modification time together
// with the watched regular files, sorted.
func scan(t Targets) (time.Time, []string) {
	var latest time.Time
	seen := sets.New[string]()
	var files []string
	observe := func(path string, info fs.FileInfo) {
		if !info.Mode().IsRegular() {
			return
		}
		if seen.Add(path) {
			files = append(files, path)
		}
		if mt := info.ModTime(); mt.After(latest) {
			latest = mt
		}
	}

	for _, dir := range t.Dirs {
		if dir == "" {
			continue
		}
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && path != dir {
					return filepath.SkipDir
				}
				return nil
			}
			if path != dir && shouldIgnore(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			observe(path, info)
			return nil
		})
	}
	for _, f := range t.Files {
		if f == "" {
			continue
		}
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		observe(f, info)
	}
	sort.Strings(files)
	return latest, files
}

// shouldIgnore returns true for paths that must not trigger rebuilds: hidden
// entries, editor swap and backup files, and OS metadata files.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, ".tmp") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) {
		return true
	}
	return base == "Thumbs.db" || base == "4913"
}
