package render

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// siteWriter writes files below a root directory and remembers what it wrote.
type siteWriter struct {
	root    string
	written []string
}

// resolve maps a slash-separated site path to a filesystem path under root.
func (w *siteWriter) resolve(rel string) (string, error) {
	if rel == "" {
		return "", errors.New("output path is required")
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path %q escapes the site directory", rel)
	}
	return filepath.Join(w.root, clean), nil
}

// WriteFile stores data at the site-relative path rel.
func (w *siteWriter) WriteFile(rel string, data []byte) error {
	full, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	// #nosec G306 -- generated site files are meant to be world readable.
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	w.written = append(w.written, filepath.ToSlash(filepath.Clean(rel)))
	return nil
}

// CopyTree copies every regular file under src to the site-relative directory
// dest, preserving relative layout and file modes. It returns the number of
// files copied. A missing src copies nothing.
func (w *siteWriter) CopyTree(src, dest string) (int, error) {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target, err := w.resolve(filepath.ToSlash(filepath.Join(dest, rel)))
		if err != nil {
			return err
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		w.written = append(w.written, filepath.ToSlash(filepath.Join(dest, rel)))
		copied++
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("copy %s: %w", src, err)
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode().Perm())
}
