// Package sitecheck verifies that internal links in a generated site resolve
// to files that exist.
package sitecheck

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// BrokenLink is an internal link whose target is missing.
type BrokenLink struct {
	Page   string `json:"page"`
	Link   Link   `json:"link"`
	Target string `json:"target"`
}

// Result summarizes a check run.
type Result struct {
	Pages  int          `json:"pages"`
	Links  int          `json:"links"`
	Broken []BrokenLink `json:"broken,omitempty"`
}

// Checker walks a site directory.
type Checker struct {
	root     string
	basePath string
}

// New creates a Checker for the site at root. baseURL is the public URL the
// site is published under; absolute links below its path are resolved against
// root.
func New(root, baseURL string) *Checker {
	c := &Checker{root: root, basePath: "/"}
	if u, err := url.Parse(baseURL); err == nil && u.Path != "" {
		c.basePath = strings.TrimSuffix(u.Path, "/") + "/"
	}
	return c
}

// Check parses every HTML page under root and reports internal links that do
// not resolve. Parse failures are reported as errors; missing targets are not.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	var res Result
	var pages []string
	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(p), ".html") {
			rel, err := filepath.Rel(c.root, p)
			if err != nil {
				return err
			}
			pages = append(pages, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	sort.Strings(pages)

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		links, err := c.pageLinks(page)
		if err != nil {
			return res, err
		}
		res.Pages++
		for _, l := range links {
			target, ok := c.resolve(page, l.URL)
			if !ok {
				continue
			}
			res.Links++
			if !c.exists(target) {
				res.Broken = append(res.Broken, BrokenLink{Page: page, Link: l, Target: target})
			}
		}
	}
	return res, nil
}

func (c *Checker) pageLinks(page string) ([]Link, error) {
	f, err := os.Open(filepath.Join(c.root, filepath.FromSlash(page)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ExtractLinks(f)
}

// resolve maps a link on page to a slash-separated site path.
func (c *Checker) resolve(page, raw string) (string, bool) {
	p, ok := internalPath(raw)
	if !ok {
		return "", false
	}
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	if strings.HasPrefix(p, "/") {
		if !strings.HasPrefix(p, c.basePath) && p+"/" != c.basePath {
			return "", false
		}
		p = strings.TrimPrefix(p, c.basePath)
	} else {
		p = path.Join(path.Dir(page), p)
	}
	p = path.Clean("/" + p)[1:]
	return p, true
}

// exists reports whether target names a file, or a directory with index.html.
func (c *Checker) exists(target string) bool {
	full := filepath.Join(c.root, filepath.FromSlash(target))
	info, err := os.Stat(full)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err = os.Stat(filepath.Join(full, "index.html"))
		return err == nil
	}
	return true
}
