package render

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
	"git.home.luguber.info/inful/formulary/internal/logfields"
	"git.home.luguber.info/inful/formulary/internal/minify"
	"git.home.luguber.info/inful/formulary/internal/recordset"
	"git.home.luguber.info/inful/formulary/internal/timefmt"
)

// Site-relative paths of the fixed outputs.
const (
	IndexPage   = "index.html"
	ListingPage = "listing.html"
	APIPath     = "api/packages.json"
	StylePath   = "style.css"
	ScriptPath  = "script.js"
	AssetsDir   = "assets"
)

// Options locates the renderer's inputs and output. Optional inputs may be
// empty or point at missing files.
type Options struct {
	TemplatesDir string
	StyleFile    string
	ScriptFile   string
	AssetsDir    string
	IntroFile    string
	OutputDir    string
	Site         Site
}

// Result describes a completed render.
type Result struct {
	Pages  int
	Assets int
	// Files lists every written file, site-relative and sorted.
	Files []string
}

// Renderer produces a site from a record set.
type Renderer struct {
	opts   Options
	clock  timefmt.Clock
	logger *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the clock behind the timeAgo helper.
func WithClock(c timefmt.Clock) Option {
	return func(r *Renderer) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets the renderer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Renderer.
func New(opts Options, options ...Option) *Renderer {
	r := &Renderer{opts: opts, clock: timefmt.SystemClock{}, logger: slog.Default()}
	for _, o := range options {
		o(r)
	}
	return r
}

// Render writes the complete site for set. Templates are loaded before any
// output is touched; on failure the previous site is left in place.
func (r *Renderer) Render(ctx context.Context, set *recordset.RecordSet) (res Result, err error) {
	if set == nil {
		return res, ferrors.InternalError("render called without a record set").Build()
	}
	ts, err := LoadTemplates(r.opts.TemplatesDir, r.clock)
	if err != nil {
		return res, err
	}
	site := r.opts.Site
	if site.Intro, err = r.loadIntro(); err != nil {
		return res, err
	}

	stage, err := beginStaging(r.opts.OutputDir)
	if err != nil {
		return res, ferrors.FileSystemError("prepare staging directory").WithCause(err).
			WithContext("path", r.opts.OutputDir).Build()
	}
	defer func() {
		if err != nil {
			abortStaging(stage)
		}
	}()

	w := &siteWriter{root: stage}
	if res.Pages, err = r.writePages(ctx, ts, w, site, set); err != nil {
		return res, err
	}
	if err = r.writeAssets(w, set); err != nil {
		return res, err
	}
	if res.Assets, err = w.CopyTree(r.opts.AssetsDir, AssetsDir); err != nil {
		return res, ferrors.FileSystemError("copy assets").WithCause(err).
			WithContext("path", r.opts.AssetsDir).Build()
	}
	if err = ctx.Err(); err != nil {
		return res, err
	}
	if err = promoteStaging(stage, r.opts.OutputDir); err != nil {
		return res, ferrors.FileSystemError("promote site").WithCause(err).
			WithContext("path", r.opts.OutputDir).Build()
	}

	res.Files = w.written
	sort.Strings(res.Files)
	r.logger.Info("Rendered site", logfields.Pages(res.Pages), logfields.Count(res.Assets), logfields.Path(r.opts.OutputDir))
	return res, nil
}

// writePages renders the index, listing, one page per record, and any extra
// page templates, which become <name>.html at the site root.
func (r *Renderer) writePages(ctx context.Context, ts *TemplateSet, w *siteWriter, site Site, set *recordset.RecordSet) (int, error) {
	type page struct {
		path string
		ctx  PageContext
	}
	base := PageContext{Site: site, Set: set, Records: set.Records}

	pages := make([]page, 0, len(set.Records)+len(ts.pages))
	for _, kind := range ts.pageKinds() {
		pc := base
		pc.Kind = kind
		switch kind {
		case PageIndex:
			pc.Title = site.Title
			pages = append(pages, page{IndexPage, pc})
		case PageListing:
			pc.Title = "All packages"
			pages = append(pages, page{ListingPage, pc})
		case PageItem:
			for i := range set.Records {
				ipc := pc
				ipc.Root = "../"
				ipc.Record = &set.Records[i]
				ipc.Dependencies = dependencyLinks(set, ipc.Record, ipc.Root)
				ipc.Title = set.Records[i].Name
				pages = append(pages, page{ItemPath(set.Records[i].Name), ipc})
			}
		default:
			pc.Title = string(kind)
			pages = append(pages, page{string(kind) + ".html", pc})
		}
	}

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		out, err := ts.ExecutePage(p.ctx)
		if err != nil {
			if ce, ok := ferrors.AsClassified(err); ok {
				return 0, ce.WithContext("page", p.path)
			}
			return 0, err
		}
		if err := w.WriteFile(p.path, out); err != nil {
			return 0, ferrors.FileSystemError("write page").WithCause(err).WithContext("page", p.path).Build()
		}
	}
	return len(pages), nil
}

// writeAssets writes the JSON API copy of the record set and the minified
// stylesheet and script.
func (r *Renderer) writeAssets(w *siteWriter, set *recordset.RecordSet) error {
	data, err := set.Marshal()
	if err != nil {
		return ferrors.InternalError("encode record set").WithCause(err).Build()
	}
	if err := w.WriteFile(APIPath, data); err != nil {
		return ferrors.FileSystemError("write api file").WithCause(err).Build()
	}

	for _, a := range []struct {
		src, dest string
		minify    func(string) string
	}{
		{r.opts.StyleFile, StylePath, minify.CSS},
		{r.opts.ScriptFile, ScriptPath, minify.JS},
	} {
		if a.src == "" {
			continue
		}
		src, err := os.ReadFile(a.src)
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Debug("Source asset not found, skipping", logfields.Path(a.src))
			continue
		}
		if err != nil {
			return ferrors.FileSystemError("read source asset").WithCause(err).WithContext("path", a.src).Build()
		}
		if err := w.WriteFile(a.dest, []byte(a.minify(string(src)))); err != nil {
			return ferrors.FileSystemError("write asset").WithCause(err).WithContext("path", a.dest).Build()
		}
	}
	return nil
}

func (r *Renderer) loadIntro() (template.HTML, error) {
	if r.opts.IntroFile == "" {
		return "", nil
	}
	src, err := os.ReadFile(r.opts.IntroFile)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("Intro file not found, skipping", logfields.Path(r.opts.IntroFile))
		return "", nil
	}
	if err != nil {
		return "", ferrors.FileSystemError("read intro file").WithCause(err).
			WithContext("path", r.opts.IntroFile).Build()
	}
	html, err := RenderMarkdown(string(src))
	if err != nil {
		return "", ferrors.RenderError("render intro file").WithCause(err).
			WithContext("path", r.opts.IntroFile).Build()
	}
	return html, nil
}

// pageKinds returns the loaded page kinds in output order: index, listing,
// item, then extra pages by name.
func (ts *TemplateSet) pageKinds() []PageKind {
	kinds := []PageKind{PageIndex, PageListing, PageItem}
	var extra []string
	for kind := range ts.pages {
		if kind != PageIndex && kind != PageListing && kind != PageItem {
			extra = append(extra, string(kind))
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		kinds = append(kinds, PageKind(k))
	}
	return kinds
}
