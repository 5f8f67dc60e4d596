package render

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
	"git.home.luguber.info/inful/formulary/internal/timefmt"
)

const (
	layoutFile    = "layout.tmpl"
	templateExt   = ".tmpl"
	partialPrefix = "_"

	// maxPartialDepth bounds partial nesting so a self-including partial fails
	// instead of overflowing the stack.
	maxPartialDepth = 16
)

// RequiredTemplates are the page templates every template directory must provide.
var RequiredTemplates = []string{"index.tmpl", "listing.tmpl", "item.tmpl"}

// TemplateSet holds the parsed templates of one template directory.
// Execution is not safe for concurrent use.
type TemplateSet struct {
	pages    map[PageKind]*template.Template
	layout   *template.Template
	partials map[string]*template.Template
	depth    int
}

// LoadTemplates parses every template in dir. A missing required template is a
// fatal render error reported before any output is produced.
func LoadTemplates(dir string, clock timefmt.Clock) (*TemplateSet, error) {
	if clock == nil {
		clock = timefmt.SystemClock{}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ferrors.RenderError("read templates directory").WithCause(err).
			WithContext("path", dir).Build()
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), templateExt) {
			present[e.Name()] = true
		}
	}
	var missing []string
	for _, name := range RequiredTemplates {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, ferrors.RenderError("missing required templates: " + strings.Join(missing, ", ")).
			WithContext("path", dir).
			WithContext("missing", strings.Join(missing, ",")).
			Build()
	}

	ts := &TemplateSet{
		pages:    make(map[PageKind]*template.Template, len(RequiredTemplates)),
		partials: make(map[string]*template.Template),
	}
	funcs := helperFuncs(ts, clock)

	names := make([]string, 0, len(present))
	for name := range present {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tpl, err := parseFile(filepath.Join(dir, name), name, funcs)
		if err != nil {
			return nil, err
		}
		switch {
		case strings.HasPrefix(name, partialPrefix):
			ts.partials[strings.TrimSuffix(strings.TrimPrefix(name, partialPrefix), templateExt)] = tpl
		case name == layoutFile:
			ts.layout = tpl
		default:
			ts.pages[PageKind(strings.TrimSuffix(name, templateExt))] = tpl
		}
	}
	return ts, nil
}

func parseFile(path, name string, funcs template.FuncMap) (*template.Template, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.RenderError("read template").WithCause(err).WithContext("template", name).Build()
	}
	tpl, err := template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(string(src))
	if err != nil {
		return nil, ferrors.RenderError("parse template").WithCause(err).WithContext("template", name).Build()
	}
	return tpl, nil
}

// HasLayout reports whether layout.tmpl was present.
func (ts *TemplateSet) HasLayout() bool { return ts.layout != nil }

// Partials lists the loaded partial names, sorted.
func (ts *TemplateSet) Partials() []string {
	out := make([]string, 0, len(ts.partials))
	for name := range ts.partials {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ExecutePage renders the page template for ctx.Kind and wraps it in the layout
// when one exists.
func (ts *TemplateSet) ExecutePage(ctx PageContext) ([]byte, error) {
	tpl, ok := ts.pages[ctx.Kind]
	if !ok {
		return nil, ferrors.RenderError("no template for page kind").WithContext("kind", string(ctx.Kind)).Build()
	}
	var body bytes.Buffer
	if err := tpl.Execute(&body, ctx); err != nil {
		return nil, ferrors.RenderError("execute page template").WithCause(err).
			WithContext("template", tpl.Name()).Build()
	}
	if ts.layout == nil {
		return body.Bytes(), nil
	}
	var out bytes.Buffer
	err := ts.layout.Execute(&out, LayoutContext{
		Kind:  ctx.Kind,
		Title: ctx.Title,
		// #nosec G203 -- body is the output of an html/template execution.
		Content: template.HTML(body.String()),
		Root:    ctx.Root,
		Site:    ctx.Site,
	})
	if err != nil {
		return nil, ferrors.RenderError("execute layout template").WithCause(err).
			WithContext("template", layoutFile).Build()
	}
	return out.Bytes(), nil
}

// executePartial backs the partial helper. Locals are passed as the only data;
// a single non-map argument is exposed to the partial as-is.
func (ts *TemplateSet) executePartial(name string, locals ...any) (template.HTML, error) {
	tpl, ok := ts.partials[name]
	if !ok {
		return "", fmt.Errorf("partial %q not found", name)
	}
	if ts.depth >= maxPartialDepth {
		return "", fmt.Errorf("partial %q: nesting deeper than %d", name, maxPartialDepth)
	}
	var data any
	switch len(locals) {
	case 0:
		data = map[string]any{}
	case 1:
		data = locals[0]
	default:
		return "", fmt.Errorf("partial %q: expected at most one locals argument, got %d", name, len(locals))
	}

	ts.depth++
	defer func() { ts.depth-- }()

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("partial %q: %w", name, err)
	}
	// #nosec G203 -- buf is the output of an html/template execution.
	return template.HTML(buf.String()), nil
}
