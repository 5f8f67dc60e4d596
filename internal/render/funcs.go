package render

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"reflect"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/formulary/internal/timefmt"
)

// markdownEngine renders Markdown without passing raw HTML through.
var markdownEngine = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts Markdown source to HTML.
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	// #nosec G203 -- goldmark escapes raw HTML unless WithUnsafe is set.
	return template.HTML(buf.String()), nil
}

// ItemPath is the site-relative path of a package page.
func ItemPath(name string) string {
	return "packages/" + url.PathEscape(name) + ".html"
}

// helperFuncs returns the helpers shared by pages, layout and partials.
// The partial helper is bound to ts.
func helperFuncs(ts *TemplateSet, clock timefmt.Clock) template.FuncMap {
	titleCaser := cases.Title(language.English)
	return template.FuncMap{
		"timeAgo": func(raw string) string {
			return timefmt.Relative(raw, clock.Now())
		},
		"formatDate": timefmt.Absolute,
		"partial":    ts.executePartial,
		"dict":       dict,
		"markdown":   RenderMarkdown,
		"title":      titleCaser.String,
		"join":       join,
		"itemURL":    ItemPath,
		"default":    defaultValue,
		"escape": func(s string) template.HTML {
			// #nosec G203 -- the value is escaped before being marked safe.
			return template.HTML(template.HTMLEscapeString(s))
		},
	}
}

// dict builds a locals map from alternating keys and values.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments (%d)", len(pairs))
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %d is %T, not string", i/2, pairs[i])
		}
		out[key] = pairs[i+1]
	}
	return out, nil
}

// join concatenates items with sep. The argument order allows
// {{ .Dependencies | join ", " }}.
func join(sep string, items any) (string, error) {
	switch v := items.(type) {
	case nil:
		return "", nil
	case []string:
		return strings.Join(v, sep), nil
	}
	rv := reflect.ValueOf(items)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", fmt.Errorf("join: cannot join %T", items)
	}
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = fmt.Sprint(rv.Index(i).Interface())
	}
	return strings.Join(parts, sep), nil
}

// defaultValue returns def when v is empty, allowing
// {{ .Description | default "No description" }}.
func defaultValue(def, v any) any {
	if v == nil {
		return def
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		if rv.Len() == 0 {
			return def
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return def
		}
	default:
		if rv.IsZero() {
			return def
		}
	}
	return v
}
