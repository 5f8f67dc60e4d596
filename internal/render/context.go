package render

import (
	"html/template"

	"git.home.luguber.info/inful/formulary/internal/recordset"
)

// PageKind identifies which page template produced a page.
type PageKind string

const (
	PageIndex   PageKind = "index"
	PageListing PageKind = "listing"
	PageItem    PageKind = "item"
)

// Site carries site-wide settings into every page.
type Site struct {
	Name        string
	Title       string
	Description string
	BaseURL     string
	// Intro is the rendered intro Markdown, empty when none is configured.
	Intro template.HTML
}

// PageContext is the data a page template executes against.
type PageContext struct {
	Kind  PageKind
	Title string
	Site  Site
	// Root is the relative prefix from the page back to the site root ("" or "../").
	Root string
	// Set is the full record set. Records aliases Set.Records.
	Set     *recordset.RecordSet
	Records []recordset.Record
	// Record and Dependencies are set on item pages only.
	Record       *recordset.Record
	Dependencies []Dependency
}

// Dependency is one declared dependency of an item page. Href links to the
// dependency's own page when it is part of the set.
type Dependency struct {
	Name string
	Href string
}

func dependencyLinks(set *recordset.RecordSet, rec *recordset.Record, root string) []Dependency {
	if len(rec.Dependencies) == 0 {
		return nil
	}
	out := make([]Dependency, 0, len(rec.Dependencies))
	for _, name := range rec.Dependencies {
		d := Dependency{Name: name}
		if _, ok := set.Find(name); ok {
			d.Href = root + ItemPath(name)
		}
		out = append(out, d)
	}
	return out
}

// LayoutContext is the data layout.tmpl executes against.
type LayoutContext struct {
	Kind    PageKind
	Title   string
	Content template.HTML
	Root    string
	Site    Site
}
