// Package render turns a record set into a static site.
//
// A template directory holds three required page templates (index.tmpl,
// listing.tmpl, item.tmpl), an optional layout.tmpl wrapping every page, and
// partials named _<name>.tmpl. Every file is parsed into its own html/template
// namespace: pages cannot see each other's definitions, and a partial only sees
// the locals passed to it with {{ partial "name" (dict "key" value) }}.
//
// Output is written to a sibling staging directory and promoted over the
// previous site only when every file was written.
package render
