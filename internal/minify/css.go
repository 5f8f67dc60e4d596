// Package minify shrinks stylesheets and scripts without parsing them.
//
// Both minifiers are textual. They are tuned for hand-written site assets and
// make no attempt to rename identifiers or restructure rules.
package minify

import (
	"regexp"
	"strings"
)

var (
	cssComment      = regexp.MustCompile(`(?s)/\*.*?\*/`)
	cssWhitespace   = regexp.MustCompile(`\s+`)
	cssTrailingSemi = regexp.MustCompile(`;\s*}`)
)

// CSS strips comments, collapses whitespace runs to a single space and drops
// the semicolon before a closing brace.
func CSS(src string) string {
	out := cssComment.ReplaceAllString(src, "")
	out = cssWhitespace.ReplaceAllString(out, " ")
	out = cssTrailingSemi.ReplaceAllString(out, "}")
	return strings.TrimSpace(out)
}
