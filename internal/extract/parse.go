package extract

import (
	"regexp"
	"strings"

	"git.home.luguber.info/inful/formulary/internal/util/sets"
)

// Line-anchored field patterns. The first match in a file wins.
var (
	typePattern     = regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)\s*<`)
	descPattern     = regexp.MustCompile(`(?m)^\s*desc\s+"((?:[^"\\\n]|\\.)*)"`)
	homepagePattern = regexp.MustCompile(`(?m)^\s*homepage\s+"([^"\n]*)"`)
	urlPattern      = regexp.MustCompile(`(?m)^\s*url\s+"([^"\n]*)"`)
	versionPattern  = regexp.MustCompile(`(?m)^\s*version\s+"([^"\n]*)"`)
	sha256Pattern   = regexp.MustCompile(`(?m)^\s*sha256\s+"([0-9a-fA-F]{64})"`)
	licensePattern  = regexp.MustCompile(`(?m)^\s*license\s+(?:"([^"\n]*)"|:([a-z_]+))`)
	dependsPattern  = regexp.MustCompile(`(?m)^\s*depends_on\s+"([^"\n]+)"(?:\s*=>\s*:(\w+))?`)

	versionInURL  = regexp.MustCompile(`\d+\.\d+(?:\.\d+)*`)
	kebabBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// Definition holds the fields matched in one definition file.
type Definition struct {
	TypeName          string
	Description       string
	Homepage          string
	SourceURL         string
	Version           string
	Checksum          string
	License           string
	Dependencies      []string
	BuildDependencies []string
}

// ParseDefinition matches the known field patterns against src. The boolean
// is false when no type declaration is present, in which case the file does
// not describe a package.
func ParseDefinition(src string) (Definition, bool) {
	var d Definition
	d.TypeName = firstGroup(typePattern, src)
	if d.TypeName == "" {
		return d, false
	}
	if m := descPattern.FindStringSubmatch(src); m != nil {
		d.Description = unescape(m[1])
	}
	d.Homepage = firstGroup(homepagePattern, src)
	d.SourceURL = firstGroup(urlPattern, src)
	d.Version = firstGroup(versionPattern, src)
	if d.Version == "" {
		d.Version = InferVersion(d.SourceURL)
	}
	d.Checksum = strings.ToLower(firstGroup(sha256Pattern, src))
	if m := licensePattern.FindStringSubmatch(src); m != nil {
		d.License = m[1]
		if d.License == "" {
			d.License = m[2]
		}
	}

	deps := sets.New[string]()
	buildDeps := sets.New[string]()
	d.Dependencies = []string{}
	for _, m := range dependsPattern.FindAllStringSubmatch(src, -1) {
		if deps.Add(m[1]) {
			d.Dependencies = append(d.Dependencies, m[1])
		}
		if m[2] == "build" && buildDeps.Add(m[1]) {
			d.BuildDependencies = append(d.BuildDependencies, m[1])
		}
	}
	return d, true
}

// KebabName derives a package name from a type identifier:
// ExampleToolTwo becomes example-tool-two.
func KebabName(typeName string) string {
	return strings.ToLower(kebabBoundary.ReplaceAllString(typeName, "${1}-${2}"))
}

// InferVersion returns the first dotted numeric run in a URL, or "".
func InferVersion(url string) string {
	return versionInURL.FindString(url)
}

func firstGroup(re *regexp.Regexp, src string) string {
	if m := re.FindStringSubmatch(src); m != nil {
		return m[1]
	}
	return ""
}

// unescape resolves backslash escapes in a quoted string body. Unknown
// escapes keep the escaped character.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
