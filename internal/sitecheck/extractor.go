package sitecheck

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
)

// Link is a reference found in a generated page.
type Link struct {
	URL       string `json:"url"`
	Tag       string `json:"tag"`
	Attribute string `json:"attribute"`
}

// linkAttrs lists the attribute carrying a link for each element checked.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"source": "src",
	"video":  "src",
	"audio":  "src",
}

// ExtractLinks returns every link-bearing attribute in an HTML document, in
// document order.
func ExtractLinks(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "failed to parse HTML").
			WithSeverity(ferrors.SeverityError).Build()
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := linkAttrs[n.Data]; ok {
				if v := strings.TrimSpace(getAttr(n, attr)); v != "" {
					links = append(links, Link{URL: v, Tag: n.Data, Attribute: attr})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// internalPath returns the site path a link points at, or false when the link
// leaves the page: other schemes and hosts, bare fragments, and protocol
// handlers.
func internalPath(raw string) (string, bool) {
	if strings.HasPrefix(raw, "#") ||
		strings.HasPrefix(raw, "mailto:") ||
		strings.HasPrefix(raw, "tel:") ||
		strings.HasPrefix(raw, "javascript:") ||
		strings.HasPrefix(raw, "data:") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if u.Path == "" {
		return "", false
	}
	return u.Path, true
}
