package sitecheck

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestExtractLinks(t *testing.T) {
	links, err := ExtractLinks(strings.NewReader(`<html><head>
<link rel="stylesheet" href="style.css"><script src="script.js"></script></head>
<body><a href="packages/a.html">a</a><a name="anchor">no href</a><img src=" logo.png "></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, []Link{
		{URL: "style.css", Tag: "link", Attribute: "href"},
		{URL: "script.js", Tag: "script", Attribute: "src"},
		{URL: "packages/a.html", Tag: "a", Attribute: "href"},
		{URL: "logo.png", Tag: "img", Attribute: "src"},
	}, links)
}

func TestCheck(t *testing.T) {
	root := writeSite(t, map[string]string{
		"index.html": `<a href="packages/a.html">a</a><a href="packages/missing.html">m</a>` +
			`<a href="https://example.com/x">ext</a><a href="#top">top</a><a href="mailto:x@y">mail</a>`,
		"packages/a.html": `<link href="../style.css"><a href="../index.html#top">home</a><a href="../docs/">docs</a>`,
		"style.css":       "",
	})

	res, err := New(root, "").Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 5, res.Links)
	require.Len(t, res.Broken, 2)
	assert.Equal(t, "index.html", res.Broken[0].Page)
	assert.Equal(t, "packages/missing.html", res.Broken[0].Target)
	assert.Equal(t, "packages/a.html", res.Broken[1].Page)
	assert.Equal(t, "docs", res.Broken[1].Target)
}

func TestCheckAbsoluteLinksUnderBaseURL(t *testing.T) {
	root := writeSite(t, map[string]string{
		"index.html":   `<a href="/tap/listing.html">l</a><a href="/other/x.html">o</a><a href="/tap/">root</a>`,
		"listing.html": "",
	})

	res, err := New(root, "https://example.com/tap/").Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Links)
	assert.Empty(t, res.Broken)
}

func TestCheckCanceled(t *testing.T) {
	root := writeSite(t, map[string]string{"index.html": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(root, "").Check(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
