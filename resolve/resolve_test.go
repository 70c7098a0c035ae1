package resolve_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loov/hotserver/resolve"
)

// tree creates files relative to a temporary root.
func tree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(name), 0o644))
	}
	return root
}

func TestResolve(t *testing.T) {
	root := tree(t,
		"index.html",
		"about.html",
		"style.css",
		"docs/index.html",
		"docs/guide.html",
		"assets/logo.png",
		"empty/readme.txt",
		"blog/post/index.html",
		"with space.txt",
	)
	fp := func(name string) string { return filepath.Join(root, filepath.FromSlash(name)) }

	type test struct {
		url  string
		kind resolve.Kind
		path string
	}

	tests := []test{
		{"/", resolve.ServeFile, fp("index.html")},
		{"/?v=1", resolve.ServeFile, fp("index.html")},
		{"/style.css", resolve.ServeFile, fp("style.css")},
		{"/style.css?v=123", resolve.ServeFile, fp("style.css")},
		{"/docs", resolve.ServeFile, fp("docs/index.html")},
		{"/docs/", resolve.ServeFile, fp("docs/index.html")},
		{"/docs/guide", resolve.ServeFile, fp("docs/guide.html")},
		{"/about", resolve.ServeFile, fp("about.html")},
		{"/blog/post", resolve.ServeFile, fp("blog/post/index.html")},
		{"/empty", resolve.ServeDirectoryListing, fp("empty")},
		{"/empty/", resolve.ServeDirectoryListing, fp("empty")},
		{"/assets/logo.png", resolve.ServeFile, fp("assets/logo.png")},
		{"/with%20space.txt", resolve.ServeFile, fp("with space.txt")},
		{"/missing.png", resolve.NotFound, ""},
		{"/missing", resolve.NotFound, ""},
		{"/about/", resolve.NotFound, ""},
		{"/style.css/extra", resolve.NotFound, ""},
	}

	for _, test := range tests {
		t.Run(test.url, func(t *testing.T) {
			out := resolve.Resolve(root, test.url, false)
			assert.Equal(t, test.kind, out.Kind)
			assert.Equal(t, test.path, out.Path)
		})
	}
}

func TestResolveDirectoryWithoutIndexIsListing(t *testing.T) {
	root := tree(t, "a/b/c.txt", "a/x.js")

	for _, url := range []string{"/", "/a", "/a/", "/a/b"} {
		out := resolve.Resolve(root, url, true)
		assert.Equal(t, resolve.ServeDirectoryListing, out.Kind, url)
	}
}

func TestResolveSPAFallback(t *testing.T) {
	root := tree(t, "index.html", "app.js")

	out := resolve.Resolve(root, "/users/42/profile", true)
	assert.Equal(t, resolve.SPAFallback, out.Kind)
	assert.Equal(t, filepath.Join(root, "index.html"), out.Path)
	assert.True(t, out.ContentType.IsHTML())

	out = resolve.Resolve(root, "/missing.js", true)
	assert.Equal(t, resolve.SPAFallback, out.Kind)

	out = resolve.Resolve(root, "/users/42/profile", false)
	assert.Equal(t, resolve.NotFound, out.Kind)
}

func TestResolveSPAFallbackWithoutIndex(t *testing.T) {
	root := tree(t, "app.js")

	out := resolve.Resolve(root, "/users/42", true)
	assert.Equal(t, resolve.NotFound, out.Kind)
}

func TestResolveExtensionlessPrefersHTMLFile(t *testing.T) {
	root := tree(t, "index.html", "page.html")

	out := resolve.Resolve(root, "/page", true)
	assert.Equal(t, resolve.ServeFile, out.Kind)
	assert.Equal(t, filepath.Join(root, "page.html"), out.Path)
}

func TestResolveTraversal(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "site")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("secret"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("index"), 0o644))

	for _, url := range []string{
		"/../secret.txt",
		"/%2e%2e/secret.txt",
		"/a/../../secret.txt",
		"/..%2fsecret.txt",
	} {
		out := resolve.Resolve(root, url, false)
		if out.Kind == resolve.ServeFile {
			assert.NotEqual(t, filepath.Join(parent, "secret.txt"), out.Path, url)
		}
	}
}

func TestResolveMalformedEscape(t *testing.T) {
	root := tree(t, "index.html")

	out := resolve.Resolve(root, "/bad%zzpath", false)
	assert.Equal(t, resolve.NotFound, out.Kind)
	assert.Error(t, out.Err)
}

func TestContentTypeOf(t *testing.T) {
	type test struct {
		name string
		mime string
		html bool
	}
	tests := []test{
		{"index.html", "text/html; charset=utf-8", true},
		{"INDEX.HTM", "text/html; charset=utf-8", true},
		{"style.css", "text/css; charset=utf-8", false},
		{"app.mjs", "text/javascript; charset=utf-8", false},
		{"logo.svg", "image/svg+xml", false},
		{"font.woff2", "font/woff2", false},
		{"clip.mp4", "video/mp4", false},
		{"song.opus", "audio/opus", false},
		{"bundle.wasm", "application/wasm", false},
		{"site.webmanifest", "application/manifest+json", false},
		{"archive.tar", "application/x-tar", false},
		{"data.bin", "application/octet-stream", false},
		{"Makefile", "application/octet-stream", false},
	}
	for _, test := range tests {
		ct := resolve.ContentTypeOf(test.name)
		assert.Equal(t, test.mime, ct.MIME(), test.name)
		assert.Equal(t, test.html, ct.IsHTML(), test.name)
	}
}
