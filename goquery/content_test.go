package goquery_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/doccrawl"
	"github.com/fwojciec/doccrawl/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentSelector_Extract(t *testing.T) {
	t.Parallel()

	t.Run("selects main content and drops chrome", func(t *testing.T) {
		t.Parallel()

		html := `<html>
<head><title>Getting Started</title><script>var x = 1;</script></head>
<body>
<header><a href="/">Logo</a></header>
<nav><a href="/docs">Docs</a></nav>
<main>
<h1>Getting Started</h1>
<p>Install the tool.</p>
<script>track()</script>
</main>
<footer>Copyright</footer>
</body>
</html>`

		result, err := goquery.NewContentSelector().Extract(html)

		require.NoError(t, err)
		assert.Equal(t, "Getting Started", result.Title)
		assert.True(t, strings.HasPrefix(result.ContentHTML, "<main>"))
		assert.Contains(t, result.ContentHTML, "Install the tool.")
		assert.NotContains(t, result.ContentHTML, "track()")
		assert.NotContains(t, result.ContentHTML, "Copyright")
		assert.NotContains(t, result.ContentHTML, "Logo")
	})

	t.Run("tries selectors in order", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<div class="markdown-body"><p>Markdown body</p></div>
<div id="content"><p>Content div</p></div>
</body></html>`

		result, err := goquery.NewContentSelector().Extract(html)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "Content div")
		assert.NotContains(t, result.ContentHTML, "Markdown body")
	})

	t.Run("skips matches without text", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<main>   </main>
<article><p>Article text</p></article>
</body></html>`

		result, err := goquery.NewContentSelector().Extract(html)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "Article text")
	})

	t.Run("keeps headers holding headings", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article><header><h1>API</h1></header><p>Body</p></article></body></html>`

		result, err := goquery.NewContentSelector().Extract(html)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "<h1>API</h1>")
	})

	t.Run("falls back to body", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><div><p>Plain page</p></div><nav>Menu</nav></body></html>`

		result, err := goquery.NewContentSelector().Extract(html)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "Plain page")
		assert.NotContains(t, result.ContentHTML, "Menu")
	})

	t.Run("prefers og:title", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><meta property="og:title" content="OG Title"><title>Doc Title</title></head><body><main>x</main></body></html>`

		result, err := goquery.NewContentSelector().Extract(html)

		require.NoError(t, err)
		assert.Equal(t, "OG Title", result.Title)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.NewContentSelector().Extract("  ")

		require.Error(t, err)
		assert.Equal(t, doccrawl.EINVALID, doccrawl.ErrorCode(err))
	})
}
