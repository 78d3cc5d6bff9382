package fs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/doccrawl"
	"github.com/fwojciec/doccrawl/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Story: Atomic Page Tree
// Pages land in a temp directory and replace the final tree on commit.

func TestPageStore_SaveWritesToTempDirectory(t *testing.T) {
	t.Parallel()

	// Given a store targeting a directory
	base := t.TempDir()
	store := fs.NewPageStore(base, "pages")

	// When I save a page
	err := store.Save(&doccrawl.PageResult{URL: "https://example.com/docs/api", Title: "API", Text: "API text"})
	require.NoError(t, err)

	// Then it exists only in the temp directory
	_, err = os.Stat(filepath.Join(base, "pages.tmp", "docs", "api.md"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "pages", "docs", "api.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestPageStore_CommitReplacesFinalTree(t *testing.T) {
	t.Parallel()

	// Given a final tree from an earlier run
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "pages"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "pages", "stale.md"), []byte("old"), 0644))

	store := fs.NewPageStore(base, "pages")
	require.NoError(t, store.Save(&doccrawl.PageResult{URL: "https://example.com/a", Text: "A"}))

	// When I commit
	require.NoError(t, store.Commit())

	// Then only the new pages remain
	_, err := os.Stat(filepath.Join(base, "pages", "a.md"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "pages", "stale.md"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "pages.tmp"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, filepath.Join(base, "pages"), store.Dir())
}

func TestPageStore_AbortCleansUpTempDirectory(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	store := fs.NewPageStore(base, "pages")
	require.NoError(t, store.Save(&doccrawl.PageResult{URL: "https://example.com/a", Text: "A"}))

	require.NoError(t, store.Abort())

	_, err := os.Stat(filepath.Join(base, "pages.tmp"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "pages"))
	assert.True(t, os.IsNotExist(err))
}

func TestFormatPage(t *testing.T) {
	t.Parallel()

	crawled := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("writes frontmatter", func(t *testing.T) {
		t.Parallel()

		got := fs.FormatPage(&doccrawl.PageResult{
			URL:   "https://example.com/intro",
			Title: "Introduction",
			Text:  "Welcome",
		}, crawled)

		assert.Equal(t, "---\nsource: https://example.com/intro\ntitle: Introduction\ncrawled: 2026-03-01\n---\n\nWelcome\n", got)
	})

	t.Run("records redirect target and quotes titles", func(t *testing.T) {
		t.Parallel()

		got := fs.FormatPage(&doccrawl.PageResult{
			URL:      "https://example.com/old",
			FinalURL: "https://example.com/new",
			Title:    `API: "v2"`,
			Text:     "Body",
		}, crawled)

		assert.Contains(t, got, "final: https://example.com/new\n")
		assert.Contains(t, got, `title: "API: \"v2\""`)
	})
}
