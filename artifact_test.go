package doccrawl_test

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/fwojciec/doccrawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(doccrawl.Chunk{
		Content:     "héllo",
		URL:         "https://docs.example.com/",
		ChunkLength: 5,
		Index:       3,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"héllo","url":"https://docs.example.com/","chunk_length":5}`, string(data))
}

func TestNewIngestRequest(t *testing.T) {
	t.Parallel()

	t.Run("wraps chunks as documents", func(t *testing.T) {
		t.Parallel()

		artifact := &doccrawl.RunArtifact{Chunks: []doccrawl.Chunk{
			{Content: "a", URL: "https://docs.example.com/", ChunkLength: 1},
		}}
		data, err := json.Marshal(doccrawl.NewIngestRequest(artifact, "docs"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"documents":[{"content":"a","url":"https://docs.example.com/","chunk_length":1}],"namespace":"docs"}`, string(data))
	})

	t.Run("empty artifact yields empty documents array", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(doccrawl.NewIngestRequest(&doccrawl.RunArtifact{}, ""))
		require.NoError(t, err)
		assert.JSONEq(t, `{"documents":[]}`, string(data))
	})
}

func TestPageResult_Status(t *testing.T) {
	t.Parallel()

	assert.Equal(t, doccrawl.StatusFetched, (&doccrawl.PageResult{}).Status())
	assert.Equal(t, doccrawl.StatusFailed, (&doccrawl.PageResult{Err: errors.New("x")}).Status())
	assert.Equal(t, doccrawl.StatusSkipped, (&doccrawl.PageResult{DuplicateOf: "https://docs.example.com/b"}).Status())
	assert.True(t, doccrawl.StatusFailed.Terminal())
	assert.True(t, doccrawl.StatusSkipped.Terminal())
	assert.False(t, doccrawl.StatusFetching.Terminal())
}

func TestURLFilter_Match(t *testing.T) {
	t.Parallel()

	t.Run("nil filter matches everything", func(t *testing.T) {
		t.Parallel()

		var f *doccrawl.URLFilter
		assert.True(t, f.Match("https://docs.example.com/anything"))
	})

	t.Run("include then exclude", func(t *testing.T) {
		t.Parallel()

		f := &doccrawl.URLFilter{
			Include: []*regexp.Regexp{regexp.MustCompile(`/docs/`)},
			Exclude: []*regexp.Regexp{regexp.MustCompile(`/docs/v1/`)},
		}
		assert.True(t, f.Match("https://example.com/docs/intro"))
		assert.False(t, f.Match("https://example.com/blog/post"))
		assert.False(t, f.Match("https://example.com/docs/v1/intro"))
	})
}

func TestNewURLFilter(t *testing.T) {
	t.Parallel()

	t.Run("returns nil without patterns", func(t *testing.T) {
		t.Parallel()

		f, err := doccrawl.NewURLFilter(nil, nil)

		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("compiles both lists", func(t *testing.T) {
		t.Parallel()

		f, err := doccrawl.NewURLFilter([]string{`/docs/`}, []string{`\.pdf$`})

		require.NoError(t, err)
		assert.True(t, f.Match("https://example.com/docs/intro"))
		assert.False(t, f.Match("https://example.com/docs/manual.pdf"))
	})

	t.Run("names the invalid pattern", func(t *testing.T) {
		t.Parallel()

		_, err := doccrawl.NewURLFilter(nil, []string{"(unclosed"})

		assert.Equal(t, doccrawl.EINVALID, doccrawl.ErrorCode(err))
		assert.Contains(t, doccrawl.ErrorMessage(err), `invalid exclude pattern "(unclosed"`)
	})
}
