package fs_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/doccrawl"
	"github.com/fwojciec/doccrawl/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestRunLog(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	log := fs.NewRunLog(dir)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC)

	require.NoError(t, log.StartRun(ctx, doccrawl.RunStats{RunID: "r1", RootURL: "https://example.com", StartedAt: started}))
	require.NoError(t, log.RecordPage(ctx, "r1", &doccrawl.PageResult{
		URL:           "https://example.com/",
		FinalURL:      "https://example.com/",
		StatusCode:    200,
		ContentLength: 512,
		ContentHash:   "00000000000000ff",
		Attempts:      1,
		Latency:       250 * time.Millisecond,
		Chunks:        []doccrawl.Chunk{{Content: "x"}},
	}))
	require.NoError(t, log.RecordPage(ctx, "r1", &doccrawl.PageResult{
		URL:      "https://example.com/missing",
		Depth:    1,
		Parent:   "https://example.com/",
		Attempts: 1,
		Err:      &doccrawl.FetchError{Kind: doccrawl.FetchBadStatus, URL: "https://example.com/missing", StatusCode: 404},
	}))
	require.NoError(t, log.FinishRun(ctx, doccrawl.RunStats{RunID: "r1", Attempted: 2, Succeeded: 1, Failed: 1}))

	assert.Equal(t, filepath.Join(dir, "20260301_093015_pages.jsonl"), log.Path())

	lines := readLines(t, log.Path())
	require.Len(t, lines, 4)

	assert.Equal(t, "start", lines[0]["type"])
	assert.Equal(t, "r1", lines[0]["run_id"])

	assert.Equal(t, "page", lines[1]["type"])
	assert.Equal(t, "fetched", lines[1]["status"])
	assert.Equal(t, float64(250), lines[1]["latency_ms"])
	assert.Equal(t, float64(512), lines[1]["bytes"])
	assert.Equal(t, float64(1), lines[1]["chunks"])
	assert.NotContains(t, lines[1], "final_url")

	assert.Equal(t, "failed", lines[2]["status"])
	assert.Equal(t, "bad-status", lines[2]["error_kind"])
	assert.Equal(t, "https://example.com/", lines[2]["parent"])

	assert.Equal(t, "summary", lines[3]["type"])
	assert.Equal(t, float64(2), lines[3]["pages_attempted"])
}

func TestRunLog_RecordBeforeStart(t *testing.T) {
	t.Parallel()

	log := fs.NewRunLog(t.TempDir())

	err := log.RecordPage(context.Background(), "r1", &doccrawl.PageResult{URL: "https://example.com"})

	assert.Equal(t, doccrawl.EINVALID, doccrawl.ErrorCode(err))
}
