package crawl_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/doccrawl"
	"github.com/fwojciec/doccrawl/crawl"
	"github.com/fwojciec/doccrawl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "https://docs.example.com/"

// site is an in-memory link graph served by mock fetchers.
type site struct {
	mu        sync.Mutex
	links     map[string][]string
	redirects map[string]string // fetched URL -> final URL
	calls     map[string]int
}

func newSite(links map[string][]string) *site {
	return &site{links: links, calls: make(map[string]int)}
}

func (s *site) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (*doccrawl.Response, error) {
			s.mu.Lock()
			s.calls[url]++
			_, ok := s.links[url]
			final := url
			if to, redirected := s.redirects[url]; redirected {
				final = to
			}
			s.mu.Unlock()
			if !ok {
				return nil, &doccrawl.FetchError{Kind: doccrawl.FetchBadStatus, URL: url, StatusCode: 404}
			}
			return &doccrawl.Response{URL: final, StatusCode: 200, ContentType: "text/html", Body: []byte(final)}, nil
		},
	}
}

func (s *site) extractor() *mock.Extractor {
	return &mock.Extractor{
		ExtractFn: func(resp *doccrawl.Response) (*doccrawl.Extraction, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			var links []doccrawl.DiscoveredLink
			for _, l := range s.links[resp.URL] {
				links = append(links, doccrawl.DiscoveredLink{URL: l, Priority: doccrawl.PriorityContent})
			}
			return &doccrawl.Extraction{Text: "Content of " + resp.URL, Links: links}, nil
		},
	}
}

func (s *site) fetchCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func (s *site) fetchedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for u := range s.calls {
		out = append(out, u)
	}
	return out
}

func newCrawler(s *site) *crawl.Crawler {
	return &crawl.Crawler{
		Fetcher:     s.fetcher(),
		Extractor:   s.extractor(),
		RetryDelays: []time.Duration{0, 0, 0},
	}
}

func config(depth, concurrency int) doccrawl.CrawlConfig {
	return doccrawl.CrawlConfig{RootURL: root, MaxDepth: depth, Concurrency: concurrency}
}

func chunkURLs(artifact *doccrawl.RunArtifact) []string {
	var out []string
	for _, ch := range artifact.Chunks {
		out = append(out, ch.URL)
	}
	return out
}

func TestCrawler_Run(t *testing.T) {
	t.Parallel()

	t.Run("depth one admits same-origin links and does not expand them", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root: {
				"https://docs.example.com/a",
				"https://docs.example.com/b",
				"https://docs.example.com/c",
				"https://other.org/x",
			},
			"https://docs.example.com/a": {"https://docs.example.com/d"},
			"https://docs.example.com/b": nil,
			"https://docs.example.com/c": nil,
			"https://docs.example.com/d": nil,
		})
		c := newCrawler(s)

		artifact, err := c.Run(context.Background(), config(1, 2))

		require.NoError(t, err)
		assert.Equal(t, 4, artifact.Stats.Attempted)
		assert.Equal(t, 4, artifact.Stats.Succeeded)
		assert.Equal(t, 0, artifact.Stats.Failed)
		assert.False(t, artifact.Stats.Partial)
		assert.Zero(t, s.fetchCount("https://other.org/x"), "cross-origin link dropped")
		assert.Zero(t, s.fetchCount("https://docs.example.com/d"), "depth-1 pages not expanded")
		assert.ElementsMatch(t, []string{
			root,
			"https://docs.example.com/a",
			"https://docs.example.com/b",
			"https://docs.example.com/c",
		}, s.fetchedURLs())
		assert.Equal(t, []string{
			root,
			"https://docs.example.com/a",
			"https://docs.example.com/b",
			"https://docs.example.com/c",
		}, chunkURLs(artifact))
		assert.Equal(t, 4, artifact.Stats.TotalChunks)

		status := c.Status()
		assert.False(t, status.Active)
		assert.Equal(t, 4, status.Admitted)
		assert.Equal(t, 4, status.Fetched)
		assert.Equal(t, 0, status.InFlight)
		assert.Equal(t, artifact.Stats.RunID, status.RunID)
	})

	t.Run("depth zero fetches only the root", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root:                         {"https://docs.example.com/a"},
			"https://docs.example.com/a": nil,
		})

		artifact, err := newCrawler(s).Run(context.Background(), config(0, 3))

		require.NoError(t, err)
		assert.Equal(t, 1, artifact.Stats.Attempted)
		assert.Equal(t, []string{root}, s.fetchedURLs())
	})

	t.Run("never visits pages deeper than max depth", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root:                         {"https://docs.example.com/1"},
			"https://docs.example.com/1": {"https://docs.example.com/2"},
			"https://docs.example.com/2": {"https://docs.example.com/3"},
			"https://docs.example.com/3": {"https://docs.example.com/4"},
			"https://docs.example.com/4": nil,
		})

		artifact, err := newCrawler(s).Run(context.Background(), config(2, 2))

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{root, "https://docs.example.com/1", "https://docs.example.com/2"}, s.fetchedURLs())
		for _, page := range artifact.Pages {
			assert.LessOrEqual(t, page.Depth, 2)
		}
	})

	t.Run("cyclic graphs terminate with each page fetched once", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root:                         {"https://docs.example.com/a", "https://docs.example.com/b"},
			"https://docs.example.com/a": {root, "https://docs.example.com/b", "https://docs.example.com/a#top"},
			"https://docs.example.com/b": {"https://docs.example.com/a/", "https://docs.example.com/c"},
			"https://docs.example.com/c": {root, "https://DOCS.example.com/a"},
		})

		artifact, err := newCrawler(s).Run(context.Background(), config(10, 4))

		require.NoError(t, err)
		assert.Equal(t, 4, artifact.Stats.Attempted)
		for _, u := range []string{root, "https://docs.example.com/a", "https://docs.example.com/b", "https://docs.example.com/c"} {
			assert.Equal(t, 1, s.fetchCount(u), u)
		}
	})

	t.Run("in-flight fetches never exceed the concurrency bound", func(t *testing.T) {
		t.Parallel()

		links := map[string][]string{root: nil}
		for i := range 20 {
			u := "https://docs.example.com/p/" + string(rune('a'+i))
			links[root] = append(links[root], u)
			links[u] = nil
		}
		s := newSite(links)

		var inFlight, maxInFlight atomic.Int64
		base := s.fetcher()
		c := newCrawler(s)
		c.Fetcher = &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) (*doccrawl.Response, error) {
				n := inFlight.Add(1)
				for {
					m := maxInFlight.Load()
					if n <= m || maxInFlight.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				inFlight.Add(-1)
				return base.Fetch(ctx, url)
			},
		}

		var maxStatus int
		c.Progress = func(e crawl.ProgressEvent) {
			maxStatus = max(maxStatus, e.Status.InFlight)
		}

		artifact, err := c.Run(context.Background(), config(1, 3))

		require.NoError(t, err)
		assert.Equal(t, 21, artifact.Stats.Succeeded)
		assert.LessOrEqual(t, maxInFlight.Load(), int64(3))
		assert.LessOrEqual(t, maxStatus, 3)
	})

	t.Run("retries timeouts and succeeds on the third attempt", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int64
		c := &crawl.Crawler{
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, url string) (*doccrawl.Response, error) {
					if attempts.Add(1) < 3 {
						return nil, &doccrawl.FetchError{Kind: doccrawl.FetchTimeout, URL: url}
					}
					return &doccrawl.Response{URL: url, StatusCode: 200, ContentType: "text/html", Body: []byte("ok")}, nil
				},
			},
			Extractor: &mock.Extractor{
				ExtractFn: func(*doccrawl.Response) (*doccrawl.Extraction, error) {
					return &doccrawl.Extraction{Text: "Install the CLI."}, nil
				},
			},
			RetryDelays: []time.Duration{0, 0, 0},
		}

		artifact, err := c.Run(context.Background(), config(0, 1))

		require.NoError(t, err)
		require.Len(t, artifact.Pages, 1)
		assert.Equal(t, doccrawl.StatusFetched, artifact.Pages[0].Status())
		assert.Equal(t, 3, artifact.Pages[0].Attempts)
		require.Len(t, artifact.Chunks, 1)
		assert.Equal(t, "Install the CLI.", artifact.Chunks[0].Content)
		assert.Equal(t, 16, artifact.Chunks[0].ChunkLength)
	})

	t.Run("404 fails without retry and the run continues", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root:                          {"https://docs.example.com/missing", "https://docs.example.com/ok"},
			"https://docs.example.com/ok": nil,
		})

		artifact, err := newCrawler(s).Run(context.Background(), config(1, 2))

		require.NoError(t, err)
		assert.Equal(t, 1, s.fetchCount("https://docs.example.com/missing"))
		assert.Equal(t, 3, artifact.Stats.Attempted)
		assert.Equal(t, 2, artifact.Stats.Succeeded)
		assert.Equal(t, 1, artifact.Stats.Failed)
		assert.Equal(t, map[string]int{"bad-status": 1}, artifact.Stats.FailuresByKind)

		var failed *doccrawl.PageResult
		for _, p := range artifact.Pages {
			if p.Err != nil {
				failed = p
			}
		}
		require.NotNil(t, failed)
		assert.Equal(t, "https://docs.example.com/missing", failed.URL)
		assert.Equal(t, 1, failed.Attempts)
	})

	t.Run("extraction errors are recorded as unparseable", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{root: nil})
		c := newCrawler(s)
		c.Extractor = &mock.Extractor{
			ExtractFn: func(resp *doccrawl.Response) (*doccrawl.Extraction, error) {
				return nil, &doccrawl.ExtractionError{URL: resp.URL, Reason: "binary payload"}
			},
		}

		artifact, err := c.Run(context.Background(), config(1, 1))

		require.NoError(t, err)
		assert.Equal(t, 1, artifact.Stats.Failed)
		assert.Equal(t, 1, artifact.Stats.FailuresByKind["unparseable"])
		assert.Empty(t, artifact.Chunks)
	})

	t.Run("cancellation finalizes a partial artifact", func(t *testing.T) {
		t.Parallel()

		links := map[string][]string{root: nil}
		for _, p := range []string{"a", "b", "c", "d", "e"} {
			u := "https://docs.example.com/" + p
			links[root] = append(links[root], u)
			links[u] = []string{"https://docs.example.com/deeper-" + p}
		}
		s := newSite(links)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c := newCrawler(s)
		c.Progress = func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressFetched && e.URL == "https://docs.example.com/a" {
				cancel()
			}
		}

		artifact, err := c.Run(ctx, config(2, 1))

		require.NoError(t, err)
		assert.True(t, artifact.Stats.Partial)
		assert.Equal(t, 2, artifact.Stats.Attempted)
		assert.Equal(t, 5, artifact.Stats.Skipped, "b through e plus the link found on a")
		assert.Equal(t, []string{root, "https://docs.example.com/a"}, chunkURLs(artifact))
		assert.Zero(t, s.fetchCount("https://docs.example.com/b"), "queued pages are not fetched after abort")
		assert.Zero(t, s.fetchCount("https://docs.example.com/deeper-a"))
		assert.False(t, c.Status().Active)
	})

	t.Run("configuration errors fail before any fetch", func(t *testing.T) {
		t.Parallel()

		c := &crawl.Crawler{
			Fetcher: &mock.Fetcher{
				FetchFn: func(context.Context, string) (*doccrawl.Response, error) {
					t.Error("fetch must not be called")
					return nil, errors.New("unreachable")
				},
			},
			Extractor: &mock.Extractor{},
		}

		for _, cfg := range []doccrawl.CrawlConfig{
			{RootURL: "docs.example.com", MaxDepth: 1, Concurrency: 1},
			{RootURL: root, MaxDepth: -1, Concurrency: 1},
			{RootURL: root, MaxDepth: 1, Concurrency: 0},
		} {
			artifact, err := c.Run(context.Background(), cfg)
			require.Error(t, err)
			assert.Nil(t, artifact)
			var cfgErr *doccrawl.ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		}
	})

	t.Run("same configuration yields identical chunks", func(t *testing.T) {
		t.Parallel()

		links := map[string][]string{
			root:                         {"https://docs.example.com/a", "https://docs.example.com/b"},
			"https://docs.example.com/a": {"https://docs.example.com/c"},
			"https://docs.example.com/b": {"https://docs.example.com/c"},
			"https://docs.example.com/c": nil,
		}

		first, err := newCrawler(newSite(links)).Run(context.Background(), config(2, 3))
		require.NoError(t, err)
		second, err := newCrawler(newSite(links)).Run(context.Background(), config(2, 3))
		require.NoError(t, err)

		assert.Equal(t, first.Chunks, second.Chunks)
		assert.NotEqual(t, first.Stats.RunID, second.Stats.RunID)
	})

	t.Run("sitemap urls are seeded at depth one", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root:                              nil,
			"https://docs.example.com/hidden": nil,
		})
		c := newCrawler(s)
		c.Sitemaps = &mock.SitemapService{
			DiscoverURLsFn: func(context.Context, string, *doccrawl.URLFilter) ([]string, error) {
				return []string{"https://docs.example.com/hidden", "https://elsewhere.org/page"}, nil
			},
		}
		cfg := config(1, 2)
		cfg.UseSitemap = true

		artifact, err := c.Run(context.Background(), cfg)

		require.NoError(t, err)
		assert.Equal(t, 1, s.fetchCount("https://docs.example.com/hidden"))
		assert.Zero(t, s.fetchCount("https://elsewhere.org/page"))
		for _, p := range artifact.Pages {
			if p.URL == "https://docs.example.com/hidden" {
				assert.Equal(t, 1, p.Depth)
			}
		}
	})

	t.Run("robots disallowed pages are skipped", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root:                               {"https://docs.example.com/private", "https://docs.example.com/public"},
			"https://docs.example.com/private": nil,
			"https://docs.example.com/public":  nil,
		})
		c := newCrawler(s)
		c.Robots = &mock.RobotsPolicy{
			AllowedFn: func(_ context.Context, url string) bool {
				return !strings.Contains(url, "/private")
			},
		}
		cfg := config(1, 2)
		cfg.RespectRobots = true

		artifact, err := c.Run(context.Background(), cfg)

		require.NoError(t, err)
		assert.Zero(t, s.fetchCount("https://docs.example.com/private"))
		assert.Equal(t, 1, artifact.Stats.Skipped)
		assert.Equal(t, 2, artifact.Stats.Succeeded)
	})

	t.Run("robots policy of the root host is loaded before fetching", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root:                              {"https://docs.example.com/public"},
			"https://docs.example.com/public": nil,
		})
		var mu sync.Mutex
		var calls []string
		record := func(call string) {
			mu.Lock()
			calls = append(calls, call)
			mu.Unlock()
		}
		c := newCrawler(s)
		fetch := c.Fetcher
		c.Fetcher = &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) (*doccrawl.Response, error) {
				record("fetch " + url)
				return fetch.Fetch(ctx, url)
			},
		}
		c.Robots = &mock.RobotsPolicy{
			AllowedFn: func(_ context.Context, url string) bool {
				record("robots " + url)
				return true
			},
		}
		cfg := config(1, 1)
		cfg.RespectRobots = true

		_, err := c.Run(context.Background(), cfg)

		require.NoError(t, err)
		require.NotEmpty(t, calls)
		assert.Equal(t, "robots "+root, calls[0])
		assert.Equal(t, "fetch "+root, calls[1])
	})

	t.Run("max pages caps admission", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root:                         {"https://docs.example.com/a", "https://docs.example.com/b", "https://docs.example.com/c"},
			"https://docs.example.com/a": nil,
			"https://docs.example.com/b": nil,
			"https://docs.example.com/c": nil,
		})
		cfg := config(1, 2)
		cfg.MaxPages = 2

		artifact, err := newCrawler(s).Run(context.Background(), cfg)

		require.NoError(t, err)
		assert.Equal(t, 2, artifact.Stats.Attempted)
		assert.Equal(t, 2, artifact.Stats.Skipped)
	})

	t.Run("records every page in the run log and counts tokens", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root:                         {"https://docs.example.com/a"},
			"https://docs.example.com/a": nil,
		})
		var (
			started  doccrawl.RunStats
			recorded []string
			finished doccrawl.RunStats
		)
		c := newCrawler(s)
		c.RunLog = &mock.RunLog{
			StartRunFn: func(_ context.Context, stats doccrawl.RunStats) error {
				started = stats
				return nil
			},
			RecordPageFn: func(_ context.Context, runID string, page *doccrawl.PageResult) error {
				assert.Equal(t, started.RunID, runID)
				recorded = append(recorded, page.URL)
				return nil
			},
			FinishRunFn: func(_ context.Context, stats doccrawl.RunStats) error {
				finished = stats
				return errors.New("disk full")
			},
		}
		c.TokenCounter = &mock.TokenCounter{
			CountTokensFn: func(_ context.Context, text string) (int, error) {
				return len(strings.Fields(text)), nil
			},
		}

		artifact, err := c.Run(context.Background(), config(1, 1))

		require.NoError(t, err, "run log failures are not fatal")
		assert.Equal(t, root, started.RootURL)
		assert.Equal(t, []string{root, "https://docs.example.com/a"}, recorded)
		assert.Equal(t, 2, finished.Succeeded)
		assert.Equal(t, 6, artifact.Stats.TotalTokens)
		assert.False(t, finished.FinishedAt.Before(finished.StartedAt))
		for _, p := range artifact.Pages {
			assert.NotEmpty(t, p.ContentHash)
		}
	})

	t.Run("reports progress events in order", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{root: nil})
		var types []crawl.ProgressType
		c := newCrawler(s)
		c.Progress = func(e crawl.ProgressEvent) {
			types = append(types, e.Type)
		}

		_, err := c.Run(context.Background(), config(0, 1))

		require.NoError(t, err)
		assert.Equal(t, []crawl.ProgressType{
			crawl.ProgressStarted,
			crawl.ProgressDiscovered,
			crawl.ProgressFetching,
			crawl.ProgressFetched,
			crawl.ProgressFinished,
		}, types)
		assert.Equal(t, "fetched", crawl.ProgressFetched.String())
	})

	t.Run("redirect onto an admitted page is recorded once", func(t *testing.T) {
		t.Parallel()

		for _, order := range [][]string{
			{"https://docs.example.com/a", "https://docs.example.com/b"},
			{"https://docs.example.com/b", "https://docs.example.com/a"},
		} {
			for _, concurrency := range []int{1, 2} {
				// Given a root linking to /a and /b where /a redirects to /b
				s := newSite(map[string][]string{
					root:                         order,
					"https://docs.example.com/a": nil,
					"https://docs.example.com/b": nil,
				})
				s.redirects = map[string]string{"https://docs.example.com/a": "https://docs.example.com/b"}

				// When the site is crawled
				artifact, err := newCrawler(s).Run(context.Background(), config(1, concurrency))
				require.NoError(t, err)

				// Then the content of /b appears in exactly one chunk
				var contents []string
				for _, ch := range artifact.Chunks {
					contents = append(contents, ch.Content)
				}
				assert.ElementsMatch(t, []string{
					"Content of " + root,
					"Content of https://docs.example.com/b",
				}, contents, "order %v concurrency %d", order, concurrency)
				assert.Equal(t, 3, artifact.Stats.Attempted)
				assert.Equal(t, 2, artifact.Stats.Succeeded)
				assert.Equal(t, 1, artifact.Stats.Skipped)
				assert.Equal(t, 2, artifact.Stats.TotalChunks)
			}
		}
	})

	t.Run("only the first page redirecting to a target keeps its content", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string][]string{
			root:                         {"https://docs.example.com/a", "https://docs.example.com/b"},
			"https://docs.example.com/a": nil,
			"https://docs.example.com/b": nil,
		})
		s.redirects = map[string]string{
			"https://docs.example.com/a": "https://docs.example.com/c",
			"https://docs.example.com/b": "https://docs.example.com/c",
		}
		var skipped []string
		c := newCrawler(s)
		c.Progress = func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressSkipped {
				skipped = append(skipped, e.URL)
			}
		}

		artifact, err := c.Run(context.Background(), config(1, 1))

		require.NoError(t, err)
		assert.Equal(t, []string{root, "https://docs.example.com/a"}, chunkURLs(artifact))
		assert.Equal(t, []string{"https://docs.example.com/b"}, skipped)

		var dup *doccrawl.PageResult
		for _, p := range artifact.Pages {
			if p.URL == "https://docs.example.com/b" {
				dup = p
			}
		}
		require.NotNil(t, dup)
		assert.Equal(t, doccrawl.StatusSkipped, dup.Status())
		assert.Equal(t, "https://docs.example.com/a", dup.DuplicateOf)
		assert.Empty(t, dup.Chunks)
		assert.Empty(t, dup.Links)
	})
}
