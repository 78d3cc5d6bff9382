// Package crawl provides documentation crawling orchestration.
// It coordinates the frontier, fetching with retry, extraction and
// chunking of documentation pages into a run artifact.
package crawl

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/doccrawl"
	"github.com/fwojciec/doccrawl/chunk"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Crawler orchestrates the crawling of a documentation site.
// Fetcher and Extractor are required; everything else is optional.
// A Crawler runs one crawl at a time.
type Crawler struct {
	Fetcher      doccrawl.Fetcher
	Extractor    doccrawl.Extractor
	Chunker      doccrawl.Chunker // defaults to chunk.New sized from the config
	Sitemaps     doccrawl.SitemapService
	Robots       doccrawl.RobotsPolicy
	RateLimiter  doccrawl.DomainLimiter // defaults to a DomainLimiter when RateLimit > 0
	TokenCounter doccrawl.TokenCounter
	RunLog       doccrawl.RunLog
	Progress     ProgressFunc
	RetryDelays  []time.Duration
	Logger       *slog.Logger // logs fetch retries when set

	mu      sync.Mutex
	running bool
	status  doccrawl.RunStatus
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type     ProgressType
	RunID    string
	URL      string
	Depth    int
	Attempts int
	Chunks   int
	Latency  time.Duration
	Error    error
	Status   doccrawl.RunStatus
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressDiscovered
	ProgressFetching
	ProgressFetched
	ProgressFailed
	ProgressSkipped
	ProgressFinished
)

var progressNames = [...]string{"started", "discovered", "fetching", "fetched", "failed", "skipped", "finished"}

func (t ProgressType) String() string {
	if int(t) < len(progressNames) {
		return progressNames[t]
	}
	return "unknown"
}

// ProgressFunc is a callback for reporting crawl progress.
// It is called from the coordinator goroutine only.
type ProgressFunc func(event ProgressEvent)

// Status returns a snapshot of the current or most recent run.
func (c *Crawler) Status() doccrawl.RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// run holds the coordinator-owned state of one crawl.
type run struct {
	cfg      doccrawl.CrawlConfig
	stats    doccrawl.RunStats
	frontier *Frontier
	chunker  doccrawl.Chunker
	limiter  doccrawl.DomainLimiter
	delays   []time.Duration
	pages    []*doccrawl.PageResult
	chunks   int
}

// Run crawls from cfg.RootURL and returns the run artifact.
// The only error returned is a *doccrawl.ConfigError, before any fetch.
// Canceling ctx stops admission, lets in-flight fetches finish under their
// own timeout and returns a partial artifact.
func (c *Crawler) Run(ctx context.Context, cfg doccrawl.CrawlConfig) (*doccrawl.RunArtifact, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.Fetcher == nil || c.Extractor == nil {
		return nil, doccrawl.Errorf(doccrawl.EINTERNAL, "crawler requires a fetcher and an extractor")
	}

	r, err := c.newRun(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, doccrawl.Errorf(doccrawl.EINVALID, "crawl %s already running", c.status.RunID)
	}
	c.running = true
	c.status = doccrawl.RunStatus{RunID: r.stats.RunID, Active: true}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.status.Active = false
		c.mu.Unlock()
	}()

	// Load the root host's robots policy here: afterwards admission checks
	// run under the frontier lock and must not block on the network.
	if cfg.RespectRobots && c.Robots != nil {
		c.Robots.Allowed(ctx, cfg.RootURL)
	}

	if c.RunLog != nil {
		_ = c.RunLog.StartRun(ctx, r.stats)
	}
	c.emit(r, ProgressEvent{Type: ProgressStarted, URL: cfg.RootURL})

	r.frontier.Seed()
	c.emit(r, ProgressEvent{Type: ProgressDiscovered, URL: cfg.RootURL})
	c.seedSitemap(ctx, r)

	aborted := c.walk(ctx, r)

	if aborted {
		for _, rec := range r.frontier.Drain() {
			c.emit(r, ProgressEvent{Type: ProgressSkipped, URL: rec.URL, Depth: rec.Depth})
		}
	}

	artifact := c.finish(r, aborted)

	if c.RunLog != nil {
		_ = c.RunLog.FinishRun(context.WithoutCancel(ctx), artifact.Stats)
	}
	c.emit(r, ProgressEvent{Type: ProgressFinished})

	return artifact, nil
}

func (c *Crawler) newRun(ctx context.Context, cfg doccrawl.CrawlConfig) (*run, error) {
	allowed := func(string) bool { return true }
	if cfg.RespectRobots && c.Robots != nil {
		allowed = func(u string) bool { return c.Robots.Allowed(ctx, u) }
	}

	frontier, err := NewFrontier(FrontierOptions{
		RootURL:     cfg.RootURL,
		MaxDepth:    cfg.MaxDepth,
		MaxPages:    cfg.MaxPages,
		ScopeToPath: cfg.ScopeToPath,
		Filter:      cfg.Filter,
		Allowed:     allowed,
	})
	if err != nil {
		return nil, &doccrawl.ConfigError{Kind: doccrawl.ConfigInvalidURL, Message: doccrawl.ErrorMessage(err)}
	}

	chunker := c.Chunker
	if chunker == nil {
		chunker = chunk.New(chunk.WithSize(cfg.ChunkSize), chunk.WithOverlap(cfg.ChunkOverlap))
	}

	limiter := c.RateLimiter
	if limiter == nil && cfg.RateLimit > 0 {
		limiter = NewDomainLimiter(cfg.RateLimit)
	}

	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}

	return &run{
		cfg: cfg,
		stats: doccrawl.RunStats{
			RunID:          uuid.NewString(),
			RootURL:        cfg.RootURL,
			MaxDepth:       cfg.MaxDepth,
			Concurrency:    cfg.Concurrency,
			FailuresByKind: make(map[string]int),
			StartedAt:      time.Now().UTC(),
		},
		frontier: frontier,
		chunker:  chunker,
		limiter:  limiter,
		delays:   delays,
	}, nil
}

// seedSitemap admits sitemap URLs as if the root page linked to them.
func (c *Crawler) seedSitemap(ctx context.Context, r *run) {
	if !r.cfg.UseSitemap || c.Sitemaps == nil || r.cfg.MaxDepth < 1 {
		return
	}
	urls, err := c.Sitemaps.DiscoverURLs(ctx, r.cfg.RootURL, r.cfg.Filter)
	if err != nil {
		return
	}
	root, _ := doccrawl.CleanURL(r.cfg.RootURL)
	for _, u := range urls {
		c.offer(r, doccrawl.DiscoveredLink{URL: u, Priority: doccrawl.PriorityFallback, Source: "sitemap"}, 1, root)
	}
}

// walk runs the worker pool until the frontier is exhausted or ctx is
// canceled. The calling goroutine is the coordinator and the only writer
// of run state. It reports whether the run was aborted with work left.
func (c *Crawler) walk(ctx context.Context, r *run) bool {
	workCh := make(chan doccrawl.URLRecord)
	resultCh := make(chan *doccrawl.PageResult)

	var g errgroup.Group
	for i := 0; i < r.cfg.Concurrency; i++ {
		g.Go(func() error {
			for rec := range workCh {
				resultCh <- c.processPage(ctx, r, rec)
			}
			return nil
		})
	}

	pending := 0
	aborted := false
	var next *doccrawl.URLRecord

	for {
		if pending == 0 && (next == nil || aborted) {
			if aborted || r.frontier.Len() == 0 {
				break
			}
		}
		if !aborted && ctx.Err() != nil {
			aborted = true
		}

		// Pop only when a worker is free so in-flight never exceeds the bound.
		if next == nil && !aborted && pending < r.cfg.Concurrency {
			if rec, ok := r.frontier.Next(); ok {
				next = &rec
			}
		}

		if next != nil && !aborted {
			select {
			case <-ctx.Done():
				aborted = true
			case workCh <- *next:
				pending++
				c.emit(r, ProgressEvent{Type: ProgressFetching, URL: next.URL, Depth: next.Depth})
				next = nil
			case res := <-resultCh:
				pending--
				c.handleResult(ctx, r, res)
			}
			continue
		}
		if pending == 0 {
			continue
		}

		res := <-resultCh
		pending--
		c.handleResult(ctx, r, res)
	}

	close(workCh)
	_ = g.Wait()

	// A record popped but never dispatched goes back out as skipped.
	if next != nil {
		r.frontier.Abandon(next.Key)
		c.emit(r, ProgressEvent{Type: ProgressSkipped, URL: next.URL, Depth: next.Depth})
	}
	return aborted
}

// processPage fetches, extracts and chunks one URL. It runs on a worker.
func (c *Crawler) processPage(ctx context.Context, r *run, rec doccrawl.URLRecord) *doccrawl.PageResult {
	res := &doccrawl.PageResult{
		URL:    rec.URL,
		Depth:  rec.Depth,
		Parent: rec.Parent,
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, doccrawl.HostOf(rec.URL)); err != nil {
			res.Err = err
			return res
		}
	}

	// Fetches outlive cancellation of ctx and are bounded by the request
	// timeout only; backoff waits still observe ctx.
	fetch := func(ctx context.Context, url string) (*doccrawl.Response, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
		defer cancel()
		return c.Fetcher.Fetch(fetchCtx, url)
	}

	begin := time.Now()
	resp, attempts, err := FetchWithRetry(ctx, rec.URL, fetch, c.Logger, r.delays)
	res.Attempts = attempts
	res.Latency = time.Since(begin)
	if err != nil {
		res.Err = err
		return res
	}

	res.FinalURL = resp.URL
	if res.FinalURL == "" {
		res.FinalURL = rec.URL
	}
	res.StatusCode = resp.StatusCode
	res.ContentType = resp.ContentType
	res.ContentLength = len(resp.Body)
	if resp.URL == "" {
		resp.URL = rec.URL
	}

	extraction, err := c.Extractor.Extract(resp)
	if err != nil {
		res.Err = err
		return res
	}

	res.Title = extraction.Title
	res.Text = chunk.Normalize(extraction.Text)
	res.Links = extraction.Links
	res.Warnings = extraction.Warnings
	res.ContentHash = computeHash(res.Text)
	res.Chunks = r.chunker.Chunk(rec.URL, res.Text)
	return res
}

func (c *Crawler) handleResult(ctx context.Context, r *run, res *doccrawl.PageResult) {
	key, _ := doccrawl.NormalizeURL(res.URL)

	// Never fetched: the run was canceled while waiting for the rate limiter.
	if res.Attempts == 0 {
		r.frontier.Abandon(key)
		c.emit(r, ProgressEvent{Type: ProgressSkipped, URL: res.URL, Depth: res.Depth, Error: res.Err})
		return
	}

	if res.Err == nil && res.FinalURL != "" && res.FinalURL != res.URL {
		if owner, dup := r.frontier.Alias(res.FinalURL, key); dup {
			res.DuplicateOf = owner
			res.Text = ""
			res.Chunks = nil
			res.Links = nil
		}
	}

	r.frontier.Finish(key, res.Status())
	r.pages = append(r.pages, res)
	r.stats.Attempted++

	switch res.Status() {
	case doccrawl.StatusFailed:
		r.stats.Failed++
		r.stats.FailuresByKind[doccrawl.FailureKind(res.Err)]++
	case doccrawl.StatusFetched:
		r.stats.Succeeded++
		r.chunks += len(res.Chunks)
		r.stats.TotalChars += utf8.RuneCountInString(res.Text)
		// Links from pages finishing after an abort are not admitted.
		if ctx.Err() == nil {
			for _, link := range res.Links {
				c.offer(r, link, res.Depth+1, res.URL)
			}
		}
	}

	if c.RunLog != nil {
		_ = c.RunLog.RecordPage(context.WithoutCancel(ctx), r.stats.RunID, res)
	}

	event := ProgressEvent{
		Type:     ProgressFetched,
		URL:      res.URL,
		Depth:    res.Depth,
		Attempts: res.Attempts,
		Chunks:   len(res.Chunks),
		Latency:  res.Latency,
	}
	switch res.Status() {
	case doccrawl.StatusFailed:
		event.Type = ProgressFailed
		event.Error = res.Err
	case doccrawl.StatusSkipped:
		event.Type = ProgressSkipped
	}
	c.emit(r, event)
}

func (c *Crawler) offer(r *run, link doccrawl.DiscoveredLink, depth int, parent string) {
	switch adm := r.frontier.Offer(link, depth, parent); {
	case adm == Admitted:
		c.emit(r, ProgressEvent{Type: ProgressDiscovered, URL: link.URL, Depth: depth})
	case adm.Skipped():
		c.emit(r, ProgressEvent{Type: ProgressSkipped, URL: link.URL, Depth: depth})
	}
}

// finish orders pages deterministically and assembles the artifact.
func (c *Crawler) finish(r *run, aborted bool) *doccrawl.RunArtifact {
	sort.SliceStable(r.pages, func(i, j int) bool {
		a, b := r.pages[i], r.pages[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.URL < b.URL
	})

	chunks := make([]doccrawl.Chunk, 0, r.chunks)
	for _, page := range r.pages {
		chunks = append(chunks, page.Chunks...)
	}

	counts := r.frontier.Counts()
	r.stats.Skipped = counts.Skipped
	r.stats.TotalChunks = len(chunks)
	r.stats.Partial = aborted
	r.stats.FinishedAt = time.Now().UTC()
	if len(r.stats.FailuresByKind) == 0 {
		r.stats.FailuresByKind = nil
	}

	if c.TokenCounter != nil {
		// Token counting is statistics only and must not depend on the
		// possibly canceled run context.
		ctx := context.Background()
		for _, ch := range chunks {
			if n, err := c.TokenCounter.CountTokens(ctx, ch.Content); err == nil {
				r.stats.TotalTokens += n
			}
		}
	}

	c.publish(r)
	return &doccrawl.RunArtifact{
		Stats:  r.stats,
		Chunks: chunks,
		Pages:  r.pages,
	}
}

// publish mirrors coordinator state for Status readers.
func (c *Crawler) publish(r *run) {
	counts := r.frontier.Counts()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.RunID = r.stats.RunID
	c.status.Discovered = counts.Discovered
	c.status.Admitted = counts.Admitted
	c.status.InFlight = counts.InFlight
	c.status.Fetched = counts.Fetched
	c.status.Failed = counts.Failed
	c.status.Skipped = counts.Skipped
	c.status.Chunks = r.chunks
}

func (c *Crawler) emit(r *run, event ProgressEvent) {
	c.publish(r)
	if c.Progress == nil {
		return
	}
	event.RunID = r.stats.RunID
	event.Status = c.Status()
	c.Progress(event)
}
