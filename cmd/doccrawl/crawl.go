package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/doccrawl"
	"github.com/fwojciec/doccrawl/crawl"
	"github.com/fwojciec/doccrawl/yaml"
)

// Config resolves the request file and flags into a validated crawl
// configuration. Flags take precedence over request file values.
func (c *CrawlCmd) Config() (doccrawl.CrawlConfig, error) {
	req := &doccrawl.CrawlRequest{}
	if c.Request != "" {
		var err error
		if req, err = yaml.LoadRequest(c.Request); err != nil {
			return doccrawl.CrawlConfig{}, err
		}
	}
	if c.URL != "" {
		req.URL = c.URL
	}
	if c.Depth != nil {
		req.Depth = c.Depth
	}
	if c.Concurrency != nil {
		req.Concurrency = c.Concurrency
	}
	if c.OutputDir != "" {
		req.OutputDir = c.OutputDir
	}
	if c.LogDir != "" {
		req.LogDir = c.LogDir
	}

	cfg := req.Config()
	cfg.Timeout = c.Timeout
	cfg.ChunkSize = c.ChunkSize
	cfg.ChunkOverlap = c.ChunkOverlap
	cfg.MaxPages = c.MaxPages
	cfg.ScopeToPath = c.Scope
	cfg.RespectRobots = c.Robots
	cfg.UseSitemap = c.Sitemap
	cfg.RateLimit = c.RateLimit

	filter, err := doccrawl.NewURLFilter(c.Include, c.Exclude)
	if err != nil {
		return doccrawl.CrawlConfig{}, err
	}
	cfg.Filter = filter

	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	cfg, err := c.Config()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", doccrawl.ErrorMessage(err))
		return err
	}

	if c.Preview {
		urls, err := deps.Sitemaps.DiscoverURLs(deps.Ctx, cfg.RootURL, cfg.Filter)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", doccrawl.ErrorMessage(err))
			return err
		}
		for _, u := range urls {
			fmt.Fprintln(deps.Stdout, u)
		}
		return nil
	}

	deps.Crawler.Progress = c.progress(deps)

	fmt.Fprintf(deps.Stdout, "Crawling %s (depth %d, concurrency %d)\n", cfg.RootURL, cfg.MaxDepth, cfg.Concurrency)
	artifact, err := deps.Crawler.Run(deps.Ctx, cfg)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", doccrawl.ErrorMessage(err))
		return err
	}

	// The artifact is written even when the run was interrupted.
	paths, err := deps.Artifacts.WriteArtifact(context.WithoutCancel(deps.Ctx), artifact)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error writing artifact: %v\n", err)
		return err
	}

	s := artifact.Stats
	if deps.Logger != nil {
		deps.Logger.Info("crawl finished",
			"run", s.RunID,
			"url", s.RootURL,
			"succeeded", s.Succeeded,
			"failed", s.Failed,
			"skipped", s.Skipped,
			"chunks", s.TotalChunks,
			"partial", s.Partial,
			"duration", s.FinishedAt.Sub(s.StartedAt),
		)
	}
	fmt.Fprintf(deps.Stdout, "  %s\n", crawl.FormatSummary(s))
	for _, p := range paths {
		fmt.Fprintf(deps.Stdout, "  wrote %s\n", p)
	}
	return nil
}

func (c *CrawlCmd) progress(deps *Dependencies) crawl.ProgressFunc {
	return func(event crawl.ProgressEvent) {
		if deps.Metrics != nil {
			deps.Metrics.Observe(event)
		}
		switch event.Type {
		case crawl.ProgressFetched:
			if c.Verbose {
				fmt.Fprintf(deps.Stdout, "  [%d] %s (%d chunks)\n",
					event.Status.Fetched, crawl.TruncateURL(event.URL, 72), event.Chunks)
			}
		case crawl.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  skip %s: %v\n", event.URL, event.Error)
		}
	}
}
