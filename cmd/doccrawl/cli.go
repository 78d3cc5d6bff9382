package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/doccrawl"
	"github.com/fwojciec/doccrawl/crawl"
	"github.com/fwojciec/doccrawl/prometheus"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Crawler   *crawl.Crawler
	Sitemaps  doccrawl.SitemapService
	Artifacts doccrawl.ArtifactWriter
	Runs      doccrawl.RunService
	Metrics   *prometheus.Observer
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Crawl CrawlCmd `cmd:"" help:"Crawl a documentation site and write chunk artifacts"`
	Runs  RunsCmd  `cmd:"" help:"Inspect recorded crawl runs"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URL     string `arg:"" optional:"" help:"Documentation root URL"`
	Request string `short:"r" help:"Load a crawl request document (YAML or JSON); flags override its values"`

	Depth       *int   `short:"d" help:"Maximum link depth from the root (default: 2)"`
	Concurrency *int   `short:"c" help:"Concurrent fetch limit (default: 5)"`
	OutputDir   string `short:"o" help:"Directory for chunk artifacts (default: ./docs_content)"`
	LogDir      string `help:"Directory for run logs (default: ./logs)"`

	Timeout      time.Duration `short:"t" default:"30s" help:"Fetch timeout per page"`
	ChunkSize    int           `default:"1000" help:"Maximum chunk length in characters"`
	ChunkOverlap int           `default:"0" help:"Characters repeated from the previous chunk"`
	MaxPages     int           `help:"Stop admitting URLs after this many (0: no limit)"`
	Scope        bool          `help:"Only follow links under the root URL path"`
	Include      []string      `short:"F" sep:"none" help:"Only admit URLs matching this regex (repeatable)"`
	Exclude      []string      `short:"X" sep:"none" help:"Never admit URLs matching this regex (repeatable)"`
	Robots       bool          `help:"Respect robots.txt"`
	Sitemap      bool          `help:"Seed the crawl from the site's sitemap"`
	RateLimit    float64       `help:"Requests per second per host (0: unlimited)"`

	Fetch   string `default:"http" enum:"http,browser" help:"Fetch mode (http, browser)"`
	Content string `default:"selector" enum:"selector,trafilatura,readability" help:"Main content extractor (selector, trafilatura, readability)"`
	Format  string `default:"text" enum:"text,markdown" help:"Chunk text format (text, markdown)"`

	Pages       bool   `help:"Also write one markdown file per page"`
	DB          string `env:"DOCCRAWL_DB" help:"Record run history in this SQLite database"`
	MetricsAddr string `help:"Serve Prometheus metrics on this address while crawling"`
	CountTokens bool   `help:"Count chunk tokens with the Gemini tokenizer"`
	Preview     bool   `short:"p" help:"List sitemap URLs without crawling"`
	Verbose     bool   `short:"v" help:"Log every fetch and extraction"`
}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	List RunsListCmd `cmd:"" help:"List recent runs"`
	Show RunsShowCmd `cmd:"" help:"Show a run's statistics"`
}

// RunsListCmd is the "runs list" subcommand.
type RunsListCmd struct {
	URL   string `help:"Only runs of this root URL"`
	Limit int    `short:"n" default:"20" help:"Maximum number of runs"`
}

// RunsShowCmd is the "runs show" subcommand.
type RunsShowCmd struct {
	ID string `arg:"" help:"Run ID"`
}
