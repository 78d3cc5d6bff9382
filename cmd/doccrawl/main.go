package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/doccrawl"
	"github.com/fwojciec/doccrawl/crawl"
	"github.com/fwojciec/doccrawl/fs"
	"github.com/fwojciec/doccrawl/gemini"
	"github.com/fwojciec/doccrawl/goquery"
	"github.com/fwojciec/doccrawl/htmltomarkdown"
	dchttp "github.com/fwojciec/doccrawl/http"
	"github.com/fwojciec/doccrawl/prometheus"
	"github.com/fwojciec/doccrawl/readability"
	"github.com/fwojciec/doccrawl/rod"
	dcslog "github.com/fwojciec/doccrawl/slog"
	"github.com/fwojciec/doccrawl/sqlite"
	"github.com/fwojciec/doccrawl/trafilatura"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Run history database path for the runs command. Set before calling Run().
	DBPath string

	// SQLite database, opened when run history is needed.
	DB *sqlite.DB

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i].Close())
	}
	m.closers = nil
	if m.DB != nil {
		errs = append(errs, m.DB.Close())
		m.DB = nil
	}
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("doccrawl"),
		kong.Description("Crawl documentation sites into retrieval-ready chunks"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'doccrawl --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd {
	case "crawl":
		if err := m.wireCrawl(deps, &cli.Crawl); err != nil {
			return err
		}
	case "runs":
		if err := m.openDB(m.DBPath, stderr); err != nil {
			return err
		}
		deps.Runs = sqlite.NewRunService(m.DB)
	}

	return kongCtx.Run(deps)
}

// wireCrawl builds the crawler and its collaborators from the crawl flags.
func (m *Main) wireCrawl(deps *Dependencies, c *CrawlCmd) error {
	cfg, err := c.Config()
	if err != nil {
		// Reported by CrawlCmd.Run.
		deps.Logger = slog.New(slog.NewTextHandler(deps.Stderr, nil))
		return nil
	}

	logger, err := m.newLogger(cfg.LogDir, deps.Stderr, c.Verbose)
	if err != nil {
		return err
	}
	deps.Logger = logger

	sitemaps := dchttp.NewSitemapService(nil)
	deps.Sitemaps = dcslog.NewLoggingSitemapService(sitemaps, logger)
	if c.Preview {
		return nil
	}

	var fetcher doccrawl.Fetcher
	switch c.Fetch {
	case "browser":
		f, err := rod.NewFetcher(rod.WithFetchTimeout(cfg.Timeout))
		if err != nil {
			fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed")
			return fmt.Errorf("failed to start browser: %w", err)
		}
		fetcher = f
	default:
		fetcher = dchttp.NewFetcher(dchttp.WithTimeout(cfg.Timeout))
	}
	m.closers = append(m.closers, fetcher)

	extractor := &crawl.PageExtractor{
		Content:   contentExtractor(c.Content),
		Converter: converter(doccrawl.TextFormat(c.Format)),
		Links:     goquery.NewLinkSelector(),
	}

	runLogs := dcslog.MultiRunLog{fs.NewRunLog(cfg.LogDir)}
	if c.DB != "" {
		if err := m.openDB(c.DB, deps.Stderr); err != nil {
			return err
		}
		deps.Runs = sqlite.NewRunService(m.DB)
		runLogs = append(runLogs, deps.Runs)
	}

	deps.Crawler = &crawl.Crawler{
		Fetcher:   dcslog.NewLoggingFetcher(fetcher, logger),
		Extractor: dcslog.NewLoggingExtractor(extractor, logger),
		Sitemaps:  deps.Sitemaps,
		Robots:    dchttp.NewRobotsChecker(nil, dchttp.DefaultUserAgent),
		RunLog:    dcslog.NewLoggingRunLog(runLogs, logger),
		Logger:    logger,
	}

	if c.CountTokens {
		tc, err := gemini.NewTokenCounter(gemini.DefaultModel)
		if err != nil {
			return fmt.Errorf("failed to create token counter: %w", err)
		}
		deps.Crawler.TokenCounter = tc
	}

	var opts []fs.Option
	if c.Pages {
		opts = append(opts, fs.WithPages())
	}
	deps.Artifacts = dcslog.NewLoggingArtifactWriter(fs.NewArtifactWriter(cfg.OutputDir, opts...), logger)

	if c.MetricsAddr != "" {
		deps.Metrics = prometheus.NewObserver(prometheus.WithRuntimeMetrics())
		m.serveMetrics(c.MetricsAddr, deps.Metrics, logger)
	}
	return nil
}

func (m *Main) openDB(path string, stderr io.Writer) error {
	m.DB = sqlite.NewDB(path)
	if err := m.DB.Open(); err != nil {
		m.DB = nil
		fmt.Fprintf(stderr, "Hint: Set DOCCRAWL_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", path, err)
	}
	return nil
}

// newLogger logs to stderr and to <logDir>/<YYYYMMDD_HHMMSS>.log.
func (m *Main) newLogger(logDir string, stderr io.Writer, verbose bool) (*slog.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	name := time.Now().Format("20060102_150405") + ".log"
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	m.closers = append(m.closers, f)

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(io.MultiWriter(stderr, f), &slog.HandlerOptions{Level: level})), nil
}

type serverCloser struct{ srv *http.Server }

func (s serverCloser) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (m *Main) serveMetrics(addr string, observer *prometheus.Observer, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observer.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "addr", addr, "err", err)
		}
	}()
	m.closers = append(m.closers, serverCloser{srv})
}

func contentExtractor(name string) doccrawl.ContentExtractor {
	switch name {
	case "trafilatura":
		return trafilatura.NewExtractor()
	case "readability":
		return readability.NewExtractor()
	default:
		return goquery.NewContentSelector()
	}
}

func converter(format doccrawl.TextFormat) doccrawl.Converter {
	if format == doccrawl.FormatMarkdown {
		return htmltomarkdown.NewConverter()
	}
	return goquery.NewTextConverter()
}

func defaultDBPath() string {
	if path := os.Getenv("DOCCRAWL_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "doccrawl.db"
	}
	dir := filepath.Join(home, ".doccrawl")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "doccrawl.db")
}
