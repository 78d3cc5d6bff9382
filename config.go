package doccrawl

import "time"

// Crawl defaults.
const (
	DefaultDepth        = 2
	DefaultConcurrency  = 5
	DefaultOutputDir    = "./docs_content"
	DefaultLogDir       = "./logs"
	DefaultChunkSize    = 1000
	DefaultFetchTimeout = 30 * time.Second
)

// CrawlConfig is the immutable configuration of one crawl run.
type CrawlConfig struct {
	RootURL     string
	MaxDepth    int           // 0 crawls the root page only
	Concurrency int           // maximum fetches in flight
	Timeout     time.Duration // per-request timeout

	OutputDir string
	LogDir    string

	ChunkSize    int // maximum chunk length in characters
	ChunkOverlap int // characters repeated from the previous chunk

	// MaxPages caps the number of admitted URLs. Zero means no cap.
	MaxPages int

	// ScopeToPath restricts traversal to URLs under the root URL's path.
	ScopeToPath bool

	// Filter further restricts which discovered URLs are admitted.
	Filter *URLFilter

	RespectRobots bool
	UseSitemap    bool

	// RateLimit is the per-host request rate in requests per second.
	// Zero disables rate limiting.
	RateLimit float64
}

// WithDefaults returns a copy of c with zero-valued optional fields filled in.
// MaxDepth and Concurrency are left untouched so invalid values are still
// reported by Validate.
func (c CrawlConfig) WithDefaults() CrawlConfig {
	if c.Timeout == 0 {
		c.Timeout = DefaultFetchTimeout
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	return c
}

// Validate returns a *ConfigError if the configuration cannot start a run.
func (c CrawlConfig) Validate() error {
	if c.RootURL == "" {
		return configErrorf(ConfigInvalidURL, "root URL required")
	}
	if _, err := NormalizeURL(c.RootURL); err != nil {
		return configErrorf(ConfigInvalidURL, "%s", ErrorMessage(err))
	}
	if c.MaxDepth < 0 {
		return configErrorf(ConfigInvalidDepth, "depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.Concurrency < 1 {
		return configErrorf(ConfigInvalidConcurrency, "concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.ChunkSize < 1 {
		return configErrorf(ConfigInvalidChunking, "chunk size must be >= 1, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return configErrorf(ConfigInvalidChunking, "chunk overlap must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap)
	}
	if c.Timeout < 0 {
		return configErrorf(ConfigInvalidOption, "timeout must not be negative")
	}
	if c.MaxPages < 0 {
		return configErrorf(ConfigInvalidOption, "max pages must not be negative")
	}
	if c.RateLimit < 0 {
		return configErrorf(ConfigInvalidOption, "rate limit must not be negative")
	}
	return nil
}

// CrawlRequest is the external crawl request document.
// Missing fields take the service defaults.
type CrawlRequest struct {
	URL         string `json:"url" yaml:"url"`
	Depth       *int   `json:"depth,omitempty" yaml:"depth,omitempty"`
	Concurrency *int   `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	OutputDir   string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	LogDir      string `json:"log_dir,omitempty" yaml:"log_dir,omitempty"`
}

// Config converts the request into a crawl configuration with defaults applied.
func (r *CrawlRequest) Config() CrawlConfig {
	cfg := CrawlConfig{
		RootURL:     r.URL,
		MaxDepth:    DefaultDepth,
		Concurrency: DefaultConcurrency,
		OutputDir:   r.OutputDir,
		LogDir:      r.LogDir,
	}
	if r.Depth != nil {
		cfg.MaxDepth = *r.Depth
	}
	if r.Concurrency != nil {
		cfg.Concurrency = *r.Concurrency
	}
	return cfg.WithDefaults()
}
