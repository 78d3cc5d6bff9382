// Package http provides HTTP implementations of doccrawl.Fetcher,
// doccrawl.SitemapService and doccrawl.RobotsPolicy for static sites
// that don't require JavaScript rendering.
package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/fwojciec/doccrawl"
)

const (
	// DefaultUserAgent identifies the crawler to documentation sites.
	DefaultUserAgent = "DocBot/1.0 Documentation Crawler"

	// DefaultMaxBodyBytes is the largest page body the fetcher accepts.
	DefaultMaxBodyBytes = 10 << 20
)

var _ doccrawl.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves page content using plain HTTP GET requests.
// Unlike rod.Fetcher, this does not execute JavaScript.
type Fetcher struct {
	client    *http.Client
	transport http.RoundTripper
	timeout   time.Duration
	userAgent string
	maxBody   int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the client timeout for HTTP requests.
// Defaults to doccrawl.DefaultFetchTimeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodyBytes sets the body size above which a fetch fails with
// doccrawl.FetchTooLarge.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBody = n
	}
}

// WithTransport sets the HTTP transport used by the client.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.transport = rt
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   doccrawl.DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
		maxBody:   DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout:   f.timeout,
		Transport: f.transport,
	}

	return f
}

// Fetch retrieves the body of the given URL, following redirects.
// Non-2xx responses fail with doccrawl.FetchBadStatus.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*doccrawl.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &doccrawl.FetchError{Kind: doccrawl.FetchNetwork, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &doccrawl.FetchError{Kind: doccrawl.FetchBadStatus, URL: url, StatusCode: resp.StatusCode}
	}

	if resp.ContentLength > f.maxBody {
		return nil, &doccrawl.FetchError{Kind: doccrawl.FetchTooLarge, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, classify(url, err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, &doccrawl.FetchError{Kind: doccrawl.FetchTooLarge, URL: url}
	}

	return &doccrawl.Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Close releases idle connections.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// classify maps a transport error to a doccrawl.FetchError.
func classify(url string, err error) *doccrawl.FetchError {
	kind := doccrawl.FetchNetwork

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		kind = doccrawl.FetchTimeout
	case errors.As(err, &dnsErr):
		kind = doccrawl.FetchDNSFailure
		if dnsErr.IsTimeout {
			kind = doccrawl.FetchTimeout
		}
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = doccrawl.FetchConnectionRefused
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = doccrawl.FetchTimeout
	}

	return &doccrawl.FetchError{Kind: kind, URL: url, Err: err}
}
