// Package rod provides a doccrawl.Fetcher that renders pages in headless
// Chrome, for documentation sites that build their content with JavaScript.
package rod

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.Fetcher = (*Fetcher)(nil)

// snapshotJS serializes the rendered document, including open shadow roots,
// together with the final URL and the navigation's HTTP status.
const snapshotJS = `() => {
  const root = document.documentElement;
  let html;
  if (typeof root.getHTML === 'function') {
    const shadowRoots = Array.from(document.querySelectorAll('*')).map(e => e.shadowRoot).filter(Boolean);
    html = '<!DOCTYPE html><html>' + root.getHTML({serializableShadowRoots: true, shadowRoots}) + '</html>';
  } else {
    html = '<!DOCTYPE html>' + root.outerHTML;
  }
  const nav = performance.getEntriesByType('navigation')[0];
  return {html, url: location.href, status: nav && nav.responseStatus ? nav.responseStatus : 0};
}`

// Fetcher retrieves rendered HTML using Chrome browser automation.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager *BrowserManager
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*fetcherConfig)

type fetcherConfig struct {
	timeout      time.Duration
	recycleAfter int
}

// WithFetchTimeout bounds a single page render.
// Defaults to doccrawl.DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *fetcherConfig) {
		c.timeout = d
	}
}

// WithBrowserRecycling replaces the browser after n rendered pages.
func WithBrowserRecycling(n int) Option {
	return func(c *fetcherConfig) {
		c.recycleAfter = n
	}
}

// NewFetcher launches a headless Chrome browser.
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	cfg := fetcherConfig{
		timeout:      doccrawl.DefaultFetchTimeout,
		recycleAfter: DefaultRecycleAfter,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	manager, err := NewBrowserManager(WithRecycleAfter(cfg.recycleAfter))
	if err != nil {
		return nil, err
	}
	return &Fetcher{manager: manager, timeout: cfg.timeout}, nil
}

// Fetch navigates to the URL, waits for the load event and returns the
// rendered document. HTTP error statuses fail with doccrawl.FetchBadStatus.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*doccrawl.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, navigationError(url, err)
	}

	page, release, err := f.manager.NewPage()
	if err != nil {
		if doccrawl.ErrorCode(err) == doccrawl.EINVALID {
			return nil, err
		}
		return nil, navigationError(url, err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return nil, navigationError(url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, navigationError(url, err)
	}

	res, err := page.Eval(snapshotJS)
	if err != nil {
		return nil, navigationError(url, err)
	}

	status := res.Value.Get("status").Int()
	if status >= 400 {
		return nil, &doccrawl.FetchError{Kind: doccrawl.FetchBadStatus, URL: url, StatusCode: status}
	}
	if status == 0 {
		status = 200
	}

	finalURL := res.Value.Get("url").Str()
	if finalURL == "" {
		finalURL = url
	}

	return &doccrawl.Response{
		URL:         finalURL,
		StatusCode:  status,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(res.Value.Get("html").Str()),
	}, nil
}

// Close releases browser resources. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	return f.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}

// NavigationErrorKind maps a Chrome navigation failure to a fetch error kind.
func NavigationErrorKind(err error) doccrawl.FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return doccrawl.FetchTimeout
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ERR_NAME_NOT_RESOLVED"), strings.Contains(msg, "ERR_NAME_RESOLUTION_FAILED"):
		return doccrawl.FetchDNSFailure
	case strings.Contains(msg, "ERR_CONNECTION_REFUSED"):
		return doccrawl.FetchConnectionRefused
	case strings.Contains(msg, "ERR_TIMED_OUT"), strings.Contains(msg, "ERR_CONNECTION_TIMED_OUT"):
		return doccrawl.FetchTimeout
	default:
		return doccrawl.FetchNetwork
	}
}

func navigationError(url string, err error) *doccrawl.FetchError {
	return &doccrawl.FetchError{Kind: NavigationErrorKind(err), URL: url, Err: err}
}
