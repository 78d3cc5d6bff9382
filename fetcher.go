package doccrawl

import "context"

// Response is the raw outcome of a successful fetch.
type Response struct {
	// URL is the final URL after redirects. Relative links on the page
	// resolve against it.
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves raw page content from URLs.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch retrieves the URL and returns the response body.
	// Failures are reported as *FetchError so callers can decide whether
	// to retry. The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (*Response, error)

	// Close releases resources.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}
