package doccrawl

import "context"

// URLStatus is the lifecycle state of a URL within one crawl run.
type URLStatus string

// URL lifecycle states. Discovered URLs that fail admission never get a
// record; every admitted URL moves forward exactly once per state.
const (
	StatusDiscovered URLStatus = "discovered"
	StatusAdmitted   URLStatus = "admitted"
	StatusFetching   URLStatus = "fetching"
	StatusFetched    URLStatus = "fetched"
	StatusFailed     URLStatus = "failed"
	StatusSkipped    URLStatus = "skipped" // fetched, but redirected onto another page
)

// Terminal reports whether no further transition is possible.
func (s URLStatus) Terminal() bool {
	return s == StatusFetched || s == StatusFailed || s == StatusSkipped
}

// URLRecord tracks one URL admitted to the frontier.
// Key is the normalized identity; URL is the form that gets fetched.
type URLRecord struct {
	Key      string
	URL      string
	Depth    int
	Priority LinkPriority
	Parent   string
	Status   URLStatus
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

// RobotsPolicy decides whether a URL may be crawled according to the
// site's robots.txt.
type RobotsPolicy interface {
	// Allowed reports whether the URL may be fetched. Implementations
	// allow crawling when robots.txt is missing or unreadable.
	Allowed(ctx context.Context, url string) bool
}
