package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/fwojciec/doccrawl"
	"github.com/temoto/robotstxt"
)

// maxRobotsBytes bounds how much of a robots.txt file is read.
const maxRobotsBytes = 512 << 10

var _ doccrawl.RobotsPolicy = (*RobotsChecker)(nil)

// RobotsChecker answers robots.txt queries, fetching each host's file once.
// A missing or unreadable robots.txt allows everything.
type RobotsChecker struct {
	client *http.Client
	agent  string

	mu    sync.Mutex
	cache map[string]*robotsEntry
}

type robotsEntry struct {
	once sync.Once
	data *robotstxt.RobotsData
}

// NewRobotsChecker creates a RobotsChecker matching rules for agent.
// If client is nil, http.DefaultClient is used. An empty agent uses
// DefaultUserAgent.
func NewRobotsChecker(client *http.Client, agent string) *RobotsChecker {
	if client == nil {
		client = http.DefaultClient
	}
	if agent == "" {
		agent = DefaultUserAgent
	}
	return &RobotsChecker{
		client: client,
		agent:  agent,
		cache:  make(map[string]*robotsEntry),
	}
}

// Allowed reports whether the agent may fetch rawURL.
func (c *RobotsChecker) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	data := c.robots(ctx, u)
	if data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, c.agent)
}

// Sitemaps returns the Sitemap directives of the host serving rawURL.
func (c *RobotsChecker) Sitemaps(ctx context.Context, rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	data := c.robots(ctx, u)
	if data == nil {
		return nil
	}
	return data.Sitemaps
}

func (c *RobotsChecker) robots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	c.mu.Lock()
	entry, ok := c.cache[robotsURL]
	if !ok {
		entry = &robotsEntry{}
		c.cache[robotsURL] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.data = c.fetch(ctx, robotsURL)
	})
	return entry.data
}

func (c *RobotsChecker) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.agent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data
}
