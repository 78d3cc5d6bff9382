package doccrawl

import (
	"context"
	"regexp"
)

// SitemapService discovers URLs from website sitemaps.
// A crawl uses it to seed the frontier with pages the root page may not
// link to directly.
type SitemapService interface {
	// DiscoverURLs returns the page URLs listed in the sitemaps of
	// baseURL's host that pass filter. Sitemaps named by robots.txt are
	// preferred over /sitemap.xml and indexes are followed.
	DiscoverURLs(ctx context.Context, baseURL string, filter *URLFilter) ([]string, error)
}

// URLFilter restricts crawled URLs by regular expression. It applies to
// sitemap discovery and to frontier admission alike. A nil filter admits
// every URL.
type URLFilter struct {
	// Include, when non-empty, admits only URLs matching one of its patterns.
	Include []*regexp.Regexp

	// Exclude rejects URLs matching any of its patterns, even included ones.
	Exclude []*regexp.Regexp
}

// NewURLFilter compiles include and exclude patterns. It returns nil when
// both lists are empty, and EINVALID naming the first pattern that fails
// to compile.
func NewURLFilter(include, exclude []string) (*URLFilter, error) {
	if len(include) == 0 && len(exclude) == 0 {
		return nil, nil
	}
	f := &URLFilter{}
	var err error
	if f.Include, err = compilePatterns("include", include); err != nil {
		return nil, err
	}
	if f.Exclude, err = compilePatterns("exclude", exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compilePatterns(kind string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid %s pattern %q: %v", kind, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Match reports whether url passes the filter.
func (f *URLFilter) Match(url string) bool {
	if f == nil {
		return true
	}
	if len(f.Include) > 0 && !matchAny(f.Include, url) {
		return false
	}
	return !matchAny(f.Exclude, url)
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
