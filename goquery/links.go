package goquery

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.LinkSelector = (*LinkSelector)(nil)

// Region maps a CSS selector for anchors to the priority of links found there.
type Region struct {
	Selector string
	Priority doccrawl.LinkPriority
	Source   string
}

// DefaultRegions are universal documentation page regions, highest priority first.
var DefaultRegions = []Region{
	{Selector: `.toc a[href], .table-of-contents a[href], .sidebar a[href], aside a[href]`, Priority: doccrawl.PriorityTOC, Source: "toc"},
	{Selector: `nav a[href], [role="navigation"] a[href], .nav a[href], .menu a[href], .navbar a[href]`, Priority: doccrawl.PriorityNavigation, Source: "nav"},
	{Selector: `main a[href], article a[href], .content a[href], .doc-content a[href]`, Priority: doccrawl.PriorityContent, Source: "content"},
	{Selector: `footer a[href], .footer a[href]`, Priority: doccrawl.PriorityFooter, Source: "footer"},
}

// assetExtensions are link targets that are never documentation pages.
var assetExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true,
	".pdf": true, ".zip": true, ".gz": true, ".tgz": true, ".tar": true, ".dmg": true, ".exe": true,
	".css": true, ".js": true, ".mp4": true, ".mp3": true, ".woff": true, ".woff2": true,
}

// LinkSelector extracts same-host links from a page, ranked by the page
// region they appear in. With Fallback set, every other same-host anchor is
// also returned with PriorityFallback.
type LinkSelector struct {
	Regions  []Region
	Fallback bool
}

// NewLinkSelector creates a LinkSelector with DefaultRegions and fallback enabled.
func NewLinkSelector() *LinkSelector {
	return &LinkSelector{Regions: DefaultRegions, Fallback: true}
}

// Name returns the selector's identifier.
func (s *LinkSelector) Name() string {
	return "generic"
}

// ExtractLinks parses HTML and returns discovered links with priority.
// Links are deduplicated by URL, keeping the highest priority version, and
// returned in region order. Fragments are stripped, and links
// that leave the base host or point back at the page itself are dropped.
// A <base href> element overrides baseURL for resolution.
func (s *LinkSelector) ExtractLinks(html string, baseURL string) ([]doccrawl.DiscoveredLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, doccrawl.Errorf(doccrawl.EINVALID, "invalid base URL %q", baseURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, doccrawl.Errorf(doccrawl.EINVALID, "failed to parse HTML: %v", err)
	}

	resolveBase := base
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			resolveBase = b
		}
	}

	seen := make(map[string]int)
	var links []doccrawl.DiscoveredLink

	collect := func(selector string, priority doccrawl.LinkPriority, source string) {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			resolved := resolveURL(resolveBase, base, href)
			if resolved == "" {
				return
			}
			link := doccrawl.DiscoveredLink{
				URL:      resolved,
				Priority: priority,
				Text:     strings.Join(strings.Fields(sel.Text()), " "),
				Source:   source,
			}
			if idx, ok := seen[resolved]; ok {
				if priority > links[idx].Priority {
					links[idx] = link
				}
				return
			}
			seen[resolved] = len(links)
			links = append(links, link)
		})
	}

	for _, region := range s.Regions {
		collect(region.Selector, region.Priority, region.Source)
	}
	if s.Fallback {
		collect("a[href]", doccrawl.PriorityFallback, "fallback")
	}

	return links, nil
}

// resolveURL resolves href against base and returns the absolute URL with
// its fragment stripped. It returns "" for non-HTTP schemes, other hosts,
// asset files and links back to page itself.
func resolveURL(base, page *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || isNonHTTPLink(href) {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if !strings.EqualFold(resolved.Host, page.Host) {
		return ""
	}
	if assetExtensions[strings.ToLower(path.Ext(resolved.Path))] {
		return ""
	}

	result := resolved.String()
	self := *page
	self.Fragment = ""
	self.RawFragment = ""
	if result == self.String() {
		return ""
	}
	return result
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(href)
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
