package mock

import "github.com/fwojciec/doccrawl"

var _ doccrawl.LinkSelector = (*LinkSelector)(nil)

// LinkSelector is a mock implementation of doccrawl.LinkSelector.
type LinkSelector struct {
	ExtractLinksFn func(html string, baseURL string) ([]doccrawl.DiscoveredLink, error)
	NameFn         func() string
}

func (s *LinkSelector) ExtractLinks(html string, baseURL string) ([]doccrawl.DiscoveredLink, error) {
	return s.ExtractLinksFn(html, baseURL)
}

func (s *LinkSelector) Name() string {
	return s.NameFn()
}
