package mock

import "github.com/fwojciec/doccrawl"

var _ doccrawl.ContentExtractor = (*ContentExtractor)(nil)

// ContentExtractor is a mock implementation of doccrawl.ContentExtractor.
type ContentExtractor struct {
	ExtractFn func(html string) (*doccrawl.ExtractResult, error)
}

func (e *ContentExtractor) Extract(html string) (*doccrawl.ExtractResult, error) {
	return e.ExtractFn(html)
}

var _ doccrawl.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of doccrawl.Extractor.
type Extractor struct {
	ExtractFn func(resp *doccrawl.Response) (*doccrawl.Extraction, error)
}

func (e *Extractor) Extract(resp *doccrawl.Response) (*doccrawl.Extraction, error) {
	return e.ExtractFn(resp)
}
