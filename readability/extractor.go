package readability

import (
	"strings"

	"github.com/fwojciec/doccrawl"
	"github.com/go-shiori/go-readability"
)

var _ doccrawl.ContentExtractor = (*Extractor)(nil)

// Extractor selects main content using Mozilla's Readability algorithm.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the main content.
// Returns ENOTFOUND when the page has no readable article.
func (e *Extractor) Extract(rawHTML string) (*doccrawl.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, doccrawl.Errorf(doccrawl.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, doccrawl.Errorf(doccrawl.EINTERNAL, "readability: %v", err)
	}
	if strings.TrimSpace(article.TextContent) == "" {
		return nil, doccrawl.Errorf(doccrawl.ENOTFOUND, "no readable content")
	}

	return &doccrawl.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		ContentHTML: article.Content,
	}, nil
}
