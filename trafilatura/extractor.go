package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/doccrawl"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

var _ doccrawl.ContentExtractor = (*Extractor)(nil)

// Extractor selects main content with go-trafilatura's scoring heuristics.
type Extractor struct {
	fallback bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithoutFallback disables the readability and dom-distiller fallbacks,
// trading recall for speed.
func WithoutFallback() Option {
	return func(e *Extractor) {
		e.fallback = false
	}
}

// NewExtractor creates a new Extractor with fallbacks enabled.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{fallback: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract processes raw HTML and returns the main content.
// Returns ENOTFOUND when no content node could be identified.
func (e *Extractor) Extract(rawHTML string) (*doccrawl.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, doccrawl.Errorf(doccrawl.EINVALID, "empty HTML input")
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), trafilatura.Options{
		EnableFallback: e.fallback,
	})
	if err != nil {
		return nil, doccrawl.Errorf(doccrawl.EINTERNAL, "trafilatura: %v", err)
	}
	if result == nil || result.ContentNode == nil {
		return nil, doccrawl.Errorf(doccrawl.ENOTFOUND, "no main content found")
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, result.ContentNode); err != nil {
		return nil, doccrawl.Errorf(doccrawl.EINTERNAL, "render content: %v", err)
	}

	return &doccrawl.ExtractResult{
		Title:       strings.TrimSpace(result.Metadata.Title),
		ContentHTML: buf.String(),
	}, nil
}
