package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.ContentExtractor = (*ContentSelector)(nil)

// DefaultContentSelectors locate the main content of common documentation
// layouts, tried in order.
var DefaultContentSelectors = []string{
	"main",
	"article",
	".content",
	".documentation",
	".docs",
	"#content",
	"#main",
	".main-content",
	".markdown-section",
	".markdown-body",
}

// boilerplateSelector matches elements that never carry documentation text.
const boilerplateSelector = `script, style, noscript, template, svg, nav, aside, form, iframe, [role="navigation"]`

// ContentSelector picks the main content of a page by CSS selector, falling
// back to the whole body.
type ContentSelector struct {
	Selectors []string
}

// NewContentSelector creates a ContentSelector using DefaultContentSelectors.
func NewContentSelector() *ContentSelector {
	return &ContentSelector{Selectors: DefaultContentSelectors}
}

// Extract returns the HTML of the first selector that matches an element
// with non-empty text. Page chrome is removed first; header elements
// survive only when they hold a heading.
func (s *ContentSelector) Extract(html string) (*doccrawl.ExtractResult, error) {
	if strings.TrimSpace(html) == "" {
		return nil, doccrawl.Errorf(doccrawl.EINVALID, "empty HTML input")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, doccrawl.Errorf(doccrawl.EINVALID, "failed to parse HTML: %v", err)
	}

	title := Title(doc)

	doc.Find(boilerplateSelector).Remove()
	doc.Find("footer").Remove()
	doc.Find("header").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		return sel.Find("h1, h2, h3").Length() == 0
	}).Remove()

	for _, selector := range s.Selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 || strings.TrimSpace(sel.Text()) == "" {
			continue
		}
		content, err := goquery.OuterHtml(sel)
		if err != nil {
			return nil, doccrawl.Errorf(doccrawl.EINTERNAL, "failed to render %s: %v", selector, err)
		}
		return &doccrawl.ExtractResult{Title: title, ContentHTML: content}, nil
	}

	body := doc.Find("body")
	content, err := body.Html()
	if err != nil {
		return nil, doccrawl.Errorf(doccrawl.EINTERNAL, "failed to render body: %v", err)
	}
	return &doccrawl.ExtractResult{Title: title, ContentHTML: content}, nil
}

// Title returns the page title from og:title, <title> or the first <h1>.
func Title(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := strings.TrimSpace(og); t != "" {
			return t
		}
	}
	if t := collapse(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return collapse(doc.Find("h1").First().Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
