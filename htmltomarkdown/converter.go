package htmltomarkdown

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.Converter = (*Converter)(nil)

// Converter renders clean HTML as Markdown for retrieval.
type Converter struct {
	conv       *converter.Converter
	keepImages bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithImages keeps image references in the output. By default images are
// dropped since they carry no text for embedding.
func WithImages() Option {
	return func(c *Converter) {
		c.keepImages = true
	}
}

// NewConverter creates a Converter with CommonMark and table support.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert transforms HTML content into Markdown.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", doccrawl.Errorf(doccrawl.EINVALID, "empty HTML input")
	}

	if !c.keepImages {
		stripped, err := stripImages(html)
		if err != nil {
			return "", err
		}
		html = stripped
	}

	md, err := c.conv.ConvertString(html)
	if err != nil {
		return "", doccrawl.Errorf(doccrawl.EINTERNAL, "convert to markdown: %v", err)
	}
	return strings.TrimSpace(md), nil
}

func stripImages(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", doccrawl.Errorf(doccrawl.EINVALID, "failed to parse HTML: %v", err)
	}
	imgs := doc.Find("img, picture")
	if imgs.Length() == 0 {
		return html, nil
	}
	imgs.Remove()
	out, err := doc.Find("body").Html()
	if err != nil {
		return "", doccrawl.Errorf(doccrawl.EINTERNAL, "failed to render HTML: %v", err)
	}
	return out, nil
}
