package crawl

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.Extractor = (*PageExtractor)(nil)

// sniffLen is how much of a body is inspected for binary content.
const sniffLen = 8192

// PageExtractor turns a fetched page into text and same-origin links by
// composing a content extractor, a converter and a link selector.
// Content and Converter are required; Links may be nil.
type PageExtractor struct {
	Content   doccrawl.ContentExtractor
	Converter doccrawl.Converter
	Links     doccrawl.LinkSelector
}

// Extract implements doccrawl.Extractor.
func (e *PageExtractor) Extract(resp *doccrawl.Response) (*doccrawl.Extraction, error) {
	kind, err := classifyPayload(resp)
	if err != nil {
		return nil, err
	}

	if kind == payloadPlainText {
		return &doccrawl.Extraction{Text: string(resp.Body)}, nil
	}

	html := string(resp.Body)
	out := &doccrawl.Extraction{}

	if e.Links != nil {
		links, err := e.Links.ExtractLinks(html, resp.URL)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("links: %v", err))
		}
		out.Links = sameOriginLinks(links, resp.URL)
	}

	contentHTML := html
	extracted, err := e.Content.Extract(html)
	switch {
	case err != nil:
		out.Warnings = append(out.Warnings, fmt.Sprintf("content: %v; using full document", err))
	case strings.TrimSpace(extracted.ContentHTML) == "":
		out.Title = extracted.Title
		out.Warnings = append(out.Warnings, "content: no main content found; using full document")
	default:
		out.Title = extracted.Title
		contentHTML = extracted.ContentHTML
	}

	text, err := e.Converter.Convert(contentHTML)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("convert: %v", err))
		return out, nil
	}
	out.Text = text
	return out, nil
}

type payloadKind int

const (
	payloadHTML payloadKind = iota
	payloadPlainText
)

// classifyPayload rejects binary payloads. A missing content type is
// sniffed from the body.
func classifyPayload(resp *doccrawl.Response) (payloadKind, error) {
	head := resp.Body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(head)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}

	var kind payloadKind
	switch {
	case strings.Contains(mediaType, "html"):
		kind = payloadHTML
	case strings.HasPrefix(mediaType, "text/"), strings.HasSuffix(mediaType, "+xml"), mediaType == "application/xml", mediaType == "application/json":
		kind = payloadPlainText
	default:
		return 0, &doccrawl.ExtractionError{URL: resp.URL, Reason: "non-text content type " + mediaType}
	}

	if bytes.IndexByte(head, 0) >= 0 || !mostlyUTF8(head) {
		return 0, &doccrawl.ExtractionError{URL: resp.URL, Reason: "binary payload"}
	}
	return kind, nil
}

// mostlyUTF8 tolerates a few stray bytes, which legacy-encoded pages carry.
func mostlyUTF8(b []byte) bool {
	if utf8.Valid(b) {
		return true
	}
	invalid, total := 0, 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			invalid++
		}
		total++
		b = b[size:]
	}
	return invalid*10 < total
}

// sameOriginLinks keeps links on the page's host, cleaned and deduplicated
// by normalized URL. The highest priority seen for a URL wins.
func sameOriginLinks(links []doccrawl.DiscoveredLink, pageURL string) []doccrawl.DiscoveredLink {
	index := make(map[string]int, len(links))
	var out []doccrawl.DiscoveredLink
	for _, link := range links {
		if !doccrawl.SameHost(link.URL, pageURL) {
			continue
		}
		key, err := doccrawl.NormalizeURL(link.URL)
		if err != nil {
			continue
		}
		clean, _ := doccrawl.CleanURL(link.URL)
		link.URL = clean
		if i, ok := index[key]; ok {
			if link.Priority > out[i].Priority {
				out[i] = link
			}
			continue
		}
		index[key] = len(out)
		out = append(out, link)
	}
	return out
}
