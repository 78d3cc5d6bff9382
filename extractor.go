package doccrawl

// ExtractResult holds the main content selected from an HTML page.
type ExtractResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// ContentHTML is the main content as clean HTML.
	// Boilerplate (nav, footer, sidebar, scripts) has been removed.
	ContentHTML string
}

// ContentExtractor selects the main content of an HTML page, removing boilerplate.
type ContentExtractor interface {
	// Extract processes raw HTML and returns the main content.
	Extract(html string) (*ExtractResult, error)
}

// Extraction is the best-effort result of turning one fetched page into
// text and links. Recoverable problems are reported as warnings rather
// than errors.
type Extraction struct {
	Title    string
	Text     string
	Links    []DiscoveredLink
	Warnings []string
}

// Extractor turns a fetched page into plain text and same-origin links.
type Extractor interface {
	// Extract parses the response body. It returns *ExtractionError only
	// when the payload is not text at all; partial parse problems degrade
	// into Extraction.Warnings.
	Extract(resp *Response) (*Extraction, error)
}
