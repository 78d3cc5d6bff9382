package doccrawl

// TextFormat selects how extracted HTML is rendered to text.
type TextFormat string

// Supported text formats.
const (
	FormatText     TextFormat = "text"
	FormatMarkdown TextFormat = "markdown"
)

// Converter renders clean HTML into retrieval text.
type Converter interface {
	// Convert transforms HTML content into text.
	// The input should be clean HTML (e.g., from a ContentExtractor).
	Convert(html string) (string, error)
}
