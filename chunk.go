package doccrawl

// Chunk is a bounded-length segment of a page's text, the unit handed to
// the downstream embedding store. Its JSON form is exactly one document of
// the store's ingestion payload.
type Chunk struct {
	Content     string `json:"content"`
	URL         string `json:"url"`
	ChunkLength int    `json:"chunk_length"` // in characters (runes)

	// Index is the 0-based position of the chunk within its page.
	// Chunk identity is (URL, Index).
	Index int `json:"-"`
}

// Chunker splits a page's text into ordered chunks.
type Chunker interface {
	// Chunk splits text extracted from url. Empty or whitespace-only text
	// yields no chunks.
	Chunk(url string, text string) []Chunk
}
