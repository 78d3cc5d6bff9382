package fs

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.ArtifactWriter = (*ArtifactWriter)(nil)

// ArtifactWriter writes a finished run to an output directory as
//
//	<stem>_chunks.json  the chunk array, ready for ingestion
//	<stem>_docs.txt     every page's text in one document
//	<stem>_stats.json   run statistics
//	<stem>_pages/       one markdown file per page (optional)
//
// where stem is the root host with dots replaced by underscores.
type ArtifactWriter struct {
	dir   string
	pages bool
}

// Option configures an ArtifactWriter.
type Option func(*ArtifactWriter)

// WithPages also writes the per-page markdown tree.
func WithPages() Option {
	return func(w *ArtifactWriter) {
		w.pages = true
	}
}

// NewArtifactWriter creates an ArtifactWriter writing to dir.
func NewArtifactWriter(dir string, opts ...Option) *ArtifactWriter {
	w := &ArtifactWriter{dir: dir}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteArtifact writes the artifact files and returns their paths.
// The chunk file is always a JSON array, empty when no page produced text.
func (w *ArtifactWriter) WriteArtifact(ctx context.Context, artifact *doccrawl.RunArtifact) ([]string, error) {
	stem := doccrawl.FileStem(artifact.Stats.RootURL)

	chunks := artifact.Chunks
	if chunks == nil {
		chunks = []doccrawl.Chunk{}
	}
	chunkData, err := marshalJSON(chunks)
	if err != nil {
		return nil, doccrawl.Errorf(doccrawl.EINTERNAL, "encode chunks: %v", err)
	}
	statsData, err := marshalJSON(artifact.Stats)
	if err != nil {
		return nil, doccrawl.Errorf(doccrawl.EINTERNAL, "encode stats: %v", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{stem + "_chunks.json", chunkData},
		{stem + "_docs.txt", []byte(CombinedDocument(artifact.Pages))},
		{stem + "_stats.json", statsData},
	}

	var paths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(w.dir, f.name)
		if err := writeFileAtomic(path, f.data); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if w.pages {
		dir, err := w.writePages(stem, artifact.Pages)
		if err != nil {
			return paths, err
		}
		paths = append(paths, dir)
	}

	return paths, nil
}

func (w *ArtifactWriter) writePages(stem string, pages []*doccrawl.PageResult) (string, error) {
	store := NewPageStore(w.dir, stem+"_pages")
	for _, p := range pages {
		if p.Err != nil || strings.TrimSpace(p.Text) == "" {
			continue
		}
		if err := store.Save(p); err != nil {
			_ = store.Abort()
			return "", err
		}
	}
	if err := store.Commit(); err != nil {
		_ = store.Abort()
		return "", err
	}
	return store.Dir(), nil
}

// CombinedDocument joins the text of every successful page as
// "# Content from <url>" sections separated by horizontal rules.
func CombinedDocument(pages []*doccrawl.PageResult) string {
	var sections []string
	for _, p := range pages {
		if p.Err != nil || strings.TrimSpace(p.Text) == "" {
			continue
		}
		sections = append(sections, "# Content from "+p.URL+"\n\n"+p.Text)
	}
	return strings.Join(sections, "\n\n---\n\n")
}
