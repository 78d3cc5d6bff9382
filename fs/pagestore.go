package fs

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/doccrawl"
)

// PageStore writes one markdown file per page with YAML frontmatter.
// Pages are saved to a temporary directory and swapped in on Commit, so a
// previous tree stays intact until the new one is complete.
type PageStore struct {
	baseDir string
	name    string
	now     func() time.Time
}

// NewPageStore creates a PageStore writing to baseDir/name.
// Files are saved to baseDir/name.tmp and moved to baseDir/name on Commit.
func NewPageStore(baseDir, name string) *PageStore {
	return &PageStore{
		baseDir: baseDir,
		name:    name,
		now:     time.Now,
	}
}

func (s *PageStore) tempDir() string {
	return filepath.Join(s.baseDir, s.name+".tmp")
}

// Dir returns the final directory of the page tree.
func (s *PageStore) Dir() string {
	return filepath.Join(s.baseDir, s.name)
}

// Save writes a successfully fetched page into the temporary tree.
func (s *PageStore) Save(page *doccrawl.PageResult) error {
	relPath, err := URLToPath(page.URL)
	if err != nil {
		return doccrawl.Errorf(doccrawl.EINVALID, "page path for %s: %v", page.URL, err)
	}

	fullPath := filepath.Join(s.tempDir(), relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, []byte(FormatPage(page, s.now())), 0644)
}

// FormatPage formats a page with YAML frontmatter.
func FormatPage(page *doccrawl.PageResult, crawled time.Time) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("source: ")
	b.WriteString(page.URL)
	if page.FinalURL != "" && page.FinalURL != page.URL {
		b.WriteString("\nfinal: ")
		b.WriteString(page.FinalURL)
	}
	b.WriteString("\ntitle: ")
	b.WriteString(quoteYAML(page.Title))
	b.WriteString("\ncrawled: ")
	b.WriteString(crawled.Format("2006-01-02"))
	b.WriteString("\n---\n\n")
	b.WriteString(page.Text)
	b.WriteString("\n")
	return b.String()
}

// quoteYAML double-quotes s when it would not parse as a plain scalar.
func quoteYAML(s string) string {
	if s == "" || strings.ContainsAny(s, ":#\"'{}[]&*!|>%@`") || strings.TrimSpace(s) != s {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
	}
	return s
}

// Commit replaces the final directory with the temporary tree.
func (s *PageStore) Commit() error {
	if err := os.RemoveAll(s.Dir()); err != nil {
		return err
	}
	return os.Rename(s.tempDir(), s.Dir())
}

// Abort discards the temporary tree.
func (s *PageStore) Abort() error {
	return os.RemoveAll(s.tempDir())
}
