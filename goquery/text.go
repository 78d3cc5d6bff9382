package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/doccrawl"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var _ doccrawl.Converter = (*TextConverter)(nil)

// TextConverter renders HTML as plain text the way a browser lays it out:
// block elements are separated by blank lines, list items and table rows
// start new lines, runs of whitespace collapse to one space and <pre>
// content is kept verbatim.
type TextConverter struct{}

// NewTextConverter creates a TextConverter.
func NewTextConverter() *TextConverter {
	return &TextConverter{}
}

// Convert renders html as plain text.
func (c *TextConverter) Convert(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", doccrawl.Errorf(doccrawl.EINVALID, "failed to parse HTML: %v", err)
	}
	var r textRenderer
	for _, n := range doc.Nodes {
		r.render(n)
	}
	return collapseBlankLines(strings.TrimSpace(r.b.String())), nil
}

// collapseBlankLines reduces runs of blank lines left by <pre> content to one.
func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

// break levels
const (
	breakNone = iota
	breakLine
	breakParagraph
)

var skipped = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
	atom.Head: true, atom.Svg: true, atom.Iframe: true,
}

var paragraphBlocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true, atom.Main: true,
	atom.Header: true, atom.Footer: true, atom.Blockquote: true, atom.Pre: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Table: true, atom.Figure: true,
	atom.Hr: true, atom.Details: true, atom.Form: true, atom.Fieldset: true, atom.Address: true,
}

var lineBlocks = map[atom.Atom]bool{
	atom.Li: true, atom.Tr: true, atom.Dt: true, atom.Dd: true, atom.Caption: true,
	atom.Figcaption: true, atom.Summary: true,
}

type textRenderer struct {
	b       strings.Builder
	pending int
	space   bool
	pre     int
}

func (r *textRenderer) breakAt(level int) {
	if level > r.pending {
		r.pending = level
	}
	r.space = false
}

func (r *textRenderer) write(s string) {
	if s == "" {
		return
	}
	if r.b.Len() > 0 {
		switch r.pending {
		case breakLine:
			r.b.WriteString("\n")
		case breakParagraph:
			r.b.WriteString("\n\n")
		default:
			if r.space && !strings.HasSuffix(r.b.String(), "\n") {
				r.b.WriteString(" ")
			}
		}
	}
	r.pending = breakNone
	r.space = false
	r.b.WriteString(s)
}

func (r *textRenderer) text(data string) {
	if r.pre > 0 {
		r.write(data)
		return
	}
	if data == "" {
		return
	}
	words := strings.Fields(data)
	if len(words) == 0 {
		r.space = true
		return
	}
	if isSpace(data[0]) {
		r.space = true
	}
	r.write(strings.Join(words, " "))
	if isSpace(data[len(data)-1]) {
		r.space = true
	}
}

func (r *textRenderer) render(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		r.text(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
	}

	a := n.DataAtom
	switch {
	case a == atom.Br:
		if r.pending == breakNone && r.b.Len() > 0 {
			r.b.WriteString("\n")
			r.space = false
		}
		return
	case paragraphBlocks[a]:
		r.breakAt(breakParagraph)
	case lineBlocks[a]:
		r.breakAt(breakLine)
	case a == atom.Td || a == atom.Th:
		if r.pending == breakNone {
			r.space = true
		}
	}

	if a == atom.Pre {
		r.pre++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.render(c)
	}
	if a == atom.Pre {
		r.pre--
	}

	switch {
	case paragraphBlocks[a]:
		r.breakAt(breakParagraph)
	case lineBlocks[a]:
		r.breakAt(breakLine)
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
