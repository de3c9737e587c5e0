package extractor

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown handles Markdown content using goldmark. Inline markup is
// stripped; headings and block text are flattened into paragraphs
// separated by blank lines.
type Markdown struct{}

func (e *Markdown) Extract(data []byte) (string, error) {
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var out strings.Builder
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		t := blockText(n, data)
		if t == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(t)
	}
	return out.String(), nil
}

// blockText gets the text content of a goldmark AST node. Leaf blocks with
// inline children (paragraphs, headings) flatten their inline text, which
// drops emphasis and link markup. Code blocks keep their raw lines.
// Container blocks like lists recurse.
func blockText(n ast.Node, src []byte) string {
	if n.HasChildren() && n.FirstChild().Type() == ast.TypeInline {
		return strings.TrimSpace(inlineText(n, src))
	}

	if lines := n.Lines(); lines.Len() > 0 {
		var buf bytes.Buffer
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}

	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, src); t != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(t)
		}
	}
	return strings.TrimSpace(buf.String())
}

// inlineText concatenates the text segments under an inline tree.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.AutoLink:
			buf.Write(t.URL(src))
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}
