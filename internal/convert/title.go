package convert

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var markdownParser parser.Parser = goldmark.New().Parser()

// Title returns the text of the first level-1 heading in markdown, or of the
// first heading of any level when there is no H1. It returns "" when the
// document has no headings.
func Title(markdown string) string {
	src := []byte(markdown)
	doc := markdownParser.Parse(text.NewReader(src))

	var first, h1 string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		t := strings.TrimSpace(inlineText(h, src))
		if t == "" {
			return ast.WalkSkipChildren, nil
		}
		if first == "" {
			first = t
		}
		if h.Level == 1 {
			h1 = t
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})

	if h1 != "" {
		return h1
	}
	return first
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		default:
			b.WriteString(inlineText(c, src))
		}
	}
	return b.String()
}
