package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// splitMarkdown sections the document at level 1/2 headings so chunks keep
// their heading context, then recursively splits any oversized section. A
// document without headings, or whose headings carry no body, falls back to
// plain recursive splitting.
func (e *Engine) splitMarkdown(content string) ([]string, error) {
	source := []byte(content)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var sections []string
	var current []string
	var heading string
	sawHeading := false

	flush := func() {
		if len(current) == 0 {
			return
		}
		body := strings.Join(current, "\n\n")
		if heading != "" {
			body = heading + "\n" + body
		}
		sections = append(sections, body)
		current = nil
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok && h.Level <= 2 {
			sawHeading = true
			flush()
			heading = string(h.Text(source))
			continue
		}
		if txt := blockText(node, source); txt != "" {
			current = append(current, txt)
		}
	}
	flush()

	if !sawHeading || len(sections) == 0 {
		return e.splitRecursive(content)
	}

	var out []string
	for _, section := range sections {
		if len(section) <= e.size {
			out = append(out, section)
			continue
		}
		pieces, err := e.splitRecursive(section)
		if err != nil {
			return nil, err
		}
		out = append(out, pieces...)
	}
	return out, nil
}

func blockText(n ast.Node, source []byte) string {
	if fc, ok := n.(*ast.FencedCodeBlock); ok {
		var sb strings.Builder
		for i := 0; i < fc.Lines().Len(); i++ {
			line := fc.Lines().At(i)
			sb.Write(line.Value(source))
		}
		return strings.TrimSpace(sb.String())
	}
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
