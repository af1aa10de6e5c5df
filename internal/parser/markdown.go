package parser

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"document-qa/internal/models"
)

// parseMarkdown walks the goldmark AST and groups text under the nearest
// preceding heading, which becomes the region's source label.
func parseMarkdown(filePath string) (models.Document, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return models.Document{}, err
	}

	root := goldmark.New().Parser().Parse(text.NewReader(src))

	b := newRegionBuilder(filePath)
	label := "document"
	var section strings.Builder
	flush := func() {
		b.add(label, section.String())
		section.Reset()
	}

	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, ok := n.(*ast.Paragraph); ok {
				section.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			flush()
			label = headingText(node, src)
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			section.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				section.WriteString(" ")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return models.Document{}, err
	}
	flush()
	return b.document(), nil
}

func headingText(node *ast.Heading, src []byte) string {
	var b strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	label := strings.TrimSpace(b.String())
	if label == "" {
		return "document"
	}
	return label
}
