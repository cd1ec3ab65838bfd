// ABOUTME: Markdown to terminal text conversion for agent answers
// ABOUTME: Walks the goldmark AST and keeps structure (lists, code, links) as plain text

package render

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var parser = goldmark.New().Parser()

// PlainText renders markdown as plain terminal text.
func PlainText(markdown string) string {
	source := []byte(markdown)
	doc := parser.Parse(text.NewReader(source))

	var b strings.Builder
	listDepth := 0

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if !entering {
				b.WriteString("\n\n")
			}
		case *ast.Paragraph:
			if !entering {
				b.WriteString("\n")
				if _, inItem := node.Parent().(*ast.ListItem); !inItem {
					b.WriteString("\n")
				}
			}
		case *ast.TextBlock:
			if !entering {
				b.WriteString("\n")
			}
		case *ast.List:
			if entering {
				listDepth++
			} else {
				listDepth--
				if listDepth == 0 {
					b.WriteString("\n")
				}
			}
		case *ast.ListItem:
			if entering {
				b.WriteString(strings.Repeat("  ", listDepth-1))
				b.WriteString(itemMarker(node))
			}
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(source))
				switch {
				case node.HardLineBreak():
					b.WriteString("\n")
				case node.SoftLineBreak():
					b.WriteString(" ")
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.URL(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			if !entering {
				fmt.Fprintf(&b, " (%s)", node.Destination)
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.WriteString("    ")
					b.Write(seg.Value(source))
				}
				b.WriteString("\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			if entering {
				b.WriteString(strings.Repeat("-", 40) + "\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return collapseBlankLines(strings.TrimSpace(b.String()))
}

func itemMarker(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "• "
	}
	index := list.Start
	for p := item.PreviousSibling(); p != nil; p = p.PreviousSibling() {
		index++
	}
	return fmt.Sprintf("%d. ", index)
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

// Truncate shortens s to at most maxLen runes, adding "..." when cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
