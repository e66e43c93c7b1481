package descriptor

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const summaryWidth = 72

// Summary renders the first paragraph of a Markdown description as a single
// line of plain text, truncated for listings.
func Summary(description string) string {
	body := []byte(description)
	root := goldmark.New().Parser().Parse(text.NewReader(body))

	var para gmast.Node
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if _, ok := n.(*gmast.Paragraph); ok && entering {
			para = n
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	if para == nil {
		return ""
	}

	var b strings.Builder
	_ = gmast.Walk(para, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Text:
			b.Write(node.Segment.Value(body))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(node.Value)
		}
		return gmast.WalkContinue, nil
	})

	line := strings.Join(strings.Fields(b.String()), " ")
	if utf8.RuneCountInString(line) <= summaryWidth {
		return line
	}
	runes := []rune(line)
	return strings.TrimSpace(string(runes[:summaryWidth-3])) + "..."
}
