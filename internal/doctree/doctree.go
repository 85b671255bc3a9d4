package doctree

import "strings"

// DocTree is the root of a decoded document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections, pages or paragraphs
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page/line (0 if N/A)
	Children []*DocNode // Subsections
}

// Text flattens the tree into raw text in document order, one node per
// line group. Headings are kept so their keywords reach the header filter.
func (t *DocTree) Text() string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			for _, s := range []string{n.Title, n.Text} {
				if s == "" {
					continue
				}
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(s)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return sb.String()
}
