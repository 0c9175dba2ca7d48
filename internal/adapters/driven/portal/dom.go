package portal

import (
	"strings"

	"golang.org/x/net/html"
)

// walk visits every node under root in document order.
func walk(root *html.Node, fn func(*html.Node)) {
	if root == nil {
		return
	}
	fn(root)
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		walk(child, fn)
	}
}

// attr returns an attribute value and whether it is present.
func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// attrVal returns an attribute value, or empty when absent.
func attrVal(n *html.Node, name string) string {
	v, _ := attr(n, name)
	return v
}

// hasClass reports whether the node carries the given CSS class.
func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// findByID returns the first element with the given id.
func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && attrVal(n, "id") == id {
			found = n
		}
	})
	return found
}

// findElement returns the first element with the given tag name.
func findElement(root *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && n.Data == tag {
			found = n
		}
	})
	return found
}

// findLink returns the first anchor whose href contains fragment.
func findLink(root *html.Node, fragment string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && n.Data == "a" &&
			strings.Contains(attrVal(n, "href"), fragment) {
			found = n
		}
	})
	return found
}

// childElements returns the direct descendants with the given tag,
// searching through intermediate wrappers.
func childElements(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) {
		if n != root && n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
	})
	return out
}

// closest walks up to the nearest ancestor with the given tag.
func closest(n *html.Node, tag string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return p
		}
	}
	return nil
}

// nodeText concatenates the text content under a node, collapsing
// whitespace runs to single spaces.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteString(" ")
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
