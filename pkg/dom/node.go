package dom

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// GetAttr returns the value of attribute key on n.
func GetAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// IDOf returns the id attribute of n.
func IDOf(n *html.Node) string {
	v, _ := GetAttr(n, "id")
	return v
}

// NameOf returns the name attribute of n.
func NameOf(n *html.Node) string {
	v, _ := GetAttr(n, "name")
	return v
}

// TagOf returns the lower-case tag name of an element, or "".
func TagOf(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	return strings.ToLower(n.Data)
}

// ClassList returns the class list of n.
func ClassList(n *html.Node) []string {
	v, _ := GetAttr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether n carries class cls.
func HasClass(n *html.Node, cls string) bool {
	for _, c := range ClassList(n) {
		if c == cls {
			return true
		}
	}
	return false
}

// Contains reports whether n is ancestor or the node itself.
func Contains(ancestor, n *html.Node) bool {
	if ancestor == nil {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Walk visits n and its element descendants in document order. Returning
// false from fn skips the children of the visited node.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if IsElement(n) && !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// Elements returns n (if it is an element) and its element descendants in
// document order.
func Elements(n *html.Node) []*html.Node {
	var out []*html.Node
	Walk(n, func(e *html.Node) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Path returns the slash separated child indexes leading from the tree
// root to n, e.g. "0/1/3". The root itself has the empty path.
func Path(n *html.Node) string {
	var idx []string
	for ; n != nil && n.Parent != nil; n = n.Parent {
		i := 0
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			i++
		}
		idx = append(idx, strconv.Itoa(i))
	}
	for l, r := 0, len(idx)-1; l < r; l, r = l+1, r-1 {
		idx[l], idx[r] = idx[r], idx[l]
	}
	return strings.Join(idx, "/")
}

// Resolve walks path from root and returns the node it names.
func Resolve(root *html.Node, path string) (*html.Node, bool) {
	n := root
	if path == "" {
		return n, n != nil
	}
	for _, part := range strings.Split(path, "/") {
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 || n == nil {
			return nil, false
		}
		c := n.FirstChild
		for ; c != nil && i > 0; i-- {
			c = c.NextSibling
		}
		if c == nil {
			return nil, false
		}
		n = c
	}
	return n, true
}

// OuterHTML renders n and its subtree.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// Describe returns a compact selector-like label such as div#main.a.b.
func Describe(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	var b strings.Builder
	b.WriteString(TagOf(n))
	if id := IDOf(n); id != "" {
		b.WriteString("#")
		b.WriteString(id)
	}
	for _, c := range ClassList(n) {
		b.WriteString(".")
		b.WriteString(c)
	}
	if name := NameOf(n); name != "" {
		b.WriteString(`[name="`)
		b.WriteString(name)
		b.WriteString(`"]`)
	}
	return b.String()
}
