package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr is a single attribute passed to El.
type Attr struct {
	Key   string
	Value string
}

// A creates an arbitrary attribute.
func A(key, value string) Attr { return Attr{Key: key, Value: value} }

// ID sets the id attribute.
func ID(id string) Attr { return A("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attr { return A("class", strings.Join(classes, " ")) }

// Name sets the name attribute.
func Name(name string) Attr { return A("name", name) }

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Attr { return A("data-"+key, value) }

// Text creates a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// El creates a detached element. Arguments may be Attr, *html.Node, string
// (text content) or []*html.Node; anything else is ignored.
func El(tag string, args ...any) *html.Node {
	tag = strings.ToLower(tag)
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case Attr:
			if v.Key != "" {
				setAttr(n, v.Key, v.Value)
			}
		case *html.Node:
			if v != nil {
				n.AppendChild(v)
			}
		case []*html.Node:
			for _, c := range v {
				n.AppendChild(c)
			}
		case string:
			n.AppendChild(Text(v))
		}
	}
	return n
}

// ParseFragment parses markup in a <body> context and returns the
// resulting detached nodes.
func ParseFragment(markup string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(markup), ctx)
}

// setAttr sets key on n without reporting it.
func setAttr(n *html.Node, key, value string) (old string, had bool) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return a.Val, true
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
	return "", false
}

// removeAttr removes key from n without reporting it.
func removeAttr(n *html.Node, key string) (old string, had bool) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return a.Val, true
		}
	}
	return "", false
}
