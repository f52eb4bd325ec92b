package live

import (
	"fmt"

	"github.com/vango-dev/liveset/pkg/dom"
	"golang.org/x/net/html"
)

// ScopeKind is the scope discriminator.
type ScopeKind uint8

const (
	ScopeDocument ScopeKind = iota // every connected element
	ScopeNode                      // strict descendants of one node
	ScopeNodes                     // listed nodes and their descendants
	ScopeManual                    // any element added explicitly
)

// Scope limits which elements a Set may contain.
type Scope struct {
	kind  ScopeKind
	nodes []*html.Node
}

// Document scopes a set to the whole document.
func Document() Scope {
	return Scope{kind: ScopeDocument}
}

// In scopes a set to the descendants of n, excluding n itself.
func In(n *html.Node) Scope {
	return Scope{kind: ScopeNode, nodes: []*html.Node{n}}
}

// InAny scopes a set to the listed nodes and their descendants.
func InAny(nodes ...*html.Node) Scope {
	return Scope{kind: ScopeNodes, nodes: append([]*html.Node(nil), nodes...)}
}

// Kind returns the scope kind.
func (s Scope) Kind() ScopeKind {
	return s.kind
}

// Nodes returns the scope roots.
func (s Scope) Nodes() []*html.Node {
	return append([]*html.Node(nil), s.nodes...)
}

// String returns a short description for logs.
func (s Scope) String() string {
	switch s.kind {
	case ScopeDocument:
		return "document"
	case ScopeNode:
		return "in(" + dom.Describe(s.nodes[0]) + ")"
	case ScopeNodes:
		return fmt.Sprintf("in-any(%d)", len(s.nodes))
	default:
		return "manual"
	}
}

// contains reports whether n lies inside the scope.
func (s Scope) contains(doc *dom.Document, n *html.Node) bool {
	switch s.kind {
	case ScopeDocument:
		return doc.Contains(n)
	case ScopeNode:
		root := s.nodes[0]
		return root != nil && root != n && dom.Contains(root, n)
	case ScopeNodes:
		for _, root := range s.nodes {
			if dom.Contains(root, n) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// candidates returns the elements the initial scan visits, in document
// order per root.
func (s Scope) candidates(doc *dom.Document) []*html.Node {
	switch s.kind {
	case ScopeDocument:
		return dom.Elements(doc.Root())
	case ScopeNode:
		root := s.nodes[0]
		if root == nil {
			return nil
		}
		var out []*html.Node
		for c := root.FirstChild; c != nil; c = c.NextSibling {
			out = append(out, dom.Elements(c)...)
		}
		return out
	case ScopeNodes:
		var out []*html.Node
		for _, root := range s.nodes {
			out = append(out, dom.Elements(root)...)
		}
		return out
	default:
		return nil
	}
}
