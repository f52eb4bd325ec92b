package live

import (
	"github.com/oklog/ulid/v2"
	"github.com/vango-dev/liveset/pkg/dom"
	"golang.org/x/net/html"
)

// group is the predicate watcher shared by every set with the same
// selector text.
type group struct {
	selector string
	token    string
	rule     *rule
	sets     []*Set

	// marked holds the elements the group currently reports as matching.
	marked *nodeMap[struct{}]
}

// flip is an edge-triggered match change of one element in one group.
type flip struct {
	node  *html.Node
	group *group
	enter bool
}

func newGroup(r *rule) *group {
	return &group{
		selector: r.text,
		token:    ulid.Make().String(),
		rule:     r,
		marked:   newNodeMap[struct{}](),
	}
}

// prime marks every connected element that matches without reporting
// flips; the sets' own scans pick those elements up.
func (g *group) prime(doc *dom.Document) {
	if g.rule.match == nil {
		return
	}
	dom.Walk(doc.Root(), func(n *html.Node) bool {
		if g.rule.matches(n) {
			g.marked.set(n, struct{}{})
		}
		return true
	})
}

// evaluate toggles the marker of n and reports a flip when its match state
// changed since the last evaluation.
func (g *group) evaluate(n *html.Node) (flip, bool) {
	m := g.rule.matches(n)
	marked := g.marked.has(n)
	switch {
	case m && !marked:
		g.marked.set(n, struct{}{})
		return flip{node: n, group: g, enter: true}, true
	case !m && marked:
		g.marked.delete(n)
		return flip{node: n, group: g, enter: false}, true
	default:
		return flip{}, false
	}
}

// scope returns the elements whose match state may have changed after an
// attribute of n (or the children of n) changed. For deep rules that is
// the subtree of n's parent plus every ancestor above it, since :has() can
// match on an arbitrarily distant descendant.
func (g *group) scope(n *html.Node) []*html.Node {
	if !g.rule.deep {
		if dom.IsElement(n) {
			return []*html.Node{n}
		}
		return nil
	}
	root := n
	if n.Parent != nil {
		root = n.Parent
	}
	out := dom.Elements(root)
	for a := root.Parent; a != nil; a = a.Parent {
		if dom.IsElement(a) {
			out = append(out, a)
		}
	}
	return out
}

func (g *group) remove(s *Set) {
	for i, x := range g.sets {
		if x == s {
			g.sets = append(g.sets[:i], g.sets[i+1:]...)
			return
		}
	}
}
