package stream

import (
	"strings"

	"github.com/vango-dev/liveset/internal/errors"
	"github.com/vango-dev/liveset/pkg/dom"
	"golang.org/x/net/html"
)

// Mutation operations.
const (
	OpAppend          = "append"
	OpInsertBefore    = "insert-before"
	OpReplaceChildren = "replace-children"
	OpRemove          = "remove"
	OpSetAttr         = "set-attr"
	OpRemoveAttr      = "remove-attr"
	OpAddClass        = "add-class"
	OpRemoveClass     = "remove-class"
	OpToggleClass     = "toggle-class"
)

// Mutation is one document change requested over HTTP.
//
// Target and Ref name nodes either by id ("#main"), as "body" or "head", or
// by a child index path as returned in snapshots ("0/1/2").
type Mutation struct {
	Op     string `json:"op"`
	Target string `json:"target"`
	Ref    string `json:"ref,omitempty"`
	HTML   string `json:"html,omitempty"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Validate checks the mutation without resolving its nodes.
func (m Mutation) Validate() error {
	if m.Target == "" {
		return errors.New("L031").WithDetailf("%s: missing target", m.Op)
	}
	switch m.Op {
	case OpAppend, OpInsertBefore, OpReplaceChildren, OpRemove:
	case OpSetAttr, OpRemoveAttr, OpAddClass, OpRemoveClass, OpToggleClass:
		if m.Name == "" {
			return errors.New("L031").WithDetailf("%s: missing name", m.Op)
		}
	default:
		return errors.New("L031").WithDetailf("unknown op %q", m.Op)
	}
	return nil
}

// Apply validates every mutation and then applies them in order. It stops
// at the first mutation whose nodes cannot be resolved and returns how many
// were applied. It must run on the loop goroutine.
func Apply(doc *dom.Document, muts []Mutation) (int, error) {
	for i, m := range muts {
		if err := m.Validate(); err != nil {
			return 0, errors.New("L031").WithDetailf("mutation %d: %s", i, detailOf(err))
		}
	}
	for i, m := range muts {
		if err := apply(doc, m); err != nil {
			return i, err
		}
	}
	return len(muts), nil
}

func detailOf(err error) string {
	var e *errors.Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	return err.Error()
}

func apply(doc *dom.Document, m Mutation) error {
	target, err := Resolve(doc, m.Target)
	if err != nil {
		return err
	}

	switch m.Op {
	case OpAppend:
		nodes, err := fragment(m.HTML)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			doc.AppendChild(target, n)
		}
	case OpInsertBefore:
		var ref *html.Node
		if m.Ref != "" {
			if ref, err = Resolve(doc, m.Ref); err != nil {
				return err
			}
		}
		nodes, err := fragment(m.HTML)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			doc.InsertBefore(target, n, ref)
		}
	case OpReplaceChildren:
		nodes, err := fragment(m.HTML)
		if err != nil {
			return err
		}
		doc.ReplaceChildren(target, nodes...)
	case OpRemove:
		doc.Remove(target)
	case OpSetAttr:
		doc.SetAttr(target, m.Name, m.Value)
	case OpRemoveAttr:
		doc.RemoveAttr(target, m.Name)
	case OpAddClass:
		doc.AddClass(target, strings.Fields(m.Name)...)
	case OpRemoveClass:
		doc.RemoveClass(target, strings.Fields(m.Name)...)
	case OpToggleClass:
		doc.ToggleClass(target, m.Name)
	}
	return nil
}

func fragment(markup string) ([]*html.Node, error) {
	nodes, err := dom.ParseFragment(markup)
	if err != nil {
		return nil, errors.New("L031").WithDetail("html fragment did not parse").Wrap(err)
	}
	return nodes, nil
}

// Resolve finds the node named by ref. See Mutation for the accepted forms.
func Resolve(doc *dom.Document, ref string) (*html.Node, error) {
	var n *html.Node
	switch {
	case ref == "body":
		n = doc.Body()
	case ref == "head":
		n = doc.Head()
	case strings.HasPrefix(ref, "#"):
		n = doc.GetElementByID(ref[1:])
	default:
		if ref != "" {
			n, _ = dom.Resolve(doc.Root(), strings.Trim(ref, "/"))
		}
	}
	if n == nil {
		return nil, errors.New("L032").WithDetailf("node %q", ref)
	}
	return n, nil
}
