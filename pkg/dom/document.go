package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// maxFlushRounds bounds how often Flush re-delivers records produced by
// observers while the batch was being delivered.
const maxFlushRounds = 64

// Document is a mutable HTML tree with a mutation feed.
//
// Document is not safe for concurrent use. All mutations and Flush calls
// must happen on the same control goroutine.
type Document struct {
	root *html.Node

	pending   []Record
	observers []*observer
	hooks     []*hook
}

type observer struct {
	fn     func([]Record)
	closed bool
}

type hook struct {
	fn     func(Record)
	closed bool
}

// New creates an empty document with html, head and body elements.
func New() *Document {
	doc, err := ParseString("")
	if err != nil {
		// html.Parse only fails on reader errors.
		panic(err)
	}
	return doc
}

// Parse parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// ParseString parses an HTML document from a string.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// Wrap adopts an existing tree. Changes made to root outside the Document
// are not reported.
func Wrap(root *html.Node) *Document {
	return &Document{root: root}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the body element, or the root if there is none.
func (d *Document) Body() *html.Node {
	return d.find("body")
}

// Head returns the head element, or the root if there is none.
func (d *Document) Head() *html.Node {
	return d.find("head")
}

func (d *Document) find(tag string) *html.Node {
	var found *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if TagOf(n) == tag {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return d.root
	}
	return found
}

// Contains reports whether n is connected to the document.
func (d *Document) Contains(n *html.Node) bool {
	return Contains(d.root, n)
}

// GetElementByID returns the first connected element with the given id.
func (d *Document) GetElementByID(id string) *html.Node {
	var found *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if IDOf(n) == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Observe registers fn to receive queued records on every Flush. The
// returned function cancels the registration.
func (d *Document) Observe(fn func([]Record)) (cancel func()) {
	o := &observer{fn: fn}
	d.observers = append(d.observers, o)
	return func() {
		if o.closed {
			return
		}
		o.closed = true
		for i, x := range d.observers {
			if x == o {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				break
			}
		}
	}
}

// OnChange registers fn to be called synchronously after every change. The
// returned function cancels the registration.
func (d *Document) OnChange(fn func(Record)) (cancel func()) {
	h := &hook{fn: fn}
	d.hooks = append(d.hooks, h)
	return func() {
		if h.closed {
			return
		}
		h.closed = true
		for i, x := range d.hooks {
			if x == h {
				d.hooks = append(d.hooks[:i], d.hooks[i+1:]...)
				break
			}
		}
	}
}

// Pending returns the number of records queued since the last Flush.
func (d *Document) Pending() int {
	return len(d.pending)
}

// Flush delivers the queued records to every observer as one batch and
// returns how many records were delivered. Records queued by observers
// during delivery are delivered in a following round of the same Flush.
func (d *Document) Flush() int {
	delivered := 0
	for round := 0; round < maxFlushRounds && len(d.pending) > 0; round++ {
		batch := d.pending
		d.pending = nil
		delivered += len(batch)

		observers := make([]*observer, len(d.observers))
		copy(observers, d.observers)
		for _, o := range observers {
			if !o.closed {
				o.fn(batch)
			}
		}
	}
	return delivered
}

func (d *Document) report(r Record) {
	d.pending = append(d.pending, r)

	hooks := make([]*hook, len(d.hooks))
	copy(hooks, d.hooks)
	for _, h := range hooks {
		if !h.closed {
			h.fn(r)
		}
	}
}

// AppendChild appends child to parent, moving it if it already has a parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.InsertBefore(parent, child, nil)
}

// InsertBefore inserts child into parent before ref (or at the end if ref
// is nil), moving it if it already has a parent.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	if parent == nil || child == nil || child == ref || Contains(child, parent) {
		return
	}
	if ref != nil && ref.Parent != parent {
		ref = nil
	}
	if child.Parent != nil {
		d.Remove(child)
	}
	parent.InsertBefore(child, ref)
	d.report(Record{Kind: KindChildList, Target: parent, Added: []*html.Node{child}})
}

// Remove detaches n from its parent.
func (d *Document) Remove(n *html.Node) {
	if n == nil || n.Parent == nil {
		return
	}
	parent := n.Parent
	parent.RemoveChild(n)
	d.report(Record{Kind: KindChildList, Target: parent, Removed: []*html.Node{n}})
}

// ReplaceChildren removes every child of parent and appends children in a
// single record.
func (d *Document) ReplaceChildren(parent *html.Node, children ...*html.Node) {
	if parent == nil {
		return
	}
	var removed []*html.Node
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		parent.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	var added []*html.Node
	for _, c := range children {
		if c == nil || Contains(c, parent) {
			continue
		}
		if c.Parent != nil {
			d.Remove(c)
		}
		parent.AppendChild(c)
		added = append(added, c)
	}
	if len(removed) == 0 && len(added) == 0 {
		return
	}
	d.report(Record{Kind: KindChildList, Target: parent, Added: added, Removed: removed})
}

// SetAttr sets attribute key on n.
func (d *Document) SetAttr(n *html.Node, key, value string) {
	if !IsElement(n) || key == "" {
		return
	}
	old, had := setAttr(n, key, value)
	d.report(Record{Kind: KindAttributes, Target: n, Name: key, OldValue: old, HadValue: had})
}

// RemoveAttr removes attribute key from n. Removing an absent attribute is
// not reported.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	if !IsElement(n) {
		return
	}
	old, had := removeAttr(n, key)
	if !had {
		return
	}
	d.report(Record{Kind: KindAttributes, Target: n, Name: key, OldValue: old, HadValue: true})
}

// AddClass adds classes to n that it does not carry yet.
func (d *Document) AddClass(n *html.Node, classes ...string) {
	current := ClassList(n)
	changed := false
	for _, c := range classes {
		if c == "" || contains(current, c) {
			continue
		}
		current = append(current, c)
		changed = true
	}
	if changed {
		d.SetAttr(n, "class", strings.Join(current, " "))
	}
}

// RemoveClass removes classes from n.
func (d *Document) RemoveClass(n *html.Node, classes ...string) {
	current := ClassList(n)
	kept := current[:0]
	for _, c := range current {
		if !contains(classes, c) {
			kept = append(kept, c)
		}
	}
	if len(kept) != len(ClassList(n)) {
		d.SetAttr(n, "class", strings.Join(kept, " "))
	}
}

// ToggleClass adds cls if n lacks it and removes it otherwise. It reports
// whether n carries cls afterwards.
func (d *Document) ToggleClass(n *html.Node, cls string) bool {
	if HasClass(n, cls) {
		d.RemoveClass(n, cls)
		return false
	}
	d.AddClass(n, cls)
	return true
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// ReplaceBody moves the children of from's body into d's body, replacing
// d's current body content in a single record. from is left with an empty
// body.
func (d *Document) ReplaceBody(from *Document) {
	if from == nil {
		return
	}
	src := from.Body()
	var children []*html.Node
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		children = append(children, c)
		c = next
	}
	d.ReplaceChildren(d.Body(), children...)
}
