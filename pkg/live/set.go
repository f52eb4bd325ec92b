package live

import (
	"github.com/oklog/ulid/v2"
	"github.com/vango-dev/liveset/pkg/dom"
	"golang.org/x/net/html"
)

// Set is an ordered, observable collection of elements kept in sync with
// its registry's document. Members are ordered by the time they joined,
// not by tree position.
type Set struct {
	id       string
	reg      *Registry
	scope    Scope
	selector string
	rule     *rule
	err      error
	fn       Transform

	nodes   []*html.Node
	items   map[*html.Node]any
	pending map[*html.Node]*pendingDelete

	ch       *Channel[[]*html.Node]
	disposed bool
}

// pendingDelete is a scheduled teardown. The frame callback only runs it
// if it is still the node's current pending entry.
type pendingDelete struct {
	value any
}

func newSet(reg *Registry, scope Scope, selector string, r *rule, fn Transform) *Set {
	return &Set{
		id:       ulid.Make().String(),
		reg:      reg,
		scope:    scope,
		selector: selector,
		rule:     r,
		fn:       fn,
		items:    make(map[*html.Node]any),
		pending:  make(map[*html.Node]*pendingDelete),
		ch:       NewChannel[[]*html.Node](),
	}
}

// ID returns the unique id of the set.
func (s *Set) ID() string { return s.id }

// Selector returns the selector text, or "" for a tracked set.
func (s *Set) Selector() string { return s.selector }

// Scope returns the scope of the set.
func (s *Set) Scope() Scope { return s.scope }

// Err returns the selector compile error, if any. A set whose selector did
// not compile never matches.
func (s *Set) Err() error { return s.err }

// Key returns the fast-path index the set is registered under.
func (s *Set) Key() (KeyKind, string) {
	if s.rule == nil {
		return KeyNone, ""
	}
	return s.rule.key, s.rule.value
}

// Disposed reports whether Dispose has been called.
func (s *Set) Disposed() bool { return s.disposed }

// Len returns the number of members.
func (s *Set) Len() int { return len(s.nodes) }

// Nodes returns a copy of the members in join order.
func (s *Set) Nodes() []*html.Node {
	return append([]*html.Node(nil), s.nodes...)
}

// Item returns the member at index i. Negative indexes count from the end.
// Out of range indexes return nil.
func (s *Set) Item(i int) *html.Node {
	if i < 0 {
		i += len(s.nodes)
	}
	if i < 0 || i >= len(s.nodes) {
		return nil
	}
	return s.nodes[i]
}

// NamedItem returns the first member whose id or name attribute equals
// name.
func (s *Set) NamedItem(name string) *html.Node {
	if name == "" {
		return nil
	}
	for _, n := range s.nodes {
		if dom.IDOf(n) == name {
			return n
		}
	}
	for _, n := range s.nodes {
		if dom.NameOf(n) == name {
			return n
		}
	}
	return nil
}

// Has reports whether n is a member.
func (s *Set) Has(n *html.Node) bool {
	_, ok := s.items[n]
	return ok
}

// Value returns the teardown value recorded for member n.
func (s *Set) Value(n *html.Node) (any, bool) {
	v, ok := s.items[n]
	return v, ok
}

// Subscribe registers sub and immediately delivers the current members to
// it. Every later membership change delivers the members again. The
// returned function unsubscribes.
func (s *Set) Subscribe(sub Subscriber[[]*html.Node]) (unsubscribe func()) {
	x := s.ch.subscribe(sub)
	s.ch.deliver(x, s.Nodes())
	return func() { s.ch.unsubscribe(x) }
}

// Add adds elements that are in scope, match the selector and are not
// members yet. A Transform panic propagates to the caller.
func (s *Set) Add(nodes ...*html.Node) {
	for _, n := range nodes {
		s.add(n, false)
	}
}

// add adds n. matched is set when a predicate group already decided that
// n matches.
func (s *Set) add(n *html.Node, matched bool) {
	if s.disposed || !dom.IsElement(n) {
		return
	}
	if _, ok := s.items[n]; ok {
		return
	}
	if !s.scope.contains(s.reg.doc, n) {
		return
	}
	if !matched && s.rule != nil && !s.rule.matches(n) {
		return
	}

	// A node re-added before its teardown ran keeps its old value.
	var value any
	if p, ok := s.pending[n]; ok {
		value = p.value
		delete(s.pending, n)
	} else if s.fn != nil {
		value = s.fn(n)
	}

	s.items[n] = value
	s.nodes = append(s.nodes, n)
	s.reg.own(n, s)
	s.reg.monitor.Matched(s, n)
	s.publish()
}

// Delete removes n right away and tears it down on the next frame, unless
// it is added again first.
func (s *Set) Delete(n *html.Node) {
	s.remove(n, false)
}

// DeleteNow removes n and tears it down immediately.
func (s *Set) DeleteNow(n *html.Node) {
	s.remove(n, true)
}

func (s *Set) remove(n *html.Node, immediate bool) {
	value, ok := s.items[n]
	if !ok {
		return
	}
	delete(s.items, n)
	for i, x := range s.nodes {
		if x == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	s.reg.monitor.Unmatched(s, n)
	s.publish()

	p := &pendingDelete{value: value}
	s.pending[n] = p
	if immediate {
		s.finish(n, p)
		return
	}
	s.reg.loop.RequestFrame(func() { s.finish(n, p) })
}

// finish runs a scheduled teardown unless it was cancelled.
func (s *Set) finish(n *html.Node, p *pendingDelete) {
	if s.pending[n] != p {
		return
	}
	delete(s.pending, n)
	s.reg.disown(n, s)

	err := s.teardown(n, p.value)
	if err != nil {
		s.reportTeardown(n, err)
		return
	}
	s.reg.monitor.TornDown(s, n, nil)
}

// Pending reports whether n is waiting for its deferred teardown.
func (s *Set) Pending(n *html.Node) bool {
	_, ok := s.pending[n]
	return ok
}

// Dispose deregisters the set, completes its subscribers and tears down
// every member and every pending deletion immediately. Calling Dispose
// again has no effect.
func (s *Set) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.reg.release(s)
	s.ch.Close()

	nodes := s.nodes
	s.nodes = nil
	for _, n := range nodes {
		value := s.items[n]
		delete(s.items, n)
		s.reg.monitor.Unmatched(s, n)
		p := &pendingDelete{value: value}
		s.pending[n] = p
		s.finish(n, p)
	}

	var waiting []*html.Node
	for n := range s.pending {
		waiting = append(waiting, n)
	}
	for _, n := range waiting {
		s.finish(n, s.pending[n])
	}
	s.reg.monitor.SetClosed(s)
}

func (s *Set) publish() {
	if s.ch.Len() == 0 {
		return
	}
	s.ch.Push(s.Nodes())
}
