package live

import (
	"fmt"
	"log/slog"

	"github.com/vango-dev/liveset/internal/errors"
	"github.com/vango-dev/liveset/pkg/dom"
	"golang.org/x/net/html"
)

// Registry keeps the sets of one document in sync with its mutations.
//
// A Registry is not safe for concurrent use. It must only be used from the
// goroutine that drives its Loop.
type Registry struct {
	doc     *dom.Document
	loop    *Loop
	logger  *slog.Logger
	monitor Monitor

	index  keyIndex
	groups map[string]*group
	order  []*group
	owners *nodeMap[[]*Set]
	sets   []*Set

	// queue holds structural records and flips in the order the document
	// reported them.
	queue []queued

	cancels []func()
	closed  bool
}

type queued struct {
	record dom.Record
	flip   *flip
}

// Option configures a Registry.
type Option func(*Registry)

// WithLoop sets the loop that runs deferred teardowns and flushes the
// document. By default every registry gets its own loop.
func WithLoop(l *Loop) Option {
	return func(r *Registry) {
		if l != nil {
			r.loop = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMonitor sets the instrumentation hook.
func WithMonitor(m Monitor) Option {
	return func(r *Registry) {
		if m != nil {
			r.monitor = m
		}
	}
}

// NewRegistry attaches a registry to doc.
func NewRegistry(doc *dom.Document, opts ...Option) *Registry {
	r := &Registry{
		doc:     doc,
		logger:  slog.Default().With("component", "live"),
		monitor: NopMonitor{},
		index:   newKeyIndex(),
		groups:  make(map[string]*group),
		owners:  newNodeMap[[]*Set](),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.loop == nil {
		r.loop = NewLoop(WithLoopLogger(r.logger))
	}

	r.cancels = append(r.cancels,
		doc.OnChange(r.onChange),
		doc.Observe(r.dispatch),
		r.loop.OnFlush(func() { doc.Flush() }),
	)
	return r
}

// Document returns the observed document.
func (r *Registry) Document() *dom.Document { return r.doc }

// Loop returns the loop the registry runs on.
func (r *Registry) Loop() *Loop { return r.loop }

// Select creates a set of the elements in scope matching selector and
// populates it from the current tree. fn may be nil.
//
// A selector that does not compile still yields a set; it never matches
// and its Err reports why.
func (r *Registry) Select(scope Scope, selector string, fn Transform) *Set {
	ru, err := compile(selector)
	s := newSet(r, scope, selector, ru, fn)
	if r.closed {
		return r.stillborn(s)
	}
	if err != nil {
		s.err = errors.New("L001").WithDetailf("selector %q", selector).Wrap(err)
		r.logger.Warn("selector did not compile", "selector", selector, "error", err)
	}
	if scope.kind == ScopeNode {
		if root := scope.nodes[0]; root == nil || !r.doc.Contains(root) {
			r.logger.Warn("scope node is not connected",
				"selector", selector,
				"code", "L005",
			)
		}
	}

	r.register(s)
	if s.err == nil {
		for _, n := range scope.candidates(r.doc) {
			r.safeAdd(s, n, false)
		}
	}
	return s
}

// Track creates a set without a selector. It accepts every element passed
// to Add and is not maintained by structural dispatch: members stay until
// they are deleted or the set is disposed.
func (r *Registry) Track(nodes []*html.Node, fn Transform) *Set {
	s := newSet(r, Scope{kind: ScopeManual}, "", nil, fn)
	if r.closed {
		return r.stillborn(s)
	}
	r.register(s)
	for _, n := range nodes {
		r.safeAdd(s, n, false)
	}
	return s
}

func (r *Registry) stillborn(s *Set) *Set {
	s.err = errors.New("L004").WithDetail("registry is closed")
	s.disposed = true
	s.ch.Close()
	return s
}

func (r *Registry) register(s *Set) {
	r.sets = append(r.sets, s)
	if s.rule != nil && s.err == nil {
		r.index.add(s.rule.key, s.rule.value, s)
		if s.rule.watch {
			r.join(s)
		}
	}
	r.monitor.SetOpened(s)
	r.logger.Debug("set opened",
		"set", s.id,
		"selector", s.selector,
		"scope", s.scope.String(),
		"key", s.rule.keyString(),
	)
}

// release deregisters s; called by Dispose.
func (r *Registry) release(s *Set) {
	for i, x := range r.sets {
		if x == s {
			r.sets = append(r.sets[:i], r.sets[i+1:]...)
			break
		}
	}
	if s.rule != nil {
		r.index.remove(s.rule.key, s.rule.value, s)
		r.leave(s)
	}
}

func (r *Registry) join(s *Set) {
	g, ok := r.groups[s.rule.text]
	if !ok {
		g = newGroup(s.rule)
		g.prime(r.doc)
		r.groups[g.selector] = g
		r.order = append(r.order, g)
		r.monitor.GroupOpened(g.selector)
		r.logger.Debug("group opened", "selector", g.selector, "token", g.token)
	}
	g.sets = append(g.sets, s)
}

func (r *Registry) leave(s *Set) {
	g, ok := r.groups[s.rule.text]
	if !ok {
		return
	}
	g.remove(s)
	if len(g.sets) > 0 {
		return
	}
	delete(r.groups, g.selector)
	for i, x := range r.order {
		if x == g {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.monitor.GroupClosed(g.selector)
	r.logger.Debug("group closed", "selector", g.selector, "token", g.token)
}

// own records that s counts n. Tracked sets are not routed by removal and
// are never recorded.
func (r *Registry) own(n *html.Node, s *Set) {
	if s.scope.kind == ScopeManual {
		return
	}
	list, _ := r.owners.get(n)
	for _, x := range list {
		if x == s {
			return
		}
	}
	r.owners.set(n, append(list[:len(list):len(list)], s))
}

func (r *Registry) disown(n *html.Node, s *Set) {
	list, ok := r.owners.get(n)
	if !ok {
		return
	}
	kept := make([]*Set, 0, len(list))
	for _, x := range list {
		if x != s {
			kept = append(kept, x)
		}
	}
	if len(kept) == 0 {
		r.owners.delete(n)
		return
	}
	r.owners.set(n, kept)
}

// onChange runs synchronously for every document change. Attribute changes
// are evaluated against the predicate groups right away so that a change
// reverted before the next flush still yields both flips.
func (r *Registry) onChange(rec dom.Record) {
	if r.closed {
		return
	}
	if rec.Kind != dom.KindAttributes {
		r.queue = append(r.queue, queued{record: rec})
		return
	}
	// Detached nodes are evaluated again when they are inserted.
	if !r.doc.Contains(rec.Target) {
		return
	}
	for _, g := range r.snapshotGroups() {
		for _, n := range g.scope(rec.Target) {
			if f, ok := g.evaluate(n); ok {
				r.queue = append(r.queue, queued{flip: &f})
			}
		}
	}
}

// dispatch applies the queued work. The batch passed by the document only
// triggers it; records were queued by onChange in order.
func (r *Registry) dispatch([]dom.Record) {
	items := r.queue
	r.queue = nil
	if len(items) == 0 {
		return
	}

	structural, flips := 0, 0
	for _, it := range items {
		if it.flip != nil {
			flips++
		} else {
			structural++
		}
	}
	done := r.monitor.Dispatch(structural, flips)

	failures := 0
	for _, it := range items {
		if it.flip != nil {
			failures += r.applyFlip(*it.flip)
			continue
		}
		failures += r.applyRecord(it.record)
	}
	done(failures)
}

func (r *Registry) applyRecord(rec dom.Record) (failures int) {
	for _, root := range rec.Removed {
		for _, n := range dom.Elements(root) {
			if list, ok := r.owners.get(n); ok {
				for _, s := range list {
					s.Delete(n)
				}
			}
			for _, g := range r.order {
				g.marked.delete(n)
			}
		}
	}

	for _, root := range rec.Added {
		if !r.doc.Contains(root) {
			continue
		}
		for _, n := range dom.Elements(root) {
			r.index.candidates(n, func(s *Set) {
				failures += r.safeAdd(s, n, false)
			})
			for _, g := range r.snapshotGroups() {
				if f, ok := g.evaluate(n); ok {
					failures += r.applyFlip(f)
				}
			}
		}
	}

	if rec.Target == nil || !r.doc.Contains(rec.Target) {
		return failures
	}
	for _, g := range r.snapshotGroups() {
		if !g.rule.deep {
			continue
		}
		for _, n := range g.scope(rec.Target) {
			if f, ok := g.evaluate(n); ok {
				failures += r.applyFlip(f)
			}
		}
	}
	return failures
}

func (r *Registry) applyFlip(f flip) (failures int) {
	sets := append([]*Set(nil), f.group.sets...)
	for _, s := range sets {
		if f.enter {
			failures += r.safeAdd(s, f.node, true)
		} else {
			s.Delete(f.node)
		}
	}
	return failures
}

// safeAdd adds n to s, recovering a Transform panic. It returns 1 when the
// transform failed.
func (r *Registry) safeAdd(s *Set, n *html.Node, matched bool) (failed int) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		err := errors.New("L002").
			WithDetailf("selector %q, node %s", s.selector, dom.Describe(n)).
			Wrap(fmt.Errorf("panic: %v", p))
		r.logger.Warn("transform failed",
			"set", s.id,
			"selector", s.selector,
			"node", dom.Describe(n),
			"panic", p,
		)
		r.monitor.Failed(s, n, err)
		s.ch.Error(err)
		failed = 1
	}()
	s.add(n, matched)
	return 0
}

func (r *Registry) snapshotGroups() []*group {
	return append([]*group(nil), r.order...)
}

// Sets returns the open sets in creation order.
func (r *Registry) Sets() []*Set {
	return append([]*Set(nil), r.sets...)
}

// Lookup returns the open set with the given id.
func (r *Registry) Lookup(id string) (*Set, bool) {
	for _, s := range r.sets {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

// Flush delivers the document's pending changes to the sets.
func (r *Registry) Flush() int {
	return r.doc.Flush()
}

// Frame runs the deferred teardowns that are due.
func (r *Registry) Frame() int {
	return r.loop.Frame()
}

// Tick runs posted tasks, flushes the document and runs one frame.
func (r *Registry) Tick() {
	r.loop.Tick()
}

// Close disposes every set and detaches the registry from its document
// and loop. Calling Close again has no effect.
func (r *Registry) Close() {
	if r.closed {
		return
	}
	for _, s := range r.Sets() {
		s.Dispose()
	}
	r.closed = true
	r.queue = nil
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool { return r.closed }

// Stats is a point-in-time summary of a registry.
type Stats struct {
	Sets    int `json:"sets"`
	Groups  int `json:"groups"`
	Keys    int `json:"keys"`
	Owned   int `json:"owned"`
	Queued  int `json:"queued"`
	Members int `json:"members"`
}

// Stats returns the current registry statistics.
func (r *Registry) Stats() Stats {
	st := Stats{
		Sets:   len(r.sets),
		Groups: len(r.groups),
		Keys:   r.index.keys(),
		Owned:  r.owners.len(),
		Queued: len(r.queue),
	}
	for _, s := range r.sets {
		st.Members += len(s.nodes)
	}
	return st
}
