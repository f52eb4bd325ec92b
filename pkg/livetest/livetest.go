package livetest

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/liveset/pkg/dom"
	"github.com/vango-dev/liveset/pkg/live"
	"golang.org/x/net/html"
)

// EnvBuilder allows fluent construction of test environments.
type EnvBuilder struct {
	t       testing.TB
	markup  string
	monitor live.Monitor
	logger  *slog.Logger
}

// Env is a document with an attached registry, driven by hand.
type Env struct {
	T    testing.TB
	Doc  *dom.Document
	Reg  *live.Registry
	Loop *live.Loop
}

// New creates a new environment builder. The registry is closed when the
// test ends.
func New(t testing.TB) *EnvBuilder {
	return &EnvBuilder{
		t:      t,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithHTML sets the initial document markup.
func (b *EnvBuilder) WithHTML(markup string) *EnvBuilder {
	b.markup = markup
	return b
}

// WithMonitor sets the registry monitor.
func (b *EnvBuilder) WithMonitor(m live.Monitor) *EnvBuilder {
	b.monitor = m
	return b
}

// WithLogger sets the logger. By default logs are discarded.
func (b *EnvBuilder) WithLogger(logger *slog.Logger) *EnvBuilder {
	b.logger = logger
	return b
}

// Build returns the environment.
func (b *EnvBuilder) Build() *Env {
	b.t.Helper()
	doc, err := dom.ParseString(b.markup)
	if err != nil {
		b.t.Fatalf("livetest: parse markup: %v", err)
	}
	loop := live.NewLoop(live.WithLoopLogger(b.logger))
	opts := []live.Option{live.WithLoop(loop), live.WithLogger(b.logger)}
	if b.monitor != nil {
		opts = append(opts, live.WithMonitor(b.monitor))
	}
	reg := live.NewRegistry(doc, opts...)
	b.t.Cleanup(reg.Close)
	return &Env{T: b.t, Doc: doc, Reg: reg, Loop: loop}
}

// Tick runs posted tasks, dispatches pending changes and runs one frame.
func (e *Env) Tick() {
	e.Reg.Tick()
}

// ByID returns the element with the given id or fails the test.
func (e *Env) ByID(id string) *html.Node {
	e.T.Helper()
	n := e.Doc.GetElementByID(id)
	if n == nil {
		e.T.Fatalf("livetest: no element with id %q", id)
	}
	return n
}

// Append parses markup and appends the resulting nodes to the element
// named by parent ("#id", "body" or "head").
func (e *Env) Append(parent, markup string) []*html.Node {
	e.T.Helper()
	target := e.lookup(parent)
	nodes, err := dom.ParseFragment(markup)
	if err != nil {
		e.T.Fatalf("livetest: parse fragment: %v", err)
	}
	for _, n := range nodes {
		e.Doc.AppendChild(target, n)
	}
	return nodes
}

// Remove detaches the element with the given id.
func (e *Env) Remove(id string) *html.Node {
	e.T.Helper()
	n := e.ByID(id)
	e.Doc.Remove(n)
	return n
}

func (e *Env) lookup(ref string) *html.Node {
	e.T.Helper()
	switch {
	case ref == "" || ref == "body":
		return e.Doc.Body()
	case ref == "head":
		return e.Doc.Head()
	default:
		return e.ByID(strings.TrimPrefix(ref, "#"))
	}
}

// Recorder records transform and teardown calls by element id.
type Recorder struct {
	joined []string
	left   []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Transform records n as joined and returns a Cleanup that records it as
// left.
func (r *Recorder) Transform(n *html.Node) any {
	r.joined = append(r.joined, label(n))
	return live.Cleanup(func(n *html.Node) {
		r.left = append(r.left, label(n))
	})
}

// Joined returns the labels of every element the transform ran for.
func (r *Recorder) Joined() []string {
	return append([]string(nil), r.joined...)
}

// Left returns the labels of every element that was torn down.
func (r *Recorder) Left() []string {
	return append([]string(nil), r.left...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.joined = nil
	r.left = nil
}

// label is the element id, or its description when it has none.
func label(n *html.Node) string {
	if id := dom.IDOf(n); id != "" {
		return id
	}
	return dom.Describe(n)
}
