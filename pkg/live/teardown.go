package live

import (
	"fmt"
	"io"

	"github.com/vango-dev/liveset/internal/errors"
	"github.com/vango-dev/liveset/pkg/dom"
	"golang.org/x/net/html"
)

// Transform is called when an element joins a set. Its result is the
// element's teardown value:
//
//   - Cleanup, func(*html.Node) or func(): called with the element
//   - func(*html.Node) error: called, a non-nil error is reported
//   - io.Closer: closed
//   - <-chan Cleanup (or chan Cleanup): awaited, then the received Cleanup
//     is called; a closed channel or a nil Cleanup means nothing to do
//
// Any other value is kept and ignored at teardown.
type Transform func(n *html.Node) any

// Cleanup tears down what a Transform set up for an element.
type Cleanup func(n *html.Node)

// teardown runs value for n. Panics are converted into errors.
func (s *Set) teardown(n *html.Node, value any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch v := value.(type) {
	case nil:
	case Cleanup:
		v(n)
	case func(*html.Node):
		v(n)
	case func():
		v()
	case func(*html.Node) error:
		return v(n)
	case io.Closer:
		return v.Close()
	case <-chan Cleanup:
		s.await(n, v)
	case chan Cleanup:
		s.await(n, v)
	}
	return nil
}

// await calls the Cleanup received from ch. A value that is already
// available is used right away; otherwise a goroutine waits for it and
// posts the call back to the loop. A channel that never yields keeps its
// goroutine.
func (s *Set) await(n *html.Node, ch <-chan Cleanup) {
	select {
	case fn, ok := <-ch:
		if ok && fn != nil {
			fn(n)
		}
		return
	default:
	}

	loop := s.reg.loop
	go func() {
		fn, ok := <-ch
		if !ok || fn == nil {
			return
		}
		loop.Post(func() {
			if err := s.teardown(n, fn); err != nil {
				s.reportTeardown(n, err)
			}
		})
	}()
}

func (s *Set) reportTeardown(n *html.Node, err error) {
	e := errors.New("L003").WithDetailf("selector %q, node %s", s.selector, dom.Describe(n)).Wrap(err)
	s.reg.logger.Warn("teardown failed",
		"set", s.id,
		"selector", s.selector,
		"node", dom.Describe(n),
		"error", err,
	)
	s.reg.monitor.TornDown(s, n, e)
	s.ch.Error(e)
}
