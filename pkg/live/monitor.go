package live

import "golang.org/x/net/html"

// Monitor receives instrumentation events from a Registry. Implementations
// run on the control goroutine and must not block.
type Monitor interface {
	SetOpened(s *Set)
	SetClosed(s *Set)
	GroupOpened(selector string)
	GroupClosed(selector string)

	// Matched and Unmatched report membership changes.
	Matched(s *Set, n *html.Node)
	Unmatched(s *Set, n *html.Node)

	// Failed reports a Transform that panicked during dispatch.
	Failed(s *Set, n *html.Node, err error)

	// TornDown reports a finished teardown; err is non-nil when it failed.
	TornDown(s *Set, n *html.Node, err error)

	// Dispatch is called before a batch is applied. The returned function
	// is called afterwards with the number of isolated failures.
	Dispatch(structural, flips int) (done func(failures int))
}

// NopMonitor ignores every event.
type NopMonitor struct{}

func (NopMonitor) SetOpened(*Set) {}
func (NopMonitor) SetClosed(*Set) {}
func (NopMonitor) GroupOpened(string) {}
func (NopMonitor) GroupClosed(string) {}
func (NopMonitor) Matched(*Set, *html.Node) {}
func (NopMonitor) Unmatched(*Set, *html.Node) {}
func (NopMonitor) Failed(*Set, *html.Node, error) {}
func (NopMonitor) TornDown(*Set, *html.Node, error) {}
func (NopMonitor) Dispatch(int, int) func(failures int) { return func(int) {} }
