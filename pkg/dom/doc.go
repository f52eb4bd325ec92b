// Package dom provides the mutable host tree that live sets observe.
//
// A Document wraps a golang.org/x/net/html node tree and routes every
// structural and attribute change through its own methods, so it can report
// them the way a browser's mutation observer would.
//
// # Change Feed
//
// Two delivery modes exist:
//
//   - OnChange hooks run synchronously, once per change, right after the
//     tree was modified. They see the tree exactly as the change left it.
//   - Observe callbacks receive the queued records as one batch when Flush
//     is called. Flush is the batch boundary (the "microtask" of the host).
//
// Moving a node that already has a parent produces a removal record for the
// old parent followed by an insertion record for the new one.
//
// # Building Trees
//
// El builds detached elements from attribute and child arguments:
//
//	list := dom.El("ul", dom.Class("todo"),
//	    dom.El("li", dom.Class("item"), dom.Text("first")),
//	    dom.El("li", dom.ID("last"), dom.Text("second")),
//	)
//	doc.AppendChild(doc.Body(), list)
package dom
