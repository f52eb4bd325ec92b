// Package live keeps reactive subsets of a dom.Document up to date.
//
// A Set is an ordered, observable collection of the elements that match a
// CSS selector inside a scope. It is populated once from a scan of the
// scope and then kept correct incrementally, without re-scanning the
// document on every change.
//
// # Change Detection
//
// Two independent paths feed every Set:
//
//   - Structural dispatch. Each Registry keeps an index from cheap keys
//     (id, class, tag, name) to the sets whose selector starts with that
//     key. When subtrees are inserted, each inserted element is looked up by
//     its own keys, so the cost is bounded by (element, matching key) pairs
//     rather than (element, registered set) pairs. Removed subtrees are
//     routed through per-node ownership markers: every member knows which
//     sets count it, so no selector is re-tested on removal.
//
//   - Predicate groups. Sets sharing the same selector text share one group
//     that re-evaluates the selector when attributes change, reporting
//     edge-triggered enter and leave flips. This catches nodes that start or
//     stop matching while they stay in the tree, and selectors that do not
//     reduce to a single indexable key.
//
// # Teardown
//
// A Transform runs when a node joins a set; its return value is the node's
// teardown value (a Cleanup, func(), io.Closer, or a channel that later
// yields a Cleanup). Leaving a set is synchronous, but teardown is deferred
// to the next Loop frame, so a node removed and re-inserted within one tick
// keeps its membership and is never torn down.
//
// # Control Thread
//
// A Registry, its sets and its document are not goroutine-safe. All calls
// happen on one control goroutine: either the caller's (driving Flush and
// Frame by hand, as tests do) or the goroutine running Loop.Run, with other
// goroutines handing work over through Loop.Post and Loop.Do.
//
// Example:
//
//	doc := dom.New()
//	reg := live.NewRegistry(doc)
//	defer reg.Close()
//
//	items := reg.Select(live.Document(), ".item", func(n *html.Node) any {
//	    log.Println("joined", dom.Describe(n))
//	    return live.Cleanup(func(n *html.Node) { log.Println("left", dom.Describe(n)) })
//	})
//	items.Subscribe(live.Subscriber[[]*html.Node]{
//	    Next: func(nodes []*html.Node) func() { render(nodes); return nil },
//	})
//
//	doc.AppendChild(doc.Body(), dom.El("div", dom.Class("item")))
//	reg.Tick() // dispatch the batch, then run due teardowns
package live
