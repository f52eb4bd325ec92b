// Package livetest provides testing helpers for code built on live sets.
//
// # Quick Start
//
//	func TestMenu(t *testing.T) {
//	    env := livetest.New(t).WithHTML(`<ul id="menu"></ul>`).Build()
//	    rec := livetest.NewRecorder()
//	    items := env.Reg.Select(live.Document(), "li.entry", rec.Transform)
//
//	    env.Append("#menu", `<li id="home" class="entry"></li>`)
//	    env.Tick()
//
//	    livetest.ExpectMembers(t, items, "home")
//	    livetest.ExpectJoined(t, rec, "home")
//	}
//
// The environment drives the registry by hand: Tick runs posted tasks,
// dispatches pending changes and runs one frame of deferred teardowns,
// so tests never depend on timing.
package livetest
