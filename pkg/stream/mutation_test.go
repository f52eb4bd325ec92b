package stream

import (
	"testing"

	"github.com/vango-dev/liveset/internal/errors"
	"github.com/vango-dev/liveset/pkg/dom"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		m    Mutation
		ok   bool
	}{
		{"append", Mutation{Op: OpAppend, Target: "body", HTML: "<p></p>"}, true},
		{"remove", Mutation{Op: OpRemove, Target: "#a"}, true},
		{"set-attr", Mutation{Op: OpSetAttr, Target: "#a", Name: "data-x"}, true},
		{"set-attr without name", Mutation{Op: OpSetAttr, Target: "#a"}, false},
		{"missing target", Mutation{Op: OpRemove}, false},
		{"unknown op", Mutation{Op: "move", Target: "#a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && errors.Code(err) != "L031" {
				t.Errorf("code = %q, want L031", errors.Code(err))
			}
		})
	}
}

func TestResolve(t *testing.T) {
	doc, err := dom.ParseString(`<div id="a"><p></p></div>`)
	if err != nil {
		t.Fatal(err)
	}
	a := doc.GetElementByID("a")
	p := a.FirstChild

	tests := []struct {
		ref  string
		want string
	}{
		{"#a", dom.Path(a)},
		{"body", dom.Path(doc.Body())},
		{"head", dom.Path(doc.Head())},
		{dom.Path(p), dom.Path(p)},
		{"/" + dom.Path(p), dom.Path(p)},
	}
	for _, tt := range tests {
		n, err := Resolve(doc, tt.ref)
		if err != nil {
			t.Errorf("Resolve(%q) error = %v", tt.ref, err)
			continue
		}
		if got := dom.Path(n); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}

	for _, ref := range []string{"", "#missing", "5/5", "x/y"} {
		if _, err := Resolve(doc, ref); errors.Code(err) != "L032" {
			t.Errorf("Resolve(%q) code = %q, want L032", ref, errors.Code(err))
		}
	}
}

func TestApplyValidatesEverythingFirst(t *testing.T) {
	doc := dom.New()

	n, err := Apply(doc, []Mutation{
		{Op: OpAppend, Target: "body", HTML: `<p id="x"></p>`},
		{Op: "bogus", Target: "body"},
	})
	if n != 0 || errors.Code(err) != "L031" {
		t.Fatalf("Apply() = %d, %v; want 0 and L031", n, err)
	}
	if doc.GetElementByID("x") != nil {
		t.Error("first mutation was applied despite an invalid batch")
	}
}

func TestApplyOps(t *testing.T) {
	doc, err := dom.ParseString(`<ul id="list"><li id="a" class="x"></li></ul>`)
	if err != nil {
		t.Fatal(err)
	}

	n, err := Apply(doc, []Mutation{
		{Op: OpInsertBefore, Target: "#list", Ref: "#a", HTML: `<li id="first"></li>`},
		{Op: OpSetAttr, Target: "#first", Name: "data-k", Value: "v"},
		{Op: OpToggleClass, Target: "#a", Name: "x"},
		{Op: OpRemoveAttr, Target: "#first", Name: "data-k"},
	})
	if err != nil || n != 4 {
		t.Fatalf("Apply() = %d, %v", n, err)
	}

	list := doc.GetElementByID("list")
	if dom.IDOf(list.FirstChild) != "first" {
		t.Error("insert-before did not insert before the reference")
	}
	if dom.HasClass(doc.GetElementByID("a"), "x") {
		t.Error("toggle-class did not remove the class")
	}
	if _, ok := dom.GetAttr(doc.GetElementByID("first"), "data-k"); ok {
		t.Error("remove-attr left the attribute")
	}

	n, err = Apply(doc, []Mutation{
		{Op: OpReplaceChildren, Target: "#list", HTML: `<li id="only"></li>`},
		{Op: OpRemove, Target: "#gone"},
	})
	if n != 1 || errors.Code(err) != "L032" {
		t.Errorf("Apply() = %d, %v; want 1 and L032", n, err)
	}
	if doc.GetElementByID("only") == nil || doc.GetElementByID("a") != nil {
		t.Error("replace-children did not replace the list content")
	}
}
