package live

import (
	"github.com/vango-dev/liveset/pkg/dom"
	"golang.org/x/net/html"
)

// keyIndex maps fast-path keys to the sets registered under them. Sets
// register and deregister themselves; the index owns nothing.
type keyIndex struct {
	ids     map[string][]*Set
	classes map[string][]*Set
	tags    map[string][]*Set
	names   map[string][]*Set
}

func newKeyIndex() keyIndex {
	return keyIndex{
		ids:     make(map[string][]*Set),
		classes: make(map[string][]*Set),
		tags:    make(map[string][]*Set),
		names:   make(map[string][]*Set),
	}
}

func (ix *keyIndex) bucket(k KeyKind) map[string][]*Set {
	switch k {
	case KeyID:
		return ix.ids
	case KeyClass:
		return ix.classes
	case KeyTag:
		return ix.tags
	case KeyName:
		return ix.names
	default:
		return nil
	}
}

func (ix *keyIndex) add(k KeyKind, value string, s *Set) {
	b := ix.bucket(k)
	if b == nil {
		return
	}
	b[value] = append(b[value], s)
}

func (ix *keyIndex) remove(k KeyKind, value string, s *Set) {
	b := ix.bucket(k)
	if b == nil {
		return
	}
	list := b[value]
	for i, x := range list {
		if x == s {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(b, value)
		return
	}
	b[value] = list
}

// candidates calls visit for every set registered under one of n's keys.
// A set registered under several of n's keys is visited once per key; Add
// is idempotent.
func (ix *keyIndex) candidates(n *html.Node, visit func(*Set)) {
	each := func(list []*Set) {
		if len(list) == 0 {
			return
		}
		for _, s := range append([]*Set(nil), list...) {
			visit(s)
		}
	}
	if id := dom.IDOf(n); id != "" {
		each(ix.ids[id])
	}
	for _, c := range dom.ClassList(n) {
		each(ix.classes[c])
	}
	if name := dom.NameOf(n); name != "" {
		each(ix.names[name])
	}
	each(ix.tags[dom.TagOf(n)])
}

// keys returns the number of distinct keys in the index.
func (ix *keyIndex) keys() int {
	return len(ix.ids) + len(ix.classes) + len(ix.tags) + len(ix.names)
}

// references reports whether s is registered under any key.
func (ix *keyIndex) references(s *Set) bool {
	for _, b := range []map[string][]*Set{ix.ids, ix.classes, ix.tags, ix.names} {
		for _, list := range b {
			for _, x := range list {
				if x == s {
					return true
				}
			}
		}
	}
	return false
}
