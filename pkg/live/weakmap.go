package live

import (
	"runtime"
	"sync"
	"weak"

	"golang.org/x/net/html"
)

// nodeMap associates values with nodes without keeping the nodes alive.
// Entries disappear once their node is garbage collected. The mutex guards
// against GC cleanups, which run on their own goroutine.
type nodeMap[V any] struct {
	mu sync.Mutex
	m  map[weak.Pointer[html.Node]]*nodeEntry[V]
}

type nodeEntry[V any] struct {
	value   V
	cleanup runtime.Cleanup
}

func newNodeMap[V any]() *nodeMap[V] {
	return &nodeMap[V]{m: make(map[weak.Pointer[html.Node]]*nodeEntry[V])}
}

func (m *nodeMap[V]) get(n *html.Node) (V, bool) {
	var zero V
	if n == nil {
		return zero, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.m[weak.Make(n)]
	if !ok {
		return zero, false
	}
	return e.value, true
}

func (m *nodeMap[V]) has(n *html.Node) bool {
	_, ok := m.get(n)
	return ok
}

func (m *nodeMap[V]) set(n *html.Node, v V) {
	if n == nil {
		return
	}
	key := weak.Make(n)

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.m[key]; ok {
		e.value = v
		return
	}
	e := &nodeEntry[V]{value: v}
	e.cleanup = runtime.AddCleanup(n, m.evict, key)
	m.m[key] = e
}

func (m *nodeMap[V]) delete(n *html.Node) {
	if n == nil {
		return
	}
	key := weak.Make(n)

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.m[key]; ok {
		e.cleanup.Stop()
		delete(m.m, key)
	}
}

func (m *nodeMap[V]) evict(key weak.Pointer[html.Node]) {
	m.mu.Lock()
	delete(m.m, key)
	m.mu.Unlock()
}

func (m *nodeMap[V]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.m)
}
