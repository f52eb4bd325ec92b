package stream

import (
	"github.com/vango-dev/liveset/pkg/dom"
	"github.com/vango-dev/liveset/pkg/live"
	"golang.org/x/net/html"
)

// NodeInfo describes one member element.
type NodeInfo struct {
	Path    string   `json:"path"`
	Tag     string   `json:"tag"`
	ID      string   `json:"id,omitempty"`
	Classes []string `json:"classes,omitempty"`
}

// Snapshot is the membership of a set at one point in time.
type Snapshot struct {
	Set      string     `json:"set"`
	Selector string     `json:"selector"`
	Nodes    []NodeInfo `json:"nodes"`
}

// SetInfo summarises an open set.
type SetInfo struct {
	ID       string `json:"id"`
	Selector string `json:"selector"`
	Scope    string `json:"scope"`
	Key      string `json:"key"`
	Len      int    `json:"len"`
	Error    string `json:"error,omitempty"`
}

// Describe builds the NodeInfo of n. It must run on the loop goroutine.
func Describe(n *html.Node) NodeInfo {
	return NodeInfo{
		Path:    dom.Path(n),
		Tag:     dom.TagOf(n),
		ID:      dom.IDOf(n),
		Classes: dom.ClassList(n),
	}
}

// TakeSnapshot builds the snapshot of s from nodes. It must run on the
// loop goroutine.
func TakeSnapshot(s *live.Set, nodes []*html.Node) Snapshot {
	snap := Snapshot{
		Set:      s.ID(),
		Selector: s.Selector(),
		Nodes:    make([]NodeInfo, 0, len(nodes)),
	}
	for _, n := range nodes {
		snap.Nodes = append(snap.Nodes, Describe(n))
	}
	return snap
}

func infoOf(s *live.Set) SetInfo {
	kind, value := s.Key()
	info := SetInfo{
		ID:       s.ID(),
		Selector: s.Selector(),
		Scope:    s.Scope().String(),
		Key:      kind.String(),
		Len:      s.Len(),
	}
	if value != "" {
		info.Key += ":" + value
	}
	if err := s.Err(); err != nil {
		info.Error = err.Error()
	}
	return info
}
