package dom

import "golang.org/x/net/html"

// RecordKind is the mutation record discriminator.
type RecordKind uint8

const (
	KindChildList  RecordKind = iota // children inserted or removed
	KindAttributes                   // attribute set or removed
)

// String returns the string representation of the RecordKind.
func (k RecordKind) String() string {
	switch k {
	case KindChildList:
		return "childList"
	case KindAttributes:
		return "attributes"
	default:
		return "unknown"
	}
}

// Record describes one change to the tree.
type Record struct {
	Kind RecordKind

	// Target is the parent whose children changed, or the element whose
	// attribute changed.
	Target *html.Node

	// Added and Removed are the roots of inserted and removed subtrees.
	Added   []*html.Node
	Removed []*html.Node

	// Name is the changed attribute. OldValue and HadValue describe its
	// value before the change.
	Name     string
	OldValue string
	HadValue bool
}
