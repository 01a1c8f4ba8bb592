package domain

// Node is a single element in a parsed reporting tree. Trees are built once by
// a store decoder and never mutated afterwards, so they are safe to share
// across goroutines.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Attr returns the value of the named attribute, or "" when absent.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}

// HasAttr reports whether the named attribute is declared, even when empty.
func (n *Node) HasAttr(name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.Attrs[name]
	return ok
}

// Find returns the first direct child with the given tag, or nil.
func (n *Node) Find(tag string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child with the given tag.
func (n *Node) FindAll(tag string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// ChildText returns the text of the first direct child with the given tag.
func (n *Node) ChildText(tag string) string {
	return n.Find(tag).GetText()
}

// GetText returns the node's own text, or "" for a nil node.
func (n *Node) GetText() string {
	if n == nil {
		return ""
	}
	return n.Text
}

// RecordKind distinguishes the two reporting unit types in a corpus.
type RecordKind string

const (
	KindActivity     RecordKind = "activity"
	KindOrganisation RecordKind = "organisation"
)

// Record is one reporting unit (an activity or an organisation report)
// together with the standard version declared on its enclosing document.
// Records are owned by the caller and treated as immutable by the engine.
type Record struct {
	Kind RecordKind
	Root *Node
	// FileVersion is the version attribute of the enclosing document root.
	// It may be empty or carry a value outside the version codelist; the
	// engine falls back to the legacy version in that case.
	FileVersion string
}

// GroupKey identifies where a record sits in the aggregation hierarchy.
type GroupKey struct {
	Publisher string
	File      string
}
