package kml

import (
	"strings"

	"github.com/beevik/etree"
)

// Node is the read-only view of a markup element the traverser needs.
type Node interface {
	// Tag returns the local element name without namespace prefix.
	Tag() string
	// Children returns element children in source order.
	Children() []Node
	// Child returns the first direct child with the given tag, or nil.
	Child(tag string) Node
	// Attr looks up an attribute by name.
	Attr(name string) (string, bool)
	// Text returns the trimmed character data of the element.
	Text() string
}

// element adapts an etree element to Node.
type element struct {
	el *etree.Element
}

// NewNode wraps an etree element. It returns nil for a nil element so the
// result can be compared against nil safely.
func NewNode(el *etree.Element) Node {
	if el == nil {
		return nil
	}
	return element{el: el}
}

func (e element) Tag() string {
	return e.el.Tag
}

func (e element) Children() []Node {
	children := e.el.ChildElements()
	nodes := make([]Node, 0, len(children))
	for _, c := range children {
		nodes = append(nodes, element{el: c})
	}
	return nodes
}

func (e element) Child(tag string) Node {
	for _, c := range e.el.ChildElements() {
		if c.Tag == tag {
			return element{el: c}
		}
	}
	return nil
}

func (e element) Attr(name string) (string, bool) {
	a := e.el.SelectAttr(name)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

func (e element) Text() string {
	return strings.TrimSpace(e.el.Text())
}

// childText returns the text of the first child with the given tag,
// or an empty string when the child is missing.
func childText(n Node, tag string) string {
	if n == nil {
		return ""
	}
	c := n.Child(tag)
	if c == nil {
		return ""
	}
	return c.Text()
}

// path follows a chain of first-child lookups, returning nil when any
// link is missing.
func path(n Node, tags ...string) Node {
	for _, tag := range tags {
		if n == nil {
			return nil
		}
		n = n.Child(tag)
	}
	return n
}
