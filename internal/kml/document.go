package kml

import (
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
)

// ErrNoRoot is returned when the input holds no root element.
var ErrNoRoot = errors.New("kml: document has no root element")

// Document is a parsed KML file.
type Document struct {
	doc  *etree.Document
	root Node
}

// Load reads and parses a KML file.
func Load(path string) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("kml: read %s: %w", path, err)
	}
	return newDocument(doc)
}

// Parse reads a KML document from r.
func Parse(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("kml: parse: %w", err)
	}
	return newDocument(doc)
}

// ParseBytes parses a KML document held in memory.
func ParseBytes(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("kml: parse: %w", err)
	}
	return newDocument(doc)
}

func newDocument(doc *etree.Document) (*Document, error) {
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRoot
	}
	return &Document{doc: doc, root: NewNode(root)}, nil
}

// Root returns the root element, usually <kml>.
func (d *Document) Root() Node {
	return d.root
}

// Name returns the name of the top-level container.
//
// A root with a Document child names that document. A root holding a Folder
// directly is treated as the container itself. Missing or empty names get a
// placeholder built from the container tag.
func (d *Document) Name() string {
	var container Node
	switch {
	case d.root.Child("Document") != nil:
		container = d.root.Child("Document")
	case d.root.Child("Folder") != nil:
		container = d.root
	default:
		return "No Document/Folder in KML"
	}

	nameNode := container.Child("name")
	if nameNode == nil {
		return container.Tag() + " (Unnamed)"
	}
	if name := nameNode.Text(); name != "" {
		return name
	}
	return container.Tag() + " (name is empty)"
}

// StartNode returns the container traversal should begin from: the root
// Document if present, otherwise the root itself when it directly holds
// folders or placemarks.
func (d *Document) StartNode() (Node, bool) {
	if doc := d.root.Child("Document"); doc != nil {
		return doc, true
	}
	if d.root.Child("Folder") != nil || d.root.Child("Placemark") != nil {
		return d.root, true
	}
	return nil, false
}
