package odf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Document is a parsed XML part of an ODF package.
type Document struct {
	tree *etree.Document
}

// NewDocument returns an empty document with the writer settings the
// renderer expects.
func NewDocument() *Document {
	tree := etree.NewDocument()
	configure(tree)
	return &Document{tree: tree}
}

// Parse reads an XML part. Fragments with several top-level elements or
// with undeclared prefixes are accepted.
func Parse(data []byte) (*Document, error) {
	doc := NewDocument()
	if err := doc.tree.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	return doc, nil
}

// ParseString is Parse for strings.
func ParseString(s string) (*Document, error) {
	return Parse([]byte(s))
}

func configure(tree *etree.Document) {
	// Quotes stay literal in text so that {{ "x" }} survives a round trip.
	tree.WriteSettings.CanonicalText = true
	tree.WriteSettings.CanonicalAttrVal = true
}

// Tree exposes the underlying etree document.
func (d *Document) Tree() *etree.Document {
	return d.tree
}

// Root returns the first top-level element, or nil.
func (d *Document) Root() *etree.Element {
	return d.tree.Root()
}

// Elements returns every top-level element. Parts have one, fragments may
// have several.
func (d *Document) Elements() []*etree.Element {
	return d.tree.ChildElements()
}

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.tree.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize XML: %w", err)
	}
	return buf.Bytes(), nil
}

// String serializes the document, returning "" on failure.
func (d *Document) String() string {
	b, err := d.Bytes()
	if err != nil {
		return ""
	}
	return string(b)
}

// WriteNode serializes a single node with the document's settings.
func (d *Document) WriteNode(t etree.Token) string {
	var sb strings.Builder
	t.WriteTo(&sb, &d.tree.WriteSettings)
	return sb.String()
}

// Prefix returns the prefix bound to uri on the root element, or fallback
// when the document does not declare it.
func (d *Document) Prefix(uri, fallback string) string {
	root := d.Root()
	if root == nil {
		return fallback
	}
	for _, a := range root.Attr {
		if a.Space == "xmlns" && a.Value == uri {
			return a.Key
		}
	}
	return fallback
}

// Declare adds an xmlns declaration on the root element unless one for uri
// already exists, and returns the bound prefix.
func (d *Document) Declare(prefix, uri string) string {
	if p := d.Prefix(uri, ""); p != "" {
		return p
	}
	if root := d.Root(); root != nil {
		root.CreateAttr("xmlns:"+prefix, uri)
	}
	return prefix
}

// Text returns the text content of el including descendants, with
// whitespace elements expanded.
func Text(el *etree.Element) string {
	var sb strings.Builder
	collectText(el, &sb)
	return sb.String()
}

func collectText(el *etree.Element, sb *strings.Builder) {
	if ws, ok := WhitespaceText(el); ok {
		sb.WriteString(ws)
		return
	}
	for _, child := range el.Child {
		switch c := child.(type) {
		case *etree.CharData:
			sb.WriteString(c.Data)
		case *etree.Element:
			collectText(c, sb)
		}
	}
}

// Replace puts repl in the place of old within old's parent. It is a no-op
// when old is detached.
func Replace(old etree.Token, repl ...etree.Token) {
	parent := old.Parent()
	if parent == nil {
		return
	}
	idx := old.Index()
	parent.RemoveChildAt(idx)
	for i, t := range repl {
		parent.InsertChildAt(idx+i, t)
	}
}

// InsertBefore inserts t just before ref.
func InsertBefore(ref etree.Token, t etree.Token) {
	if parent := ref.Parent(); parent != nil {
		parent.InsertChildAt(ref.Index(), t)
	}
}

// InsertAfter inserts t just after ref.
func InsertAfter(ref etree.Token, t etree.Token) {
	if parent := ref.Parent(); parent != nil {
		parent.InsertChildAt(ref.Index()+1, t)
	}
}
