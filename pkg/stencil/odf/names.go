package odf

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Namespace URIs of the ODF vocabularies touched by the renderer.
const (
	NSOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	NSStyle  = "urn:oasis:names:tc:opendocument:xmlns:style:1.0"
	NSText   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	NSTable  = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	NSDraw   = "urn:oasis:names:tc:opendocument:xmlns:drawing:1.0"
	NSFO     = "urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0"
	NSXLink  = "http://www.w3.org/1999/xlink"
)

// Qualified element names.
const (
	Paragraph     = "text:p"
	Heading       = "text:h"
	Span          = "text:span"
	Anchor        = "text:a"
	LineBreak     = "text:line-break"
	Tab           = "text:tab"
	Space         = "text:s"
	TextInput     = "text:text-input"
	Placeholder   = "text:placeholder"
	DropDown      = "text:drop-down"
	Section       = "text:section"
	ListItem      = "text:list-item"
	Table         = "table:table"
	TableRow      = "table:table-row"
	TableCell     = "table:table-cell"
	Frame         = "draw:frame"
	Image         = "draw:image"
	AutoStyles    = "office:automatic-styles"
	Style         = "style:style"
	TextPropsElem = "style:text-properties"
)

var blockElements = map[string]bool{
	Paragraph: true,
	Heading:   true,
}

var transparentElements = map[string]bool{
	Span:                        true,
	Anchor:                      true,
	"text:bookmark":             true,
	"text:bookmark-start":       true,
	"text:bookmark-end":         true,
	"text:soft-page-break":      true,
	"text:reference-mark":       true,
	"text:reference-mark-start": true,
	"text:reference-mark-end":   true,
	"office:annotation-end":     true,
}

// EscapeWhitelist lists the elements whose direct text may carry line breaks
// and tabs as markup.
var EscapeWhitelist = map[string]bool{
	Paragraph:         true,
	Heading:           true,
	Anchor:            true,
	Span:              true,
	"text:ruby-base":  true,
	"text:meta":       true,
	"text:meta-field": true,
}

// Name returns the qualified name of el, such as "text:p".
func Name(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.FullTag()
}

// Is reports whether el has the qualified name.
func Is(el *etree.Element, name string) bool {
	return el != nil && el.FullTag() == name
}

// IsBlock reports whether el owns the text template tags are collected from.
func IsBlock(el *etree.Element) bool {
	return el != nil && blockElements[el.FullTag()]
}

// IsTransparent reports whether el can be crossed when a tag is split.
func IsTransparent(el *etree.Element) bool {
	return el != nil && transparentElements[el.FullTag()]
}

// WhitespaceText returns the literal text a whitespace element stands for.
// The second result is false for any other element.
func WhitespaceText(el *etree.Element) (string, bool) {
	switch Name(el) {
	case LineBreak:
		return "\n", true
	case Tab:
		return "\t", true
	case Space:
		n := 1
		if c := el.SelectAttrValue("text:c", ""); c != "" {
			if v, err := strconv.Atoi(c); err == nil && v > 0 {
				n = v
			}
		}
		return strings.Repeat(" ", n), true
	}
	return "", false
}

// Ancestor returns the nearest ancestor of el with the given name.
func Ancestor(el *etree.Element, name string) *etree.Element {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.FullTag() == name {
			return p
		}
	}
	return nil
}

// Walk visits el and its descendants in document order. Returning false
// from fn skips the children of the visited element.
func Walk(el *etree.Element, fn func(*etree.Element) bool) {
	if el == nil || !fn(el) {
		return
	}
	for _, child := range el.ChildElements() {
		Walk(child, fn)
	}
}

// FindAll collects the descendants of el with the given name.
func FindAll(el *etree.Element, name string) []*etree.Element {
	var found []*etree.Element
	Walk(el, func(e *etree.Element) bool {
		if e != el && e.FullTag() == name {
			found = append(found, e)
		}
		return true
	})
	return found
}
