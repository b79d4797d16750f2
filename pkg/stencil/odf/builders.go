package odf

import (
	"strconv"

	"github.com/beevik/etree"
)

// CreateTextNode wraps text as a plain text node. The node is not attached;
// the caller places it in the tree.
func CreateTextNode(text string) *etree.CharData {
	return etree.NewText(text)
}

// CreateTextSpanNode wraps text in a text:span element. The prefix follows the
// declaration of the text namespace in doc.
func CreateTextSpanNode(doc *Document, text string) *etree.Element {
	span := etree.NewElement(textName(doc, "span"))
	span.CreateText(text)
	return span
}

// CreateStyledSpanNode is CreateTextSpanNode with a text:style-name.
func CreateStyledSpanNode(doc *Document, style, text string) *etree.Element {
	span := CreateTextSpanNode(doc, text)
	if style != "" {
		span.CreateAttr(textName(doc, "style-name"), style)
	}
	return span
}

// CreateLineBreak returns a text:line-break element.
func CreateLineBreak(doc *Document) *etree.Element {
	return etree.NewElement(textName(doc, "line-break"))
}

// CreateTab returns a text:tab element.
func CreateTab(doc *Document) *etree.Element {
	return etree.NewElement(textName(doc, "tab"))
}

// CreateSpace returns a text:s element standing for n spaces.
func CreateSpace(doc *Document, n int) *etree.Element {
	s := etree.NewElement(textName(doc, "s"))
	if n > 1 {
		s.CreateAttr(textName(doc, "c"), strconv.Itoa(n))
	}
	return s
}

func textName(doc *Document, local string) string {
	prefix := "text"
	if doc != nil {
		prefix = doc.Prefix(NSText, "text")
	}
	return prefix + ":" + local
}
