// Package odf provides the document tree used by go-stencil-odt to parse and
// manipulate the XML parts of OpenDocument packages.
//
// OpenDocument text files are ZIP archives whose content lives in XML parts
// (content.xml for the body, styles.xml for page styles, headers and footers).
// This package wraps github.com/beevik/etree so that every node keeps a stable
// pointer identity while the render pipeline splits, merges and moves text.
//
// # Structure Organization
//
//   - document.go: Document parsing, serialization and namespace prefix lookup
//   - names.go: namespace URIs and the element classes the renderer relies on
//   - builders.go: node builders for text, spans and whitespace elements
//
// # Element Classes
//
// Block elements (text:p, text:h) own the text a template tag is collected from.
//
// Transparent elements (text:span, text:a, bookmarks, soft page breaks) carry
// no meaning for the template language and are crossed when a tag is split
// over several runs.
//
// Whitespace elements (text:line-break, text:tab, text:s) stand for literal
// characters and contribute them to the collected text.
//
// # Usage
//
//	doc, err := odf.Parse(content)
//	if err != nil {
//	    return err
//	}
//	span := odf.CreateTextSpanNode(doc, "Hello")
//	doc.Root().AddChild(span)
//	out, err := doc.Bytes()
//
// Element matching uses the conventional prefixes (text, table, draw, office,
// style, xlink) which every ODF producer emits.
package odf
