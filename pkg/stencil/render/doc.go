// Package render provides the tag reconciliation helpers used by the ODF
// rendering pipeline.
//
// Word processors split a single template tag over several text runs
// (spell checking, autocorrect, style changes), escape the operators the
// template language needs (<, >, ") and store line breaks and tabs as
// elements. The functions in this package undo that damage so that a
// template engine sees a clean source, and restore the document's
// conventions once the engine is done.
//
// # Structure Organization
//
//   - tags.go: classification of {{ }}, {% %} and {# #} tags
//   - unescape.go: entity repair inside tag regions
//   - escape.go: line break and tab codec for whitelisted elements
//   - locate.go: discovery of (possibly fragmented) tags inside blocks
//   - merge.go: folding fragmented tags back into a single text node
//   - relocate.go: replacing rows and paragraphs that only hold a block tag
//   - prepare.go: fields, hyperlinks and image frames
//   - regions.go: mapping engine error positions back to tags
//
// # Key Functions
//
// Locate and Merge: find every tag in document order and rewrite it as the
// literal text of a single node, removing the fragments it was split into.
//
// RelocateBlocks: a statement tag ({% for %}, {% endif %}) that is the whole
// text of a table row or paragraph replaces that row or paragraph, so that
// loops repeat whole rows and conditionals drop whole paragraphs.
//
// UnescapeEntities, EncodeEscapeChars, DecodeEscapeChars: string level
// transformations around the template engine.
//
// # Design Principles
//
// Pure Functions: nothing in this package keeps state between calls, calls
// back into the stencil package or evaluates templates. Trees are modified in
// place through github.com/beevik/etree pointers whose identity is stable, so
// positions recorded by Locate stay valid while Merge walks the spans in
// reverse document order.
//
// # Usage
//
//	spans, err := render.Locate(doc.Root())
//	if err != nil {
//	    return err // *render.MalformedTagError
//	}
//	spans = render.Merge(spans)
//	render.RelocateBlocks(doc, spans)
//	source := render.DecodeEscapeChars(render.UnescapeEntities(doc.String()))
package render
