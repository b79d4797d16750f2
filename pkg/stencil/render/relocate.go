package render

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
)

// RelocateBlocks replaces structure that only exists to hold a block
// statement. When the statement is the whole text of its table row, the row
// becomes a bare text node with the tag, so a loop repeats whole rows. The
// same goes for a list item, then for a paragraph, so a conditional leaves
// no empty bullet or paragraph behind. Statements that produce text, such as
// firstof or cycle, keep their paragraph. Spans must come from Merge.
// It returns the number of relocated tags.
func RelocateBlocks(doc *odf.Document, spans []TagSpan) int {
	n := 0
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		if s.Kind != TagStatement || s.Block == nil || s.Block.Parent() == nil || !structural(s.Text) {
			continue
		}
		target := relocationTarget(s)
		if target == nil {
			continue
		}
		odf.Replace(target, odf.CreateTextNode(strings.TrimSpace(s.Text)))
		n++
	}
	return n
}

// structural reports whether a statement opens, continues or closes a block,
// or assigns a variable. None of these renders text.
func structural(raw string) bool {
	tag, ok := ParseTag(raw)
	if !ok || tag.Kind != TagStatement {
		return false
	}
	switch kw := tag.Keyword; {
	case kw == "set" || kw == "endset":
		return true
	case IsBlockTerminator(kw):
		return true
	default:
		_, opens := BlockCloser(kw)
		_, within := intermediates[kw]
		return opens || within
	}
}

// relocationTarget picks the outermost container holding nothing but the
// tag: a table row, a list item or the paragraph itself.
func relocationTarget(s TagSpan) *etree.Element {
	text := strings.TrimSpace(s.Text)
	for _, name := range []string{odf.TableRow, odf.ListItem} {
		if el := odf.Ancestor(s.Block, name); el != nil && strings.TrimSpace(odf.Text(el)) == text {
			return el
		}
	}
	if strings.TrimSpace(odf.Text(s.Block)) == text {
		return s.Block
	}
	return nil
}

// hintTargets maps the element part of a relocation hint to the ancestor it
// names.
var hintTargets = map[string]string{
	"paragraph":  odf.Paragraph,
	"heading":    odf.Heading,
	"table-row":  odf.TableRow,
	"table-cell": odf.TableCell,
	"table":      odf.Table,
	"section":    odf.Section,
}

// ParseHint splits a field description such as "after::table-row" into its
// direction and the qualified name of the ancestor it refers to.
func ParseHint(hint string) (before bool, ancestor string, ok bool) {
	where, target, found := strings.Cut(strings.TrimSpace(hint), "::")
	if !found {
		return false, "", false
	}
	ancestor, ok = hintTargets[strings.TrimSpace(target)]
	if !ok {
		return false, "", false
	}
	switch strings.TrimSpace(where) {
	case "before":
		return true, ancestor, true
	case "after":
		return false, ancestor, true
	}
	return false, "", false
}
