package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
)

// Position is a point inside a text node. Offset is a byte offset into
// Node.Data.
type Position struct {
	Node   *etree.CharData
	Offset int
}

// TagSpan is a tag found in a block, possibly spread over several text nodes.
type TagSpan struct {
	Kind TagKind
	// Start is the position of the opening marker, End the position just past
	// the closing marker.
	Start, End Position
	// Text is the reconstructed tag, whitespace elements included as their
	// literal characters.
	Text string
	// Block is the paragraph or heading holding the tag.
	Block *etree.Element
	// Restyled is set by Merge when the fragments of the tag carried different
	// character styles. The merged tag keeps the style of its first fragment.
	Restyled bool

	chars      []scanChar
	startIndex int
	endIndex   int
}

// Fragmented reports whether the tag spans more than one node.
func (s TagSpan) Fragmented() bool {
	for _, c := range s.chars {
		if c.node != s.Start.Node {
			return true
		}
	}
	return false
}

// MalformedTagError reports a tag opened but not closed before the end of
// its block.
type MalformedTagError struct {
	// Part is the package entry, such as content.xml. Set by the caller.
	Part string
	// Path locates the block, as in /office:document-content/office:body/...
	Path string
	// Offset is the rune offset of the opening marker within the block text.
	Offset int
	// Text is the unterminated tag text up to the end of the block.
	Text string
}

func (e *MalformedTagError) Error() string {
	where := e.Path
	if e.Part != "" {
		where = e.Part + ":" + e.Path
	}
	return fmt.Sprintf("malformed tag at %s, offset %d: %q is never closed", where, e.Offset, e.Text)
}

// scanChar is one character of a block's text. Characters contributed by a
// whitespace element have a nil node and record the element instead.
type scanChar struct {
	r      rune
	node   *etree.CharData
	offset int
	size   int
	elem   *etree.Element
	// barrier marks an opaque element no tag may cross.
	barrier bool
}

// Locate scans every paragraph and heading under root in document order and
// returns the tags found. Nested blocks (a paragraph inside a frame inside a
// paragraph) are scanned on their own and are opaque to their parent.
func Locate(root *etree.Element) ([]TagSpan, error) {
	var spans []TagSpan
	var err error
	odf.Walk(root, func(el *etree.Element) bool {
		if err != nil {
			return false
		}
		if odf.IsBlock(el) {
			var found []TagSpan
			found, err = locateInBlock(el)
			spans = append(spans, found...)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return spans, nil
}

func locateInBlock(block *etree.Element) ([]TagSpan, error) {
	chars := collectChars(block, nil)
	if len(chars) == 0 {
		return nil, nil
	}

	var spans []TagSpan
	open := -1
	var kind TagKind

	for i := 0; i < len(chars); {
		if chars[i].barrier {
			if open >= 0 {
				return nil, malformed(block, chars, open, i)
			}
			i++
			continue
		}

		if open < 0 {
			if k, ok := opensAt(chars, i); ok {
				open, kind = i, k
				i += 2
				continue
			}
			i++
			continue
		}

		if hasPair(chars, i, closerFirst(kind), '}') {
			spans = append(spans, newTagSpan(block, kind, chars, open, i+1))
			open = -1
			i += 2
			continue
		}
		// An opener of another kind right after ours starts a new tag.
		if k, ok := opensAt(chars, i); ok && i == open+2 && k != kind {
			open, kind = i, k
			i += 2
			continue
		}
		i++
	}

	if open >= 0 {
		return nil, malformed(block, chars, open, len(chars))
	}
	return spans, nil
}

func collectChars(el *etree.Element, chars []scanChar) []scanChar {
	for _, child := range el.Child {
		switch c := child.(type) {
		case *etree.CharData:
			for off := 0; off < len(c.Data); {
				r, size := utf8.DecodeRuneInString(c.Data[off:])
				chars = append(chars, scanChar{r: r, node: c, offset: off, size: size})
				off += size
			}
		case *etree.Element:
			if ws, ok := odf.WhitespaceText(c); ok {
				for _, r := range ws {
					chars = append(chars, scanChar{r: r, elem: c})
				}
				continue
			}
			if odf.IsTransparent(c) {
				chars = collectChars(c, chars)
				continue
			}
			if len(c.Child) == 0 {
				// Empty markers (change marks, note anchors) carry no text.
				continue
			}
			chars = append(chars, scanChar{elem: c, barrier: true})
		}
	}
	return chars
}

func opensAt(chars []scanChar, i int) (TagKind, bool) {
	if i+1 >= len(chars) || chars[i].r != '{' || chars[i+1].barrier {
		return 0, false
	}
	return openerKind(chars[i+1].r)
}

func hasPair(chars []scanChar, idx int, first, second rune) bool {
	return idx+1 < len(chars) &&
		!chars[idx].barrier && !chars[idx+1].barrier &&
		chars[idx].r == first && chars[idx+1].r == second
}

func newTagSpan(block *etree.Element, kind TagKind, chars []scanChar, start, end int) TagSpan {
	var sb strings.Builder
	for i := start; i <= end; i++ {
		sb.WriteRune(chars[i].r)
	}
	last := chars[end]
	return TagSpan{
		Kind:       kind,
		Start:      Position{Node: chars[start].node, Offset: chars[start].offset},
		End:        Position{Node: last.node, Offset: last.offset + last.size},
		Text:       sb.String(),
		Block:      block,
		chars:      chars[start : end+1],
		startIndex: start,
		endIndex:   end,
	}
}

func malformed(block *etree.Element, chars []scanChar, open, stop int) error {
	var sb strings.Builder
	for i := open; i < stop; i++ {
		if !chars[i].barrier {
			sb.WriteRune(chars[i].r)
		}
	}
	return &MalformedTagError{
		Path:   blockPath(block),
		Offset: open,
		Text:   sb.String(),
	}
}

func blockPath(el *etree.Element) string {
	var parts []string
	for e := el; e != nil && e.Tag != ""; e = e.Parent() {
		parts = append(parts, e.FullTag())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}
