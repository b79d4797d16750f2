package render

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
)

// prunable elements are removed once merging leaves them without children.
var prunable = map[string]bool{
	odf.Span:   true,
	odf.Anchor: true,
}

// Merge rewrites every tag as the literal text of the node holding its
// opening marker. Fragments in later nodes are cut out, whitespace elements
// inside a tag are dropped (their characters are part of the tag text), and
// text nodes or spans left empty are removed. Overlapping spans are joined
// first. Spans are processed in reverse document order so that recorded
// positions of earlier spans stay valid.
//
// The returned spans describe the merged tree.
func Merge(spans []TagSpan) []TagSpan {
	spans = unionOverlapping(spans)
	for i := len(spans) - 1; i >= 0; i-- {
		edits := mergeSpan(&spans[i])
		// Merged spans later in the same block may share a node with this one.
		for j := i + 1; j < len(spans) && spans[j].Block == spans[i].Block; j++ {
			for _, e := range edits {
				spans[j].Start.shift(e)
				spans[j].End.shift(e)
			}
		}
	}
	return spans
}

// edit records that the text of node at byte offset at and beyond moved by
// delta bytes.
type edit struct {
	node  *etree.CharData
	at    int
	delta int
}

func (p *Position) shift(e edit) {
	if p.Node == e.node && p.Offset >= e.at {
		p.Offset += e.delta
	}
}

func unionOverlapping(spans []TagSpan) []TagSpan {
	if len(spans) < 2 {
		return spans
	}
	out := make([]TagSpan, 0, len(spans))
	out = append(out, spans[0])
	for _, cur := range spans[1:] {
		prev := &out[len(out)-1]
		if cur.Block != prev.Block || cur.Block == nil || cur.startIndex > prev.endIndex {
			out = append(out, cur)
			continue
		}
		if cur.endIndex > prev.endIndex {
			extra := cur.chars[prev.endIndex-cur.startIndex+1:]
			chars := make([]scanChar, 0, len(prev.chars)+len(extra))
			chars = append(chars, prev.chars...)
			chars = append(chars, extra...)
			prev.chars = chars
			prev.endIndex = cur.endIndex
			prev.End = cur.End
			var sb strings.Builder
			for _, c := range chars {
				sb.WriteRune(c.r)
			}
			prev.Text = sb.String()
		}
	}
	return out
}

type cut struct {
	lo, hi int
}

func mergeSpan(s *TagSpan) []edit {
	if len(s.chars) == 0 || s.Start.Node == nil {
		return nil
	}

	cuts := make(map[*etree.CharData]*cut)
	var order []*etree.CharData
	var whitespace []*etree.Element
	seen := make(map[*etree.Element]bool)

	for _, c := range s.chars {
		if c.node == nil {
			if c.elem != nil && !c.barrier && !seen[c.elem] {
				seen[c.elem] = true
				whitespace = append(whitespace, c.elem)
			}
			continue
		}
		if k, ok := cuts[c.node]; ok {
			k.hi = c.offset + c.size
			continue
		}
		cuts[c.node] = &cut{lo: c.offset, hi: c.offset + c.size}
		order = append(order, c.node)
	}

	first := s.Start.Node
	for _, node := range order {
		if styleOf(node) != styleOf(first) {
			s.Restyled = true
		}
	}
	fc := cuts[first]
	first.SetData(first.Data[:fc.lo] + s.Text + first.Data[fc.hi:])
	edits := []edit{{node: first, at: fc.hi, delta: len(s.Text) - (fc.hi - fc.lo)}}

	for _, node := range order {
		if node == first {
			continue
		}
		k := cuts[node]
		node.SetData(node.Data[:k.lo] + node.Data[k.hi:])
		if node.Data == "" {
			removeAndPrune(node)
			continue
		}
		edits = append(edits, edit{node: node, at: k.hi, delta: k.lo - k.hi})
	}
	for _, el := range whitespace {
		removeAndPrune(el)
	}

	s.End = Position{Node: first, Offset: fc.lo + len(s.Text)}
	s.chars = nil
	return edits
}

// styleOf returns the style name of the nearest element around t that has
// one.
func styleOf(t *etree.CharData) string {
	for p := t.Parent(); p != nil && !odf.IsBlock(p); p = p.Parent() {
		if name := p.SelectAttrValue("text:style-name", ""); name != "" {
			return name
		}
	}
	return ""
}

// removeAndPrune detaches t and then every span ancestor it left empty.
func removeAndPrune(t etree.Token) {
	parent := t.Parent()
	if parent == nil {
		return
	}
	parent.RemoveChild(t)
	for parent != nil && prunable[parent.FullTag()] && len(parent.Child) == 0 {
		next := parent.Parent()
		if next == nil {
			return
		}
		next.RemoveChild(parent)
		parent = next
	}
}
