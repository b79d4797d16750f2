package stencil

import (
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/engine"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
)

// Inline formats produced by markdown() and html().
const (
	formatBold        = "bold"
	formatItalic      = "italic"
	formatCode        = "code"
	formatUnderline   = "underline"
	formatStrike      = "strike"
	formatSuperscript = "superscript"
	formatSubscript   = "subscript"
)

type textProperty struct {
	ns, local, value string
}

var formatProperties = map[string][]textProperty{
	formatBold: {
		{odf.NSFO, "font-weight", "bold"},
		{odf.NSStyle, "font-weight-asian", "bold"},
		{odf.NSStyle, "font-weight-complex", "bold"},
	},
	formatItalic: {
		{odf.NSFO, "font-style", "italic"},
		{odf.NSStyle, "font-style-asian", "italic"},
		{odf.NSStyle, "font-style-complex", "italic"},
	},
	formatCode: {
		{odf.NSFO, "font-family", "'Courier New'"},
		{odf.NSStyle, "font-family-generic", "modern"},
		{odf.NSStyle, "font-pitch", "fixed"},
	},
	formatUnderline: {
		{odf.NSStyle, "text-underline-style", "solid"},
		{odf.NSStyle, "text-underline-width", "auto"},
		{odf.NSStyle, "text-underline-color", "font-color"},
	},
	formatStrike: {
		{odf.NSStyle, "text-line-through-style", "solid"},
		{odf.NSStyle, "text-line-through-type", "single"},
	},
	formatSuperscript: {{odf.NSStyle, "text-position", "super 58%"}},
	formatSubscript:   {{odf.NSStyle, "text-position", "sub 58%"}},
}

// styleName is the automatic style name of a format, such as
// "stencil_markdown_bold".
func styleName(family, format string) string {
	return "stencil_" + family + "_" + format
}

// formatOf is the inverse of styleName.
func formatOf(style string) (string, bool) {
	if !strings.HasPrefix(style, "stencil_") {
		return "", false
	}
	i := strings.LastIndexByte(style, '_')
	format := style[i+1:]
	_, ok := formatProperties[format]
	return format, ok
}

// richText collects inline ODF markup for a fragment that is inserted into
// an existing paragraph. It never opens paragraphs of its own: block
// structure becomes line breaks.
type richText struct {
	doc    *odf.Document
	root   *etree.Element
	stack  []*etree.Element
	family string
	styles map[string]bool
	links  bool
	// lineStart is set while nothing but line breaks follows the start.
	lineStart bool
}

func newRichText(textPrefix, family string) *richText {
	if textPrefix == "" {
		textPrefix = "text"
	}
	doc := odf.NewDocument()
	root := doc.Tree().CreateElement("fragment")
	root.CreateAttr("xmlns:"+textPrefix, odf.NSText)
	return &richText{
		doc:       doc,
		root:      root,
		family:    family,
		styles:    make(map[string]bool),
		lineStart: true,
	}
}

func (rt *richText) current() *etree.Element {
	if n := len(rt.stack); n > 0 {
		return rt.stack[n-1]
	}
	return rt.root
}

func (rt *richText) empty() bool {
	return len(rt.root.Child) == 0
}

// text appends s. Newlines, tabs and runs of spaces become the ODF
// whitespace elements so that they survive layout.
func (rt *richText) text(s string) {
	parent := rt.current()
	var buf strings.Builder
	if s != "" {
		rt.lineStart = s[len(s)-1] == '\n'
	}
	flush := func() {
		if buf.Len() > 0 {
			parent.AddChild(odf.CreateTextNode(buf.String()))
			buf.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			flush()
			parent.AddChild(odf.CreateLineBreak(rt.doc))
		case '\t':
			flush()
			parent.AddChild(odf.CreateTab(rt.doc))
		case ' ':
			n := 1
			for i+n < len(s) && s[i+n] == ' ' {
				n++
			}
			buf.WriteByte(' ')
			if n > 1 {
				flush()
				parent.AddChild(odf.CreateSpace(rt.doc, n-1))
			}
			i += n - 1
		case '\r':
		default:
			buf.WriteByte(c)
		}
	}
	flush()
}

func (rt *richText) lineBreak() {
	rt.current().AddChild(odf.CreateLineBreak(rt.doc))
	rt.lineStart = true
}

// breaks separates blocks with n line breaks. Nothing is emitted before the
// first block.
func (rt *richText) breaks(n int) {
	if rt.empty() {
		return
	}
	for i := 0; i < n; i++ {
		rt.lineBreak()
	}
}

func (rt *richText) open(format string) {
	name := styleName(rt.family, format)
	rt.styles[name] = true
	span := odf.CreateStyledSpanNode(rt.doc, name, "")
	span.Child = nil
	rt.current().AddChild(span)
	rt.stack = append(rt.stack, span)
}

func (rt *richText) openLink(href string) {
	prefix := rt.doc.Prefix(odf.NSText, "text")
	a := etree.NewElement(prefix + ":a")
	a.CreateAttr("xlink:type", "simple")
	a.CreateAttr("xlink:href", href)
	rt.links = true
	rt.current().AddChild(a)
	rt.stack = append(rt.stack, a)
}

func (rt *richText) close() {
	if n := len(rt.stack); n > 0 {
		rt.stack = rt.stack[:n-1]
	}
}

// Styles returns the automatic style names used, sorted.
func (rt *richText) Styles() []string {
	names := make([]string, 0, len(rt.styles))
	for name := range rt.styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Markup serializes the collected nodes.
func (rt *richText) Markup() engine.Safe {
	var sb strings.Builder
	for _, child := range rt.root.Child {
		sb.WriteString(rt.doc.WriteNode(child))
	}
	return engine.Safe(sb.String())
}

// InjectStyles adds a text style definition to the automatic styles of doc
// for each name that doc does not define yet. It returns the number added.
func InjectStyles(doc *odf.Document, names []string) int {
	root := doc.Root()
	if root == nil || len(names) == 0 {
		return 0
	}
	office := doc.Prefix(odf.NSOffice, "office")
	style := doc.Declare("style", odf.NSStyle)
	fo := doc.Declare("fo", odf.NSFO)

	auto := root.SelectElement(office + ":automatic-styles")
	if auto == nil {
		auto = etree.NewElement(office + ":automatic-styles")
		var ref etree.Token
		for _, child := range root.ChildElements() {
			tag := child.FullTag()
			if tag == office+":body" || tag == office+":master-styles" {
				ref = child
				break
			}
		}
		if ref != nil {
			odf.InsertBefore(ref, auto)
		} else {
			root.AddChild(auto)
		}
	}

	defined := make(map[string]bool)
	for _, el := range auto.SelectElements(style + ":style") {
		defined[el.SelectAttrValue(style+":name", "")] = true
	}

	added := 0
	for _, name := range names {
		format, ok := formatOf(name)
		if !ok || defined[name] {
			continue
		}
		el := auto.CreateElement(style + ":style")
		el.CreateAttr(style+":name", name)
		el.CreateAttr(style+":family", "text")
		props := el.CreateElement(style + ":text-properties")
		for _, p := range formatProperties[format] {
			prefix := style
			if p.ns == odf.NSFO {
				prefix = fo
			}
			props.CreateAttr(prefix+":"+p.local, p.value)
		}
		defined[name] = true
		added++
	}
	return added
}
